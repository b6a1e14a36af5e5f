package market

import (
	"context"
	"time"

	"solesync/internal/adapters"
	"solesync/internal/domain"

	"github.com/sirupsen/logrus"
)

// BudgetManager enforces the per-provider hourly token budget. A new
// window is addressed lazily by truncating the clock to the top of the
// hour, so nothing needs to reset counters at window boundaries.
type BudgetManager struct {
	repo         adapters.BudgetRepository
	limits       map[domain.Provider]int
	defaultLimit int
}

// TryReserve grants up to n tokens for the provider's current hour
// window. On any store error the request is treated as not granted:
// overrunning an external provider's rate limit is worse than skipping
// a scheduling pass.
func (m *BudgetManager) TryReserve(ctx context.Context, provider domain.Provider, n int) (granted, remaining int) {
	granted, remaining, err := m.repo.TryReserve(ctx, provider, CurrentWindow(time.Now()), n, m.limitFor(provider))
	if err != nil {
		logrus.WithError(err).WithField("provider", provider).Warn("Budget reservation failed, failing closed")
		return 0, 0
	}
	return granted, remaining
}

func (m *BudgetManager) limitFor(provider domain.Provider) int {
	if limit, ok := m.limits[provider]; ok {
		return limit
	}
	return m.defaultLimit
}

// CurrentWindow truncates the given time to the top of its hour, UTC.
func CurrentWindow(now time.Time) time.Time {
	return now.UTC().Truncate(time.Hour)
}

// NextWindow is when a budget-deferred job becomes runnable again.
func NextWindow(now time.Time) time.Time {
	return CurrentWindow(now).Add(time.Hour)
}

func NewBudgetManager(repo adapters.BudgetRepository, limits map[domain.Provider]int, defaultLimit int) *BudgetManager {
	return &BudgetManager{repo: repo, limits: limits, defaultLimit: defaultLimit}
}
