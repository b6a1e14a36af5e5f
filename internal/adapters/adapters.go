package adapters

import (
	"context"
	"time"

	"solesync/internal/domain"

	"github.com/google/uuid"
)

// RawPriceEntry is one size-level observation inside a provider
// response. A single response may carry standard, flex and consigned
// entries for the same size; each becomes its own snapshot row.
type RawPriceEntry struct {
	Size          string
	LowestAsk     *float64
	HighestBid    *float64
	LastSalePrice *float64
	SalesLast72h  *int
	IsFlex        bool
	IsConsigned   bool
}

// RawPriceResponse is the normalized shape every provider client
// returns. Marketplace-specific request/response handling lives outside
// this core.
type RawPriceResponse struct {
	Source       string
	ProductID    string
	VariantID    string
	CurrencyCode string
	RegionCode   string
	Entries      []RawPriceEntry
	ObservedAt   time.Time
}

// ProviderClient fetches current market data for one provider product.
type ProviderClient interface {
	FetchMarket(ctx context.Context, productID, variantID, currency string) (*RawPriceResponse, error)
}

// MappingResolver is the catalog-mapping collaborator.
type MappingResolver interface {
	MappingsFor(ctx context.Context, sku string) ([]domain.ProviderMapping, error)
}

type JobRepository interface {
	// EnqueueOrGetExisting creates a pending job unless one with the
	// same dedupe key is already pending or running, in which case the
	// existing job's id is returned.
	EnqueueOrGetExisting(ctx context.Context, provider domain.Provider, sku, sizeKey string, priority int) (uuid.UUID, error)
	// Claim atomically picks and locks up to limit runnable jobs,
	// ordered by priority desc then creation time asc. Concurrent
	// callers never receive overlapping jobs.
	Claim(ctx context.Context, limit int, provider *domain.Provider) ([]domain.SyncJob, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error)
	MarkDone(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	// Defer parks a running job until notBefore without touching its
	// retry count (budget exhaustion is not a failure).
	Defer(ctx context.Context, id uuid.UUID, notBefore time.Time) error
	// Requeue returns a running job to pending with an incremented
	// retry count and a backoff deadline.
	Requeue(ctx context.Context, id uuid.UUID, notBefore time.Time, lastError string) error
	// ReleaseDeferred moves deferred jobs whose not_before has passed
	// back to pending.
	ReleaseDeferred(ctx context.Context) (int64, error)
	// SweepAbandoned requeues jobs stuck in running longer than the
	// processing timeout, presuming the worker died. Retry count is not
	// incremented.
	SweepAbandoned(ctx context.Context, runningFor time.Duration) (int64, error)
	CancelPending(ctx context.Context, id uuid.UUID) error
	PruneTerminal(ctx context.Context, olderThan time.Duration) (int64, error)
}

type BudgetRepository interface {
	// TryReserve atomically grants up to n tokens for the provider's
	// hour window, clamped to what remains. Returns granted tokens and
	// the remaining budget after the grant.
	TryReserve(ctx context.Context, provider domain.Provider, hourWindow time.Time, n, rateLimit int) (granted, remaining int, err error)
	PruneWindows(ctx context.Context, olderThan time.Duration) (int64, error)
}

type SnapshotRepository interface {
	InsertBatch(ctx context.Context, snapshots []domain.PriceSnapshot) error
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

type LatestPriceRepository interface {
	// Rebuild recomputes the projection from the trailing retention
	// window and swaps it in without blocking readers.
	Rebuild(ctx context.Context, retention time.Duration) (int64, error)
	GetForMapping(ctx context.Context, m domain.ProviderMapping) ([]domain.LatestPrice, error)
}

type FxRateRepository interface {
	// GetOnOrBefore resolves the rate row for the date, falling back to
	// the most recent prior date. Returns domain.ErrNoFxRate when no
	// row exists at or before the date.
	GetOnOrBefore(ctx context.Context, date time.Time) (*domain.FxRate, error)
	Upsert(ctx context.Context, rate domain.FxRate) error
}

// FxRateCache caches resolved rate rows by requested date. Rows are
// immutable apart from same-day corrections, which invalidate.
type FxRateCache interface {
	Get(date time.Time) (*domain.FxRate, bool)
	Set(date time.Time, rate *domain.FxRate)
	Invalidate(date time.Time)
}

// FxSourceClient pulls the GBP-pivot table for today from the external
// rates API.
type FxSourceClient interface {
	FetchPivotRates(ctx context.Context) (*domain.FxRate, error)
}
