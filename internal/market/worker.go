package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"solesync/internal/adapters"
	"solesync/internal/domain"

	"github.com/sirupsen/logrus"
)

const (
	defaultNumWorkers  = 5
	defaultClaimBatch  = 20
	defaultMaxAttempts = 3
	perFetchTimeout    = 15 * time.Second
	backoffBase        = time.Minute
	backoffCap         = 30 * time.Minute
)

// PoolConfig tunes one dispatch pass of the worker pool.
type PoolConfig struct {
	NumWorkers  int
	ClaimBatch  int
	MaxAttempts int
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.NumWorkers <= 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.ClaimBatch <= 0 {
		c.ClaimBatch = defaultClaimBatch
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	return c
}

// Pool claims runnable jobs, reserves provider budget, calls the
// provider clients and persists the resulting snapshots.
type Pool struct {
	jobs      adapters.JobRepository
	snapshots adapters.SnapshotRepository
	budget    *BudgetManager
	clients   map[domain.Provider]adapters.ProviderClient
	mappings  adapters.MappingResolver
	cfg       PoolConfig
}

// RunOnce executes a single scheduling pass: release deferred jobs
// whose window has arrived, claim a batch, check budgets, then fan the
// runnable jobs out to workers.
func (p *Pool) RunOnce(ctx context.Context, execID string) error {
	if released, err := p.jobs.ReleaseDeferred(ctx); err != nil {
		return fmt.Errorf("failed to release deferred jobs: %w", err)
	} else if released > 0 {
		logrus.Infof("%d deferred jobs released back to pending; execID: %s", released, execID)
	}

	claimed, err := p.jobs.Claim(ctx, p.cfg.ClaimBatch, nil)
	if err != nil {
		return fmt.Errorf("failed to claim jobs: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}
	logrus.Infof("%d jobs claimed, dispatching; execID: %s", len(claimed), execID)

	// Budget is checked before dispatch. An exhausted budget defers the
	// job to the next hour window and never counts as a retry.
	runnable := make([]domain.SyncJob, 0, len(claimed))
	for _, job := range claimed {
		granted, remaining := p.budget.TryReserve(ctx, job.Provider, 1)
		if granted == 0 {
			logrus.WithFields(logrus.Fields{"job": job.ID, "provider": job.Provider, "remaining": remaining}).
				Info("Provider budget exhausted, deferring job")
			if deferErr := p.jobs.Defer(ctx, job.ID, NextWindow(time.Now())); deferErr != nil {
				logrus.WithError(deferErr).WithField("job", job.ID).Error("Failed to defer job")
			}
			continue
		}
		runnable = append(runnable, job)
	}
	if len(runnable) == 0 {
		return nil
	}

	workQueue := make(chan domain.SyncJob, len(runnable))
	for _, job := range runnable {
		workQueue <- job
	}
	close(workQueue)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.NumWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-workQueue:
					if !ok {
						return
					}
					p.processJob(ctx, workerID, job)
				}
			}
		}(i)
	}
	wg.Wait()
	return nil
}

func (p *Pool) processJob(ctx context.Context, workerID int, job domain.SyncJob) {
	log := logrus.WithFields(logrus.Fields{"worker": workerID, "job": job.ID, "provider": job.Provider, "sku": job.SKU})

	client, ok := p.clients[job.Provider]
	if !ok {
		p.fail(ctx, job, fmt.Sprintf("no client registered for provider %q", job.Provider))
		return
	}

	mapping, err := p.mappingFor(ctx, job)
	if err != nil {
		// NoMapping is terminal: retrying cannot make a mapping appear.
		p.fail(ctx, job, err.Error())
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, perFetchTimeout)
	defer cancel()
	resp, err := client.FetchMarket(fetchCtx, mapping.ProviderProductID, mapping.ProviderVariantID, "")
	if err != nil {
		p.retryOrFail(ctx, job, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err))
		return
	}

	snapshots := snapshotsFromResponse(job, mapping, resp)
	if err = p.persist(ctx, snapshots); err != nil {
		// The upstream call succeeded; burning budget on a second fetch
		// would be wrong, so this is not retried through the fetch path.
		log.WithError(err).Error("Snapshots fetched but not persisted")
		p.fail(ctx, job, fmt.Sprintf("%v: %v", domain.ErrPartialWrite, err))
		return
	}

	if doneErr := p.jobs.MarkDone(ctx, job.ID); doneErr != nil {
		log.WithError(doneErr).Error("Failed to mark job done")
		return
	}
	log.Infof("Job done, %d snapshots written", len(snapshots))
}

func (p *Pool) mappingFor(ctx context.Context, job domain.SyncJob) (domain.ProviderMapping, error) {
	mappings, err := p.mappings.MappingsFor(ctx, job.SKU)
	if err != nil {
		return domain.ProviderMapping{}, fmt.Errorf("failed to resolve mappings for %q: %w", job.SKU, err)
	}
	for _, m := range mappings {
		if m.Provider == job.Provider {
			return m, nil
		}
	}
	return domain.ProviderMapping{}, fmt.Errorf("%w: %s for provider %s", domain.ErrNoMapping, job.SKU, job.Provider)
}

// persist writes the snapshot batch, retrying the write once. Snapshot
// inserts are idempotent, so the second attempt cannot double-record.
func (p *Pool) persist(ctx context.Context, snapshots []domain.PriceSnapshot) error {
	err := p.snapshots.InsertBatch(ctx, snapshots)
	if err == nil {
		return nil
	}
	logrus.WithError(err).Warn("Snapshot write failed, retrying once")
	return p.snapshots.InsertBatch(ctx, snapshots)
}

func (p *Pool) retryOrFail(ctx context.Context, job domain.SyncJob, cause error) {
	attempt := job.RetryCount + 1
	if attempt >= p.cfg.MaxAttempts {
		p.fail(ctx, job, cause.Error())
		return
	}
	notBefore := time.Now().Add(backoffFor(attempt))
	if err := p.jobs.Requeue(ctx, job.ID, notBefore, cause.Error()); err != nil {
		logrus.WithError(err).WithField("job", job.ID).Error("Failed to requeue job")
	}
}

func (p *Pool) fail(ctx context.Context, job domain.SyncJob, lastError string) {
	if err := p.jobs.MarkFailed(ctx, job.ID, lastError); err != nil {
		logrus.WithError(err).WithField("job", job.ID).Error("Failed to mark job failed")
	}
}

// backoffFor doubles per attempt: 1m, 2m, 4m, ... capped at 30m.
func backoffFor(attempt int) time.Duration {
	d := backoffBase << (attempt - 1)
	if d > backoffCap || d <= 0 {
		return backoffCap
	}
	return d
}

func NewPool(
	jobs adapters.JobRepository,
	snapshots adapters.SnapshotRepository,
	budget *BudgetManager,
	clients map[domain.Provider]adapters.ProviderClient,
	mappings adapters.MappingResolver,
	cfg PoolConfig,
) *Pool {
	return &Pool{
		jobs:      jobs,
		snapshots: snapshots,
		budget:    budget,
		clients:   clients,
		mappings:  mappings,
		cfg:       cfg.withDefaults(),
	}
}
