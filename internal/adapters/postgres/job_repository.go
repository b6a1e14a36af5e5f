package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solesync/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func (r *JobRepository) EnqueueOrGetExisting(ctx context.Context, provider domain.Provider, sku, sizeKey string, priority int) (uuid.UUID, error) {
	const q = `
		with

		-- 1) check if a job for this dedupe key is already in flight
		existing as (
			select id from sync_jobs
			where dedupe_key = $1 and status in ('pending', 'running')
			limit 1
		),
		-- 2) if not -> create a new pending job
		ins as (
			insert into sync_jobs (id, provider, sku, size_key, priority, status, dedupe_key, not_before)
			select $2, $3, $4, $5, $6, 'pending', $1, now()
			where not exists (select 1 from existing)
			on conflict (dedupe_key) where status in ('pending', 'running') do nothing
			returning id
		)
		-- 3) return either the existing job id or the new one
		select id from existing
		union all
		select id from ins
		limit 1;
	`

	dedupeKey := domain.DedupeKey(provider, sku, sizeKey)
	var jobID uuid.UUID
	err := r.pool.QueryRow(ctx, q, dedupeKey, uuid.New(), provider, sku, sizeKey, priority).Scan(&jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the insert race against a concurrent enqueue; the
		// conflicting row is the job we want.
		err = r.pool.QueryRow(ctx,
			`select id from sync_jobs where dedupe_key = $1 and status in ('pending', 'running') limit 1`,
			dedupeKey,
		).Scan(&jobID)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job for %q: %w", dedupeKey, err)
	}
	return jobID, nil
}

const jobColumns = `j.id, j.provider, j.sku, j.size_key, j.priority, j.status, j.retry_count, j.not_before, coalesce(j.last_error, ''), j.created_at, j.updated_at`

func (r *JobRepository) Claim(ctx context.Context, limit int, provider *domain.Provider) ([]domain.SyncJob, error) {
	// SKIP LOCKED keeps concurrent claimers from ever receiving
	// overlapping jobs.
	const q = `
		with picked as (
			select id from sync_jobs
			where status = 'pending'
			  and not_before <= now()
			  and ($2::text is null or provider = $2)
			order by priority desc, created_at asc
			limit $1
			for update skip locked
		)
		update sync_jobs j
		set status = 'running', updated_at = now()
		from picked
		where j.id = picked.id
		returning ` + jobColumns + `;
	`

	var providerArg *string
	if provider != nil {
		s := provider.String()
		providerArg = &s
	}

	rows, err := r.pool.Query(ctx, q, limit, providerArg)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.SyncJob, 0, limit)
	for rows.Next() {
		var j domain.SyncJob
		if err = rows.Scan(&j.ID, &j.Provider, &j.SKU, &j.SizeKey, &j.Priority, &j.Status, &j.RetryCount, &j.NotBefore, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan claimed job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed jobs: %w", err)
	}
	return jobs, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncJob, error) {
	const q = `select ` + jobColumns + ` from sync_jobs j where j.id = $1;`

	var j domain.SyncJob
	err := r.pool.QueryRow(ctx, q, id).Scan(&j.ID, &j.Provider, &j.SKU, &j.SizeKey, &j.Priority, &j.Status, &j.RetryCount, &j.NotBefore, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return &j, nil
}

func (r *JobRepository) MarkDone(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx,
		`update sync_jobs set status = 'done', updated_at = now() where id = $1 and status = 'running'`, id)
}

func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.transition(ctx,
		`update sync_jobs set status = 'failed', last_error = $2, updated_at = now() where id = $1 and status = 'running'`, id, lastError)
}

func (r *JobRepository) Defer(ctx context.Context, id uuid.UUID, notBefore time.Time) error {
	return r.transition(ctx,
		`update sync_jobs set status = 'deferred', not_before = $2, updated_at = now() where id = $1 and status = 'running'`, id, notBefore)
}

func (r *JobRepository) Requeue(ctx context.Context, id uuid.UUID, notBefore time.Time, lastError string) error {
	return r.transition(ctx,
		`update sync_jobs set status = 'pending', retry_count = retry_count + 1, not_before = $2, last_error = $3, updated_at = now() where id = $1 and status = 'running'`,
		id, notBefore, lastError)
}

func (r *JobRepository) transition(ctx context.Context, q string, args ...any) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to transition job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) ReleaseDeferred(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`update sync_jobs set status = 'pending', updated_at = now() where status = 'deferred' and not_before <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to release deferred jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepository) SweepAbandoned(ctx context.Context, runningFor time.Duration) (int64, error) {
	// A running job past the processing timeout means its worker died;
	// the job itself did not fail, so retry_count stays untouched.
	tag, err := r.pool.Exec(ctx,
		`update sync_jobs set status = 'pending', updated_at = now() where status = 'running' and updated_at < $1`,
		time.Now().Add(-runningFor))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep abandoned jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepository) CancelPending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `delete from sync_jobs where id = $1 and status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return domain.ErrJobNotCancelable
	}
	return nil
}

func (r *JobRepository) PruneTerminal(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`delete from sync_jobs where status in ('done', 'failed') and updated_at < $1`,
		time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune terminal jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}
