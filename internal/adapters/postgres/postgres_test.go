package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"solesync/internal/adapters/postgres"
	"solesync/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const migrationsDir = "../../platform/db/migrations"

var (
	pgSetupOnce sync.Once

	pgContainer *tcpg.PostgresContainer
	pgConnStr   string
)

func TestMain(m *testing.M) {
	code := m.Run()
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
	os.Exit(code)
}

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pgSetupOnce.Do(func() {
		startPostgres(t)
	})

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, pgConnStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	require.NoError(t, resetDatabase(ctx, pool))

	return pool
}

func startPostgres(t *testing.T) {
	ctx := context.Background()
	pg, err := tcpg.Run(ctx,
		"postgres:16-alpine",
		tcpg.WithDatabase("postgres"),
		tcpg.WithUsername("postgres"),
		tcpg.WithPassword("postgres"),
	)
	require.NoError(t, err)

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.Eventually(t, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return db.PingContext(pingCtx) == nil
	}, 15*time.Second, 500*time.Millisecond)

	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, migrationsDir))

	pgContainer = pg
	pgConnStr = dsn
}

func resetDatabase(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `truncate table sync_jobs, provider_budgets, price_snapshots, latest_prices, fx_rates, provider_mappings restart identity cascade`); err != nil {
		return err
	}
	return nil
}

// ---------- JobRepository ----------

func TestJobRepository_Enqueue_IdempotentWhileInFlight(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	first, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "10.5", 0)
	require.NoError(t, err)

	second, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "10.5", 50)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// different size is a different identity
	other, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "11", 0)
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestJobRepository_Enqueue_TerminalJobDoesNotBlockNewOne(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	first, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderAlias, "DD1391-100", "", 0)
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, 10, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, repo.MarkDone(ctx, first))

	second, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderAlias, "DD1391-100", "", 0)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestJobRepository_Claim_PriorityThenAge(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	low, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "SKU-LOW", "", 1)
	require.NoError(t, err)
	high, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "SKU-HIGH", "", 90)
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, high, claimed[0].ID)
	require.Equal(t, domain.JobRunning, claimed[0].Status)

	claimed, err = repo.Claim(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, low, claimed[0].ID)
}

func TestJobRepository_Claim_ConcurrentClaimersNeverOverlap(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	const jobCount = 20
	for i := 0; i < jobCount; i++ {
		_, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "SKU-"+uuid.NewString(), "", 0)
		require.NoError(t, err)
	}

	const claimers = 4
	var mu sync.Mutex
	seen := make(map[uuid.UUID]int)

	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobs, err := repo.Claim(ctx, jobCount, nil)
			require.NoError(t, err)
			mu.Lock()
			for _, j := range jobs {
				seen[j.ID]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, jobCount)
	for id, n := range seen {
		require.Equal(t, 1, n, "job %s claimed more than once", id)
	}
}

func TestJobRepository_Claim_ProviderFilter(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	_, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "SKU-A", "", 0)
	require.NoError(t, err)
	ebayID, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderEbay, "SKU-B", "", 0)
	require.NoError(t, err)

	provider := domain.ProviderEbay
	claimed, err := repo.Claim(ctx, 10, &provider)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, ebayID, claimed[0].ID)
}

func TestJobRepository_RequeueIncrementsRetryCount(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	id, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "", 0)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, 1, nil)
	require.NoError(t, err)

	notBefore := time.Now().Add(time.Minute)
	require.NoError(t, repo.Requeue(ctx, id, notBefore, "upstream provider unavailable: timeout"))

	job, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.JobPending, job.Status)
	require.Equal(t, 1, job.RetryCount)
	require.Contains(t, job.LastError, "timeout")

	// backed-off job is not claimable before its deadline
	claimed, err := repo.Claim(ctx, 10, nil)
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestJobRepository_DeferAndRelease_NoRetryCost(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	id, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "", 0)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, 1, nil)
	require.NoError(t, err)

	require.NoError(t, repo.Defer(ctx, id, time.Now().Add(-time.Second)))

	job, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.JobDeferred, job.Status)
	require.Zero(t, job.RetryCount)

	released, err := repo.ReleaseDeferred(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, released)

	job, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.JobPending, job.Status)
}

func TestJobRepository_SweepAbandoned(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	id, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "", 0)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, 1, nil)
	require.NoError(t, err)

	// age the running job past the processing timeout
	_, err = pool.Exec(ctx, `update sync_jobs set updated_at = now() - interval '20 minutes' where id = $1`, id)
	require.NoError(t, err)

	swept, err := repo.SweepAbandoned(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	job, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.JobPending, job.Status)
	require.Zero(t, job.RetryCount)
}

func TestJobRepository_CancelPending(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	id, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "", 0)
	require.NoError(t, err)

	require.NoError(t, repo.CancelPending(ctx, id))
	_, err = repo.GetByID(ctx, id)
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestJobRepository_CancelRunning_Conflict(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	id, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "", 0)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, 1, nil)
	require.NoError(t, err)

	require.ErrorIs(t, repo.CancelPending(ctx, id), domain.ErrJobNotCancelable)
}

func TestJobRepository_CancelUnknown_NotFound(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)

	require.ErrorIs(t, repo.CancelPending(context.Background(), uuid.New()), domain.ErrJobNotFound)
}

func TestJobRepository_PruneTerminal(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewJobRepository(pool)
	ctx := context.Background()

	id, err := repo.EnqueueOrGetExisting(ctx, domain.ProviderStockX, "DD1391-100", "", 0)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, 1, nil)
	require.NoError(t, err)
	require.NoError(t, repo.MarkDone(ctx, id))

	_, err = pool.Exec(ctx, `update sync_jobs set updated_at = now() - interval '10 days' where id = $1`, id)
	require.NoError(t, err)

	pruned, err := repo.PruneTerminal(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

// ---------- BudgetRepository ----------

func TestBudgetRepository_TryReserve_ClampsToRemaining(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewBudgetRepository(pool)
	ctx := context.Background()
	window := time.Now().UTC().Truncate(time.Hour)

	granted, remaining, err := repo.TryReserve(ctx, domain.ProviderStockX, window, 60, 100)
	require.NoError(t, err)
	require.Equal(t, 60, granted)
	require.Equal(t, 40, remaining)

	granted, remaining, err = repo.TryReserve(ctx, domain.ProviderStockX, window, 60, 100)
	require.NoError(t, err)
	require.Equal(t, 40, granted)
	require.Zero(t, remaining)

	granted, remaining, err = repo.TryReserve(ctx, domain.ProviderStockX, window, 1, 100)
	require.NoError(t, err)
	require.Zero(t, granted)
	require.Zero(t, remaining)
}

func TestBudgetRepository_TryReserve_ConcurrentGrantsNeverExceedLimit(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewBudgetRepository(pool)
	ctx := context.Background()
	window := time.Now().UTC().Truncate(time.Hour)

	const callers = 8
	const perCall = 20
	const limit = 100

	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, _, err := repo.TryReserve(ctx, domain.ProviderStockX, window, perCall, limit)
			require.NoError(t, err)
			mu.Lock()
			total += granted
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, limit, total)
}

func TestBudgetRepository_WindowsAreIndependent(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewBudgetRepository(pool)
	ctx := context.Background()
	window := time.Now().UTC().Truncate(time.Hour)

	granted, _, err := repo.TryReserve(ctx, domain.ProviderStockX, window, 100, 100)
	require.NoError(t, err)
	require.Equal(t, 100, granted)

	// next hour window starts from a clean budget
	granted, remaining, err := repo.TryReserve(ctx, domain.ProviderStockX, window.Add(time.Hour), 10, 100)
	require.NoError(t, err)
	require.Equal(t, 10, granted)
	require.Equal(t, 90, remaining)

	// other providers are unaffected
	granted, _, err = repo.TryReserve(ctx, domain.ProviderEbay, window, 10, 100)
	require.NoError(t, err)
	require.Equal(t, 10, granted)
}

// ---------- Snapshot + LatestPrice repositories ----------

func seedSnapshot(sku, productID, sizeKey string, numeric *float64, ask float64, at time.Time) domain.PriceSnapshot {
	return domain.PriceSnapshot{
		Provider:          domain.ProviderStockX,
		ProviderSource:    "market-api",
		ProviderProductID: productID,
		SKU:               sku,
		SizeKey:           sizeKey,
		SizeNumeric:       numeric,
		CurrencyCode:      "USD",
		RegionCode:        "US",
		LowestAsk:         &ask,
		SnapshotAt:        at,
	}
}

func TestSnapshotRepository_InsertBatch_Idempotent(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewSnapshotRepository(pool)
	ctx := context.Background()

	numeric := 10.5
	at := time.Now().UTC().Truncate(time.Second)
	batch := []domain.PriceSnapshot{
		seedSnapshot("DD1391-100", "px-1", "10.5", &numeric, 180, at),
		seedSnapshot("DD1391-100", "px-1", "11", nil, 170, at),
	}

	require.NoError(t, repo.InsertBatch(ctx, batch))
	require.NoError(t, repo.InsertBatch(ctx, batch)) // retry must not double-record

	var count int
	require.NoError(t, pool.QueryRow(ctx, `select count(*) from price_snapshots`).Scan(&count))
	require.Equal(t, 2, count)
}

func TestLatestPriceRepository_Rebuild_PicksMostRecentPerDimension(t *testing.T) {
	pool := setupPostgres(t)
	snapshots := postgres.NewSnapshotRepository(pool)
	latest := postgres.NewLatestPriceRepository(pool)
	ctx := context.Background()

	numeric := 10.5
	old := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Second)
	recent := time.Now().UTC().Add(-10 * time.Minute).Truncate(time.Second)

	require.NoError(t, snapshots.InsertBatch(ctx, []domain.PriceSnapshot{
		seedSnapshot("DD1391-100", "px-1", "10.5", &numeric, 200, old),
		seedSnapshot("DD1391-100", "px-1", "10.5", &numeric, 180, recent),
	}))

	rows, err := latest.Rebuild(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	prices, err := latest.GetForMapping(ctx, domain.ProviderMapping{
		Provider:          domain.ProviderStockX,
		ProviderProductID: "px-1",
	})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	require.InDelta(t, 180, *prices[0].LowestAsk, 1e-9)
	require.Equal(t, recent.Unix(), prices[0].SnapshotAt.Unix())
}

func TestLatestPriceRepository_Rebuild_ExcludesExpiredSnapshots(t *testing.T) {
	pool := setupPostgres(t)
	snapshots := postgres.NewSnapshotRepository(pool)
	latest := postgres.NewLatestPriceRepository(pool)
	ctx := context.Background()

	numeric := 9.0
	expired := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, snapshots.InsertBatch(ctx, []domain.PriceSnapshot{
		seedSnapshot("DD1391-100", "px-1", "9", &numeric, 150, expired),
	}))

	rows, err := latest.Rebuild(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, rows)
}

func TestLatestPriceRepository_Rebuild_KeepsLanesSeparate(t *testing.T) {
	pool := setupPostgres(t)
	snapshots := postgres.NewSnapshotRepository(pool)
	latest := postgres.NewLatestPriceRepository(pool)
	ctx := context.Background()

	numeric := 10.0
	at := time.Now().UTC().Truncate(time.Second)
	standard := seedSnapshot("DD1391-100", "px-1", "10", &numeric, 180, at)
	flex := seedSnapshot("DD1391-100", "px-1", "10", &numeric, 170, at)
	flex.IsFlex = true

	require.NoError(t, snapshots.InsertBatch(ctx, []domain.PriceSnapshot{standard, flex}))

	rows, err := latest.Rebuild(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 2, rows)
}

func TestSnapshotRepository_Prune(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewSnapshotRepository(pool)
	ctx := context.Background()

	numeric := 10.0
	require.NoError(t, repo.InsertBatch(ctx, []domain.PriceSnapshot{
		seedSnapshot("DD1391-100", "px-1", "10", &numeric, 180, time.Now().UTC().Add(-48*time.Hour)),
		seedSnapshot("DD1391-100", "px-1", "10", &numeric, 175, time.Now().UTC()),
	}))

	pruned, err := repo.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned)
}

// ---------- FxRateRepository ----------

func TestFxRateRepository_GetOnOrBefore_FallsBackToPriorDate(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewFxRateRepository(pool)
	ctx := context.Background()

	jan8 := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, domain.FxRate{
		AsOf: jan8, GbpPerUsd: 0.79, GbpPerEur: 0.84, Source: "exchangerate-api",
	}))

	rate, err := repo.GetOnOrBefore(ctx, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, jan8.Unix(), rate.AsOf.Unix())
	require.InDelta(t, 0.79, rate.GbpPerUsd, 1e-9)
}

func TestFxRateRepository_GetOnOrBefore_NoRow(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewFxRateRepository(pool)

	_, err := repo.GetOnOrBefore(context.Background(), time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, domain.ErrNoFxRate)
}

func TestFxRateRepository_Upsert_SameDayCorrection(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewFxRateRepository(pool)
	ctx := context.Background()

	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, domain.FxRate{AsOf: day, GbpPerUsd: 0.79, GbpPerEur: 0.84, Source: "exchangerate-api"}))
	require.NoError(t, repo.Upsert(ctx, domain.FxRate{AsOf: day, GbpPerUsd: 0.80, GbpPerEur: 0.85, Source: "exchangerate-api"}))

	rate, err := repo.GetOnOrBefore(ctx, day)
	require.NoError(t, err)
	require.InDelta(t, 0.80, rate.GbpPerUsd, 1e-9)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `select count(*) from fx_rates`).Scan(&count))
	require.Equal(t, 1, count)
}

// ---------- MappingRepository ----------

func TestMappingRepository_MappingsFor(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewMappingRepository(pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		insert into provider_mappings (sku, provider, provider_product_id, provider_variant_id) values
		('DD1391-100', 'stockx', 'px-1', null),
		('DD1391-100', 'alias', 'al-7', 'v-2')
	`)
	require.NoError(t, err)

	mappings, err := repo.MappingsFor(ctx, "DD1391-100")
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	require.Equal(t, domain.ProviderAlias, mappings[0].Provider)
	require.Equal(t, "v-2", mappings[0].ProviderVariantID)
	require.Equal(t, domain.ProviderStockX, mappings[1].Provider)
	require.Empty(t, mappings[1].ProviderVariantID)

	none, err := repo.MappingsFor(ctx, "UNKNOWN-1")
	require.NoError(t, err)
	require.Empty(t, none)
}
