package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solesync/internal/adapters"
	"solesync/internal/adapters/cache"
	"solesync/internal/adapters/httpclient"
	"solesync/internal/adapters/postgres"
	"solesync/internal/api"
	"solesync/internal/config"
	"solesync/internal/domain"
	"solesync/internal/fx"
	"solesync/internal/market"
	"solesync/internal/market/handler"
	"solesync/internal/platform/db"
	httpserver "solesync/internal/platform/http"

	"github.com/sirupsen/logrus"
)

// Run wires the application components, starts HTTP server and scheduler
func Run() error {
	appCfg, err := config.Init()
	if err != nil {
		return err
	}
	// Logger
	logrus.SetOutput(os.Stdout)
	cfgLevel := appCfg.Logging.Level
	if parsedLvl, parseErr := logrus.ParseLevel(cfgLevel); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
	logrus.Info("✅ Config initialization successful")

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bounded context for startup operations (DB connect, initial reads)
	startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// DB pool
	pool, err := db.CreatePoolAndPing(startupCtx, appCfg.DbServer)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to db")
		return err
	}
	defer pool.Close()
	logrus.Info("✅ Postgres connection successful")

	// Base HTTP client (configurable timeout)
	httpTimeout := time.Duration(appCfg.HTTPClient.TimeoutSeconds) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 10 * time.Second
	}
	baseHTTPClient := &http.Client{Timeout: httpTimeout}

	// External clients
	fxAPIBaseURL := strings.TrimSuffix(appCfg.FxAPI.BaseURL, "/")
	if appCfg.FxAPI.APIKey == "" {
		return fmt.Errorf("fx api key is required")
	}
	fxSource := httpclient.NewFxSourceClient(
		baseHTTPClient,
		fmt.Sprintf("%s/%s/latest", fxAPIBaseURL, appCfg.FxAPI.APIKey),
	)
	clients, err := buildProviderClients(baseHTTPClient, appCfg.Providers.Gateways)
	if err != nil {
		logrus.WithError(err).Error("Failed to build provider clients")
		return err
	}
	logrus.Infof("✅ %d provider gateway clients ready", len(clients))

	// Repositories
	jobRepo := postgres.NewJobRepository(pool)
	budgetRepo := postgres.NewBudgetRepository(pool)
	snapshotRepo := postgres.NewSnapshotRepository(pool)
	latestRepo := postgres.NewLatestPriceRepository(pool)
	fxRepo := postgres.NewFxRateRepository(pool)
	mappingRepo := postgres.NewMappingRepository(pool)

	// FX cache keeps the small per-date pivot rows hot
	fxCache, err := cache.NewFxRateCache(64)
	if err != nil {
		logrus.WithError(err).Error("Failed to build fx rate cache")
		return err
	}
	defer fxCache.Close()

	// Services
	fxService := fx.NewService(fxRepo, fxCache)
	budgetManager := market.NewBudgetManager(budgetRepo, providerLimits(appCfg.Budgets.Limits), appCfg.Budgets.DefaultLimit)
	workerPool := market.NewPool(jobRepo, snapshotRepo, budgetManager, clients, mappingRepo, market.PoolConfig{
		NumWorkers:  appCfg.Workers.NumWorkers,
		ClaimBatch:  appCfg.Workers.ClaimBatch,
		MaxAttempts: appCfg.Workers.MaxAttempts,
	})
	retention := time.Duration(appCfg.Scheduler.RetentionHours) * time.Hour
	materializer := market.NewMaterializer(latestRepo, retention)
	marketService := market.NewService(jobRepo, latestRepo, mappingRepo, fxService)
	marketValidator := market.NewValidator(domain.SupportedCurrencies)

	scheduler := market.NewScheduler(workerPool, materializer, jobRepo, snapshotRepo, budgetRepo, fxSource, fxService, market.SchedulerConfig{
		DispatchInterval:  time.Duration(appCfg.Scheduler.DispatchIntervalSec) * time.Second,
		RefreshInterval:   time.Duration(appCfg.Scheduler.RefreshIntervalSec) * time.Second,
		SweepInterval:     time.Duration(appCfg.Scheduler.SweepIntervalSec) * time.Second,
		ProcessingTimeout: time.Duration(appCfg.Scheduler.ProcessingTimeoutSec) * time.Second,
		Retention:         retention,
		FxPullInterval:    time.Duration(appCfg.Scheduler.FxPullIntervalMinutes) * time.Minute,
	})
	// Ensure scheduler stops before DB pool closes
	defer func() {
		if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
		}
	}()
	// Start scheduler tied to root context
	if startErr := scheduler.Start(ctx); startErr != nil {
		logrus.WithError(startErr).Error("Failed to start scheduler")
		return startErr
	}
	logrus.Info("✅ Scheduler activation successful")

	// Handlers and router
	marketHandler := handler.NewMarketHandler(marketService, fxService, marketValidator)
	router := api.NewRouter(marketHandler)

	logrus.Info("Starting http server")
	// Block until context is canceled, then perform graceful shutdown.
	if serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router); serverErr != nil {
		// Cancel the root context to stop scheduler and other in-flight work
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}

// buildProviderClients maps each configured gateway to its provider. A
// known provider with no configured gateway is simply not fetchable;
// an unknown provider name in the config is a mistake worth failing on.
func buildProviderClients(httpClient *http.Client, gateways map[string]string) (map[domain.Provider]adapters.ProviderClient, error) {
	clients := make(map[domain.Provider]adapters.ProviderClient, len(gateways))
	for name, baseURL := range gateways {
		provider := domain.Provider(strings.ToLower(name))
		if !provider.Valid() {
			return nil, fmt.Errorf("unknown provider %q in gateway config", name)
		}
		if baseURL == "" {
			return nil, fmt.Errorf("empty gateway base url for provider %q", name)
		}
		clients[provider] = httpclient.NewMarketGatewayClient(httpClient, strings.TrimSuffix(baseURL, "/"))
	}
	return clients, nil
}

func providerLimits(raw map[string]int) map[domain.Provider]int {
	limits := make(map[domain.Provider]int, len(raw))
	for name, limit := range raw {
		limits[domain.Provider(strings.ToLower(name))] = limit
	}
	return limits
}
