package market

import (
	"context"
	"time"

	"solesync/internal/adapters"
	"solesync/internal/fx"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SchedulerConfig holds the cadence of the background jobs.
type SchedulerConfig struct {
	DispatchInterval  time.Duration // worker pool scheduling pass
	RefreshInterval   time.Duration // latest-price projection rebuild
	SweepInterval     time.Duration // abandoned-job and deferred sweeps
	ProcessingTimeout time.Duration // running longer than this means an abandoned worker
	Retention         time.Duration // snapshot trailing window
	FxPullInterval    time.Duration // daily pivot-table pull
}

// Scheduler runs the engine's periodic jobs: dispatch passes, the
// latest-price refresh, the abandoned sweep, retention pruning and the
// daily FX pull.
type Scheduler struct {
	pool         *Pool
	materializer *Materializer
	jobs         adapters.JobRepository
	snapshots    adapters.SnapshotRepository
	budgets      adapters.BudgetRepository
	fxSource     adapters.FxSourceClient
	fxService    *fx.Service
	cfg          SchedulerConfig
	// -----
	sched gocron.Scheduler
}

func (s *Scheduler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = scheduler

	if err = s.register(scheduler); err != nil {
		return err
	}

	scheduler.Start()

	// Stop scheduler when the provided context is canceled.
	go func() {
		<-ctx.Done()
		if sdErr := s.Shutdown(); sdErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", sdErr)
		}
	}()
	return nil
}

func (s *Scheduler) register(scheduler gocron.Scheduler) error {
	dispatch := func(jobCtx context.Context) {
		execID := uuid.NewString()
		if runErr := s.pool.RunOnce(jobCtx, execID); runErr != nil {
			logrus.Errorf("Dispatch pass %s failed: %v", execID, runErr)
		}
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(s.cfg.DispatchInterval),
		gocron.NewTask(dispatch),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return err
	}

	refresh := func(jobCtx context.Context) {
		rows, refreshErr := s.materializer.Refresh(jobCtx)
		if refreshErr != nil {
			logrus.Errorf("Latest-price refresh failed: %v", refreshErr)
			return
		}
		logrus.Debugf("Latest-price projection rebuilt, %d rows", rows)
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(s.cfg.RefreshInterval),
		gocron.NewTask(refresh),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return err
	}

	sweep := func(jobCtx context.Context) {
		swept, sweepErr := s.jobs.SweepAbandoned(jobCtx, s.cfg.ProcessingTimeout)
		if sweepErr != nil {
			logrus.Errorf("Abandoned-job sweep failed: %v", sweepErr)
			return
		}
		if swept > 0 {
			logrus.Warnf("%d abandoned jobs returned to pending", swept)
		}
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(s.cfg.SweepInterval),
		gocron.NewTask(sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return err
	}

	prune := func(jobCtx context.Context) {
		if n, pruneErr := s.snapshots.Prune(jobCtx, s.cfg.Retention); pruneErr != nil {
			logrus.Errorf("Snapshot prune failed: %v", pruneErr)
		} else if n > 0 {
			logrus.Infof("%d snapshots pruned past retention window", n)
		}
		if n, pruneErr := s.jobs.PruneTerminal(jobCtx, s.cfg.Retention); pruneErr != nil {
			logrus.Errorf("Terminal-job prune failed: %v", pruneErr)
		} else if n > 0 {
			logrus.Infof("%d terminal jobs pruned", n)
		}
		if n, pruneErr := s.budgets.PruneWindows(jobCtx, s.cfg.Retention); pruneErr != nil {
			logrus.Errorf("Budget-window prune failed: %v", pruneErr)
		} else if n > 0 {
			logrus.Infof("%d budget windows pruned", n)
		}
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(prune),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return err
	}

	fxPull := func(jobCtx context.Context) {
		rate, fetchErr := s.fxSource.FetchPivotRates(jobCtx)
		if fetchErr != nil {
			logrus.Errorf("FX pivot pull failed: %v", fetchErr)
			return
		}
		if recordErr := s.fxService.RecordDailyRates(jobCtx, *rate); recordErr != nil {
			logrus.Errorf("FX pivot record failed: %v", recordErr)
			return
		}
		logrus.Infof("FX pivot table recorded for %s", rate.AsOf.Format(time.DateOnly))
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(s.cfg.FxPullInterval),
		gocron.NewTask(fxPull),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return err
	}

	return nil
}

func (s *Scheduler) Shutdown() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}

func NewScheduler(
	pool *Pool,
	materializer *Materializer,
	jobs adapters.JobRepository,
	snapshots adapters.SnapshotRepository,
	budgets adapters.BudgetRepository,
	fxSource adapters.FxSourceClient,
	fxService *fx.Service,
	cfg SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		pool:         pool,
		materializer: materializer,
		jobs:         jobs,
		snapshots:    snapshots,
		budgets:      budgets,
		fxSource:     fxSource,
		fxService:    fxService,
		cfg:          cfg,
	}
}
