// Package app wires the engine together: config, storage, scheduler,
// retention sweeper, and the optional observability and notification
// surfaces. It also exposes the three synchronous operations the show
// editing surface calls.
package app

import (
	"context"
	"fmt"
	"sync"

	"aircheck/internal/capture"
	"aircheck/internal/config"
	"aircheck/internal/eventbus"
	"aircheck/internal/metrics"
	"aircheck/internal/notify"
	"aircheck/internal/observability/obs"
	"aircheck/internal/retention"
	"aircheck/internal/schedule"
	"aircheck/internal/scheduler"
	"aircheck/internal/store"
	logx "aircheck/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	db  *store.Store
	bus eventbus.Bus
	met *metrics.Metrics

	sched   *scheduler.Service
	sweeper *retention.Service
	notif   *notify.Service
	obsSrv  *obs.Service

	watchCancel context.CancelFunc
	watchWG     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(loggingConfig(cfg))
	mgr.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()
	met := metrics.New()

	db, err := store.Open(storageConfig(cfg), log.With(logx.String("comp", "store")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	runner := capture.NewHTTPRunner(log.With(logx.String("comp", "capture")))

	a := &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		db:     db,
		bus:    bus,
		met:    met,
		sched: scheduler.New(schedulerConfig(cfg), db, runner, bus, met,
			log.With(logx.String("comp", "scheduler"))),
		sweeper: retention.New(retentionConfig(cfg), db, bus, met,
			log.With(logx.String("comp", "retention"))),
		notif: notify.New(notifyConfig(cfg), bus,
			log.With(logx.String("comp", "notify"))),
		obsSrv: obs.New(obsConfig(cfg), met,
			log.With(logx.String("comp", "obs"))),
	}
	return a, nil
}

// Store exposes persistence to the surrounding CRUD layer.
func (a *App) Store() *store.Store { return a.db }

// Scheduler exposes the live registry for introspection (status surfaces).
func (a *App) Scheduler() *scheduler.Service { return a.sched }

func (a *App) Start(ctx context.Context) error {
	if a.sched.Enabled() {
		a.sched.Start(ctx)
		// Full resynchronization from persisted state; the registry carries
		// nothing across restarts.
		if err := a.sched.ResyncAll(ctx); err != nil {
			a.log.Error("startup resync failed", logx.Err(err))
		}
	}
	if a.sweeper.Enabled() {
		a.sweeper.Start(ctx)
	}
	a.notif.Start(ctx)
	if err := a.obsSrv.Start(ctx); err != nil {
		a.log.Warn("obs server failed to start", logx.Err(err))
	}

	// Config hot reload.
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	sub := a.cfgMgr.Subscribe(2)
	a.watchWG.Add(2)
	go func() {
		defer a.watchWG.Done()
		_ = a.cfgMgr.Watch(wctx)
	}()
	go func() {
		defer a.watchWG.Done()
		for {
			select {
			case <-wctx.Done():
				a.cfgMgr.Unsubscribe(sub)
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()

	a.log.Info("aircheck started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchWG.Wait()
		a.watchCancel = nil
	}
	a.obsSrv.Stop(ctx)
	a.notif.Stop(ctx)
	a.sweeper.Stop(ctx)
	a.sched.Stop(ctx)
	err := a.db.Close()
	a.log.Info("aircheck stopped")
	_ = a.logSvc.Close()
	return err
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logSvc.Apply(loggingConfig(cfg))
	a.sched.Apply(schedulerConfig(cfg))
	a.sweeper.Apply(retentionConfig(cfg))
	a.log.Info("config applied")
}

// ---- Engine operations called by the editing surface ----

// CompileSchedule turns free-text schedule input into a cron expression and
// canonical description. Errors are user-facing and never persist anything.
func (a *App) CompileSchedule(text string) (schedule.Compiled, error) {
	return schedule.Compile(text)
}

// ReconcileShow makes the live job set match the show's persisted state.
// Callers treat failure as a warning: the show stays persisted either way
// and a later reconcile can retry.
func (a *App) ReconcileShow(ctx context.Context, showID int64) error {
	if err := a.sched.Reconcile(ctx, showID); err != nil {
		a.log.Warn("reconcile failed; show remains unscheduled",
			logx.Int64("show", showID), logx.Err(err))
		return err
	}
	return nil
}

// UpdateShowTTL persists a show's retention policy and recomputes expiries
// of its non-override recordings, returning how many were updated.
func (a *App) UpdateShowTTL(ctx context.Context, showID int64, value int, ttlType store.TTLType) (int, error) {
	return a.sweeper.UpdateShowTTL(ctx, showID, value, ttlType)
}

// SetShowActive flips the show's active flag and reconciles. On deactivation
// the live job is removed before the flag flip becomes visible, so no firing
// can start after a caller observes the show as inactive.
func (a *App) SetShowActive(ctx context.Context, showID int64, active bool) error {
	if !active {
		a.sched.Unregister(showID)
	}
	if err := a.db.SetShowActive(ctx, showID, active); err != nil {
		return err
	}
	return a.ReconcileShow(ctx, showID)
}

// SetShowSchedule is the whole edit flow in one call: compile, persist, and
// reconcile. A compile or persist failure returns err and leaves the show
// untouched. A reconcile failure never rolls back the write; it comes back
// as warn so the caller can surface it.
func (a *App) SetShowSchedule(ctx context.Context, showID int64, text string) (compiled schedule.Compiled, warn, err error) {
	compiled, err = schedule.Compile(text)
	if err != nil {
		return schedule.Compiled{}, nil, err
	}
	if err = a.db.SetShowSchedule(ctx, showID, text, compiled.Cron, compiled.Description); err != nil {
		return schedule.Compiled{}, nil, err
	}
	return compiled, a.ReconcileShow(ctx, showID), nil
}
