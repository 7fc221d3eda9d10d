package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"grapetimer/internal/config"
	"grapetimer/internal/observability/status"
	"grapetimer/internal/runtime/supervisor"
	"grapetimer/internal/storage"
	"grapetimer/internal/task/engine"
	logx "grapetimer/pkg/logx"
	"grapetimer/pkg/systemd"
	"grapetimer/pkg/timer"
)

// App is the grapetimer daemon: config file, logging, run journal and the
// scheduler running the configured tasks, with hot reload.
type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store
	sched *timer.Scheduler
	http  *status.Service

	mu      sync.Mutex
	applied *config.Config    // last applied config
	tasks   map[string]uint64 // task name -> id
	names   map[uint64]string
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(mapLoggingConfig(cfg))
	log := root.With(logx.String("comp", "app"))

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	sched := timer.New(schedCfg, root)

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, root)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		store = st
		log.Info("run journal enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	}

	cfgm.SetLogger(root.With(logx.String("comp", "config")))
	var journal status.Journal
	if store != nil {
		journal = store
	}
	return &App{
		cfgm:  cfgm,
		log:   log,
		logs:  logSvc,
		store: store,
		sched: sched,
		http:  status.New(mapHTTPConfig(cfg), sched, journal, root.With(logx.String("comp", "status"))),
		tasks: make(map[string]uint64),
		names: make(map[uint64]string),
	}, nil
}

func (a *App) Scheduler() *timer.Scheduler { return a.sched }

func (a *App) Store() storage.Store { return a.store }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start spawns the configured tasks and the background loops.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	if a.store != nil {
		rec := storage.NewRecorder(a.store, a.sched.Bus(), a.log)
		rec.Name = a.taskName
		a.sup.Go("recorder", rec.Run)
	}

	events, unsub := a.sched.Subscribe(128)
	a.sup.Go("events.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.logEvent(e)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				a.apply(newCfg)
			}
		}
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch, 500*time.Millisecond, 10*time.Second)
	a.http.Start(a.sup.Context())

	// Listeners are in place; now the configured tasks may start firing.
	cfg := a.cfgm.Get()
	if err := a.reconcile(config.TaskDiff{Added: cfg.Tasks}); err != nil {
		return err
	}
	a.mu.Lock()
	a.applied = cfg
	a.mu.Unlock()

	a.log.Info("started",
		logx.Int("tasks", len(cfg.Tasks)),
		logx.Int("workers", a.sched.Snapshot().Workers),
		logx.String("config", a.cfgm.Path()),
	)
	return nil
}

func (a *App) logEvent(e timer.Event) {
	te, ok := e.Data.(timer.TaskEvent)
	if !ok {
		return
	}
	fields := []logx.Field{
		logx.String("type", e.Type),
		logx.Uint64("task_id", te.ID),
		logx.String("task", a.taskName(te.ID)),
		logx.Int32("count", te.Count),
	}
	switch e.Type {
	case timer.EventFailed:
		a.log.Warn("task failed", append(fields, logx.String("err", te.Error))...)
	case timer.EventCompleted:
		a.log.Info("task completed", fields...)
	default:
		a.log.Debug("task event", fields...)
	}
}

// StatusAddr is the status server's bound address, or "" when it is not serving.
func (a *App) StatusAddr() string { return a.http.Addr() }

func (a *App) taskName(id uint64) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.names[id]
}

// apply handles one hot-reloaded config.
func (a *App) apply(newCfg *config.Config) {
	a.mu.Lock()
	prev := a.applied
	a.mu.Unlock()

	changed, attrs := config.SummarizeConfigChange(prev, newCfg)
	if len(changed) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}

	// Outside systemd both notifications are no-ops.
	_, _ = systemd.Reloading()
	defer func() { _, _ = systemd.Ready() }()

	if prev == nil || prev.Logging != newCfg.Logging {
		if err := a.logs.Apply(mapLoggingConfig(newCfg)); err != nil {
			a.log.Warn("logging reload failed", logx.Err(err))
		}
	}

	if prev == nil || prev.Scheduler.Workers != newCfg.Scheduler.Workers || prev.Scheduler.Debug != newCfg.Scheduler.Debug {
		sc, err := mapSchedulerConfig(newCfg)
		if err == nil {
			workers := sc.Workers
			if workers <= 0 {
				workers = timer.DefaultConfig().Workers
			}
			err = a.sched.Rebuild(workers, sc.Debug)
		}
		if err != nil {
			a.log.Warn("scheduler rebuild failed", logx.Err(err))
		}
	}

	if slices.Contains(changed, "http") {
		a.http.Reconfigure(a.sup.Context(), mapHTTPConfig(newCfg))
	}

	var prevTasks []config.TaskConfig
	if prev != nil {
		prevTasks = prev.Tasks
	}
	if err := a.reconcile(config.DiffTasks(prevTasks, newCfg.Tasks)); err != nil {
		a.log.Warn("task reload incomplete", logx.Err(err))
	}

	a.mu.Lock()
	a.applied = newCfg
	a.mu.Unlock()

	fields := append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)
	a.log.Info("config applied", fields...)
}

// reconcile stops removed and changed tasks, then spawns added and changed ones.
func (a *App) reconcile(d config.TaskDiff) error {
	var errs []error
	for _, tc := range append(append([]config.TaskConfig(nil), d.Removed...), d.Changed...) {
		if err := a.stopTask(tc.Name); err != nil {
			errs = append(errs, err)
		}
	}
	for _, tc := range append(append([]config.TaskConfig(nil), d.Added...), d.Changed...) {
		if err := a.spawnTask(tc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) spawnTask(tc config.TaskConfig) error {
	id := tc.ID
	if id == 0 {
		id = a.sched.NextID()
	}
	t, err := newCommandTask(a.sup.Context(), id, tc, a.log.With(logx.String("comp", "task")))
	if err != nil {
		return err
	}
	if _, err := a.sched.SpawnTask(t); err != nil {
		return fmt.Errorf("spawn %s: %w", t.Name(), err)
	}

	a.mu.Lock()
	a.tasks[t.Name()] = id
	a.names[id] = t.Name()
	a.mu.Unlock()

	if next, err := a.nextFireTime(t); err == nil {
		a.log.Info("task scheduled", logx.String("task", t.Name()), logx.Uint64("task_id", id), logx.Time("next", next))
	}
	return nil
}

func (a *App) stopTask(name string) error {
	name = strings.TrimSpace(name)
	a.mu.Lock()
	id, ok := a.tasks[name]
	delete(a.tasks, name)
	if ok {
		delete(a.names, id)
	}
	a.mu.Unlock()
	if !ok {
		return nil
	}

	// A limited task may already have finished on its own.
	if err := a.sched.StopTicker(id); err != nil && !errors.Is(err, engine.ErrTaskNotFound) {
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

func (a *App) nextFireTime(t *CommandTask) (time.Time, error) {
	if t.Cadence() != "" {
		return a.sched.Next(t.Cadence())
	}
	return time.Now().Add(t.Interval()), nil
}

// Stop shuts the daemon down. Each step gets its own upper bound so one
// component cannot stall the whole stop.
func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		c, cancel := context.WithTimeout(ctx, limit)
		defer cancel()
		if err := fn(c); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			return
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("status", 2*time.Second, func(c context.Context) error {
		a.http.Stop(c)
		return nil
	})
	step("scheduler", 3*time.Second, a.sched.Close)
	step("supervisor", 2*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	return a.logs.Close()
}
