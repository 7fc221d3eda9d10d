package timer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"grapetimer/internal/eventbus"
	"grapetimer/internal/task/engine"
	"grapetimer/pkg/idgen"
	logx "grapetimer/pkg/logx"
	"grapetimer/pkg/schederr"
	"grapetimer/pkg/timeexpr"
)

// Scheduler registers recurring work on a bounded worker pool.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config

	log  logx.Logger
	logs *logx.Service // set when the caller did not supply a logger

	ids  *idgen.Generator
	bus  eventbus.Bus
	pool *engine.Pool

	closeOnce sync.Once
	done      chan struct{}
}

// New builds a Scheduler. A zero log makes the Scheduler own a console
// logger at warn level, which Init may extend with a DebugLog file.
func New(cfg Config, log logx.Logger) *Scheduler {
	cfg = cfg.withDefaults()

	var logs *logx.Service
	if log.IsZero() {
		logs, log = logx.New(logx.Config{Level: "warn", Console: true})
	}
	log = log.With(logx.String("comp", "timer"))

	bus := eventbus.New()
	return &Scheduler{
		cfg:  cfg,
		log:  log,
		logs: logs,
		ids:  idgen.New(cfg.IDSeed),
		bus:  bus,
		pool: engine.New(engine.Config{Tick: cfg.Tick, Workers: cfg.Workers, Debug: cfg.Debug}, log, bus),
		done: make(chan struct{}),
	}
}

var (
	defaultOnce sync.Once
	defaultSch  *Scheduler
)

// Default returns the process-wide Scheduler, building it on first use.
func Default() *Scheduler {
	defaultOnce.Do(func() {
		defaultSch = New(DefaultConfig(), logx.Logger{})
	})
	return defaultSch
}

// Init applies cfg: worker count, debug flag, id seed and mode, and the debug
// log sink. The pool is rebuilt, so only work spawned afterwards runs on the
// new worker count.
func (s *Scheduler) Init(cfg Config) error {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.DebugLog != "" {
		if s.logs == nil {
			s.log.Debug("debug log ignored: scheduler uses a caller supplied logger", logx.String("path", cfg.DebugLog))
		} else if err := s.logs.Apply(logx.Config{
			Level:   "debug",
			Console: true,
			File:    logx.FileConfig{Enabled: true, Path: cfg.DebugLog},
		}); err != nil {
			return schederr.Other(err)
		}
	}
	if err := s.pool.Rebuild(cfg.Workers, cfg.Debug); err != nil {
		return schederr.Other(err)
	}
	s.ids.SetSeed(cfg.IDSeed)
	s.cfg = cfg

	s.log.Info("scheduler initialised",
		logx.Int("workers", cfg.Workers),
		logx.Int64("id_seed", cfg.IDSeed),
		logx.String("id_mode", cfg.IDMode.String()),
		logx.Bool("debug", cfg.Debug),
	)
	return nil
}

// NextID draws an id using the configured mode.
func (s *Scheduler) NextID() uint64 {
	s.mu.Lock()
	mode := s.cfg.IDMode
	s.mu.Unlock()
	return uint64(s.ids.Next(mode))
}

// SpawnTicker runs fn every interval, at most loopCount times (0 = unbounded).
func (s *Scheduler) SpawnTicker(every time.Duration, loopCount int32, fn func(id uint64)) (uint64, error) {
	if fn == nil {
		return 0, schederr.New(schederr.KindOther, "nil action")
	}
	if every <= 0 {
		return 0, schederr.Newf(schederr.KindBadFormat, "ticker interval must be positive, got %s", every)
	}
	return s.pool.Spawn(engine.NewFuncTask("", s.NextID(), loopCount, every, fn))
}

// SpawnDate runs fn at every instant cadence describes, at most loopCount
// times (0 = unbounded). A malformed cadence is rejected before spawning.
func (s *Scheduler) SpawnDate(cadence string, loopCount int32, fn func(id uint64)) (uint64, error) {
	if fn == nil {
		return 0, schederr.New(schederr.KindOther, "nil action")
	}
	expr, err := timeexpr.Parse(cadence)
	if err != nil {
		return 0, err
	}
	// A day the current or next month lacks (Month 31 in February) can fire
	// later; anything else can never fire.
	if _, err := timeexpr.Next(expr, time.Now(), timeexpr.Local); err != nil {
		if !errors.Is(err, schederr.ErrDateOverflow) || expr.Day < 1 || expr.Day > 31 {
			return 0, err
		}
	}
	return s.pool.Spawn(engine.NewFuncTask(expr.String(), s.NextID(), loopCount, 0, fn))
}

// SpawnTask runs a caller defined task under its own id.
func (s *Scheduler) SpawnTask(t Task) (uint64, error) {
	return s.pool.Spawn(t)
}

// StopTicker cancels every task registered under id.
func (s *Scheduler) StopTicker(id uint64) error {
	return s.pool.StopTask(id)
}

// Next previews the next local fire time of cadence.
func (s *Scheduler) Next(cadence string) (time.Time, error) {
	return timeexpr.ParseNext(cadence, time.Now(), timeexpr.Local)
}

func (s *Scheduler) Snapshot() Snapshot { return s.pool.Snapshot() }

// Subscribe streams task lifecycle events. Slow subscribers drop events.
func (s *Scheduler) Subscribe(buffer int) (<-chan Event, func()) {
	return s.bus.Subscribe(buffer)
}

// Bus exposes the lifecycle event bus for in-module listeners.
func (s *Scheduler) Bus() eventbus.Bus { return s.bus }

// Rebuild changes the worker count and debug flag for work spawned afterwards.
func (s *Scheduler) Rebuild(workers int, debug bool) error {
	if err := s.pool.Rebuild(workers, debug); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Workers = workers
	s.cfg.Debug = debug
	s.mu.Unlock()
	return nil
}

// Close stops every task and waits for the loops to exit or ctx to end.
func (s *Scheduler) Close(ctx context.Context) error {
	err := s.pool.Stop(ctx)
	s.closeOnce.Do(func() {
		close(s.done)
		if s.logs != nil {
			if cerr := s.logs.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close logs: %w", cerr)
			}
		}
	})
	return err
}

// WaitForever blocks until ctx ends or the Scheduler is closed.
func (s *Scheduler) WaitForever(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return nil
	}
}
