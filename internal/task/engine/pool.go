package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"grapetimer/internal/eventbus"
	logx "grapetimer/pkg/logx"

	rtsup "grapetimer/internal/runtime/supervisor"
)

const warnThrottleEvery = 5 * time.Second

// Pool runs every spawned task in its own loop and bounds concurrent
// executions with a set of worker permits.
//
// The permit set is called a generation. New installs the first one and every
// Rebuild installs a fresh one; a loop keeps the generation it was spawned on
// for its whole life.
type Pool struct {
	mu      sync.Mutex
	cfg     Config
	gen     *generation
	stopped bool

	log  logx.Logger
	bus  eventbus.Bus
	sup  *rtsup.Supervisor
	warn *logx.Throttle

	regMu sync.Mutex
	reg   map[uint64][]*entry
	live  int
	idle  chan struct{} // closed while no loop is registered

	spawned   atomic.Uint64
	executed  atomic.Uint64
	completed atomic.Uint64
	cancelled atomic.Uint64
	failed    atomic.Uint64
	panics    atomic.Uint64
}

// generation is a bounded set of execution permits.
type generation struct {
	seq     uint64
	workers int
	debug   bool
	permits chan struct{}
}

func newGeneration(seq uint64, workers int, debug bool) *generation {
	return &generation{seq: seq, workers: workers, debug: debug, permits: make(chan struct{}, workers)}
}

func (g *generation) acquire(ctx context.Context) error {
	select {
	case g.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *generation) release() { <-g.permits }

// entry is the registry handle of one task loop.
type entry struct {
	task    Task
	gen     *generation
	tick    time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
	spawned time.Time

	mu    sync.Mutex
	state State
	count int32
	next  time.Time
}

func (e *entry) set(state State, next time.Time) {
	e.mu.Lock()
	e.state = state
	if !next.IsZero() {
		e.next = next
	}
	e.mu.Unlock()
}

func (e *entry) incr() int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count++
	return e.count
}

func (e *entry) info() TaskInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TaskInfo{
		ID:         e.task.ID(),
		Cadence:    e.task.Cadence(),
		Interval:   e.task.Interval(),
		Limit:      e.task.Limit(),
		Count:      e.count,
		Next:       e.next,
		State:      e.state,
		Generation: e.gen.seq,
		Spawned:    e.spawned,
	}
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Pool {
	cfg = cfg.withDefaults()
	log = log.With(logx.String("comp", "pool"))

	idle := make(chan struct{})
	close(idle)

	return &Pool{
		cfg:  cfg,
		gen:  newGeneration(1, cfg.Workers, cfg.Debug),
		log:  log,
		bus:  bus,
		sup:  rtsup.New(context.Background(), rtsup.WithLogger(log), rtsup.WithCancelOnError(false)),
		warn: logx.NewThrottle(warnThrottleEvery, 1),
		reg:  make(map[uint64][]*entry),
		idle: idle,
	}
}

// Rebuild installs a new generation of worker permits. Loops spawned before
// the call keep running on their original generation.
func (p *Pool) Rebuild(workers int, debug bool) error {
	if workers <= 0 {
		return fmt.Errorf("rebuild: %w", ErrInvalidWorkers)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	prev := p.gen
	p.cfg.Workers = workers
	p.cfg.Debug = debug
	p.gen = newGeneration(prev.seq+1, workers, debug)

	p.log.Info("pool rebuilt",
		logx.Uint64("generation", p.gen.seq),
		logx.Int("workers", workers),
		logx.Int("prev_workers", prev.workers),
		logx.Bool("debug", debug),
	)
	return nil
}

// Spawn registers t and starts its loop. It returns the task id.
//
// Spawn does not validate the cadence; a task with a malformed cadence or a
// non-positive interval ends in StateFailed without executing.
func (p *Pool) Spawn(t Task) (uint64, error) {
	if t == nil {
		return 0, ErrNilTask
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return 0, ErrStopped
	}

	ctx, cancel := context.WithCancel(p.sup.Context())
	e := &entry{
		task:    t,
		gen:     p.gen,
		tick:    p.cfg.Tick,
		ctx:     ctx,
		cancel:  cancel,
		spawned: time.Now(),
		state:   StateScheduled,
	}
	p.register(e)
	p.spawned.Add(1)
	p.publish(EventSpawned, e, TaskEvent{})

	id := t.ID()
	// Holding p.mu orders this Go call before any Stop that waits on the supervisor.
	p.sup.Go(fmt.Sprintf("task.%d", id), func(context.Context) error {
		p.run(e)
		return nil
	})
	return id, nil
}

// StopTask requests cancellation of every live loop registered under id.
// It returns as soon as the request is recorded; a loop observes it while
// sleeping or right after its in-flight execution.
func (p *Pool) StopTask(id uint64) error {
	p.regMu.Lock()
	entries := append([]*entry(nil), p.reg[id]...)
	p.regMu.Unlock()

	if len(entries) == 0 {
		return fmt.Errorf("stop task %d: %w", id, ErrTaskNotFound)
	}
	for _, e := range entries {
		e.cancel()
	}
	return nil
}

// Stop cancels every loop and waits for them to exit or for ctx to end.
// Spawn fails with ErrStopped afterwards.
func (p *Pool) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	already := p.stopped
	p.stopped = true
	p.mu.Unlock()

	if err := p.sup.Stop(ctx); err != nil {
		p.log.Warn("pool stop timed out", logx.Err(err))
		return err
	}
	if !already {
		p.log.Info("pool stopped", logx.Uint64("executed", p.executed.Load()))
	}
	return nil
}

// Wait blocks until no task loop is registered or ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.regMu.Lock()
	idle := p.idle
	p.regMu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len reports the number of live task loops.
func (p *Pool) Len() int {
	p.regMu.Lock()
	defer p.regMu.Unlock()
	return p.live
}

func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	cfg := p.cfg
	gen := p.gen
	p.mu.Unlock()

	p.regMu.Lock()
	tasks := make([]TaskInfo, 0, p.live)
	for _, entries := range p.reg {
		for _, e := range entries {
			tasks = append(tasks, e.info())
		}
	}
	p.regMu.Unlock()

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].ID != tasks[j].ID {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].Spawned.Before(tasks[j].Spawned)
	})

	return Snapshot{
		Workers:    cfg.Workers,
		Debug:      cfg.Debug,
		Tick:       cfg.Tick,
		Generation: gen.seq,
		InFlight:   len(gen.permits),
		Spawned:    p.spawned.Load(),
		Executed:   p.executed.Load(),
		Completed:  p.completed.Load(),
		Cancelled:  p.cancelled.Load(),
		Failed:     p.failed.Load(),
		Panics:     p.panics.Load(),
		Tasks:      tasks,
	}
}

func (p *Pool) register(e *entry) {
	id := e.task.ID()
	p.regMu.Lock()
	defer p.regMu.Unlock()
	if p.live == 0 {
		p.idle = make(chan struct{})
	}
	p.reg[id] = append(p.reg[id], e)
	p.live++
}

func (p *Pool) unregister(e *entry) {
	e.cancel()

	id := e.task.ID()
	p.regMu.Lock()
	defer p.regMu.Unlock()
	entries := p.reg[id]
	for i, cur := range entries {
		if cur == e {
			entries = append(entries[:i], entries[i+1:]...)
			p.live--
			break
		}
	}
	if len(entries) == 0 {
		delete(p.reg, id)
		p.warn.Forget(id)
	} else {
		p.reg[id] = entries
	}
	if p.live == 0 {
		close(p.idle)
	}
}

func (p *Pool) publish(typ string, e *entry, ev TaskEvent) {
	if p.bus == nil {
		return
	}
	ev.ID = e.task.ID()
	ev.Cadence = e.task.Cadence()
	p.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: ev})
}
