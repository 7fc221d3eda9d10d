package engine

import (
	"time"
)

// Config controls the scheduling pool.
type Config struct {
	// Tick is the scheduling granularity. Cadence sleeps wake at least once
	// per Tick to re-check the wall clock against the computed fire time.
	Tick time.Duration

	// Workers bounds how many Execute calls of one generation may run at once.
	Workers int

	// Debug logs every computed sleep, run count and termination.
	Debug bool
}

const (
	defaultTick    = time.Second
	defaultWorkers = 4
)

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = defaultTick
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	return c
}

// Task is one unit of recurring work.
//
// A task with a non-empty Cadence fires at the instants its temporal
// expression describes and Interval is ignored. Otherwise it fires every
// Interval. Limit caps the number of executions; zero means unbounded.
type Task interface {
	ID() uint64
	Cadence() string
	Interval() time.Duration
	Limit() int32
	Execute(id uint64)
}

// FuncTask binds a closure to a cadence or interval.
type FuncTask struct {
	id      uint64
	cadence string
	limit   int32
	every   time.Duration
	fn      func(id uint64)
}

// NewFuncTask returns a closure-bound task. Pass an empty cadence to run every
// interval instead.
func NewFuncTask(cadence string, id uint64, limit int32, every time.Duration, fn func(id uint64)) *FuncTask {
	return &FuncTask{id: id, cadence: cadence, limit: limit, every: every, fn: fn}
}

func (t *FuncTask) ID() uint64              { return t.id }
func (t *FuncTask) Cadence() string         { return t.cadence }
func (t *FuncTask) Interval() time.Duration { return t.every }
func (t *FuncTask) Limit() int32            { return t.limit }

func (t *FuncTask) Execute(id uint64) {
	if t.fn != nil {
		t.fn(id)
	}
}

// State is the lifecycle state of a task loop.
type State int

const (
	StateScheduled State = iota
	StateSleeping
	StateExecuting
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateSleeping:
		return "sleeping"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Event types published on the bus.
const (
	EventSpawned   = "task.spawned"
	EventExecuted  = "task.executed"
	EventCompleted = "task.completed"
	EventCancelled = "task.cancelled"
	EventFailed    = "task.failed"
)

// TaskEvent is emitted on the event bus for task lifecycle events.
type TaskEvent struct {
	ID       uint64        `json:"id"`
	Cadence  string        `json:"cadence,omitempty"`
	Count    int32         `json:"count"`
	Next     time.Time     `json:"next,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// TaskInfo describes one live task loop.
type TaskInfo struct {
	ID         uint64
	Cadence    string
	Interval   time.Duration
	Limit      int32
	Count      int32
	Next       time.Time
	State      State
	Generation uint64
	Spawned    time.Time
}

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Workers    int
	Debug      bool
	Tick       time.Duration
	Generation uint64

	// Permits of the current generation held by running Execute calls.
	InFlight int

	Spawned   uint64
	Executed  uint64
	Completed uint64
	Cancelled uint64
	Failed    uint64
	Panics    uint64

	Tasks []TaskInfo
}
