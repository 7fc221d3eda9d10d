package timer

import (
	"time"

	"grapetimer/internal/eventbus"
	"grapetimer/internal/task/engine"
	"grapetimer/pkg/idgen"
)

// Config configures a Scheduler.
type Config struct {
	// Workers bounds concurrent executions (default 4).
	Workers int

	// Tick is the scheduling granularity (default 1s).
	Tick time.Duration

	// IDSeed is the first generated sequence id (default 1).
	IDSeed int64

	// IDMode picks sequence or timestamp ids.
	IDMode idgen.Mode

	// Debug makes task loops log sleeps, run counts and terminations.
	Debug bool

	// DebugLog, when set, adds a debug level file sink at this path.
	// It only applies when the Scheduler owns its logger.
	DebugLog string
}

// DefaultConfig mirrors the defaults of an uninitialised scheduler.
func DefaultConfig() Config {
	return Config{Workers: 4, Tick: time.Second, IDSeed: 1, IDMode: idgen.Sequence}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Tick <= 0 {
		c.Tick = d.Tick
	}
	if c.IDSeed == 0 {
		c.IDSeed = d.IDSeed
	}
	return c
}

// Re-export engine types so callers never import internal packages.
type Task = engine.Task

type FuncTask = engine.FuncTask

type Snapshot = engine.Snapshot

type TaskInfo = engine.TaskInfo

type TaskEvent = engine.TaskEvent

type State = engine.State

type Event = eventbus.Event

var NewFuncTask = engine.NewFuncTask

const (
	EventSpawned   = engine.EventSpawned
	EventExecuted  = engine.EventExecuted
	EventCompleted = engine.EventCompleted
	EventCancelled = engine.EventCancelled
	EventFailed    = engine.EventFailed
)
