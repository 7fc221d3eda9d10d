package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"grapetimer/internal/eventbus"
	"grapetimer/internal/task/engine"
	logx "grapetimer/pkg/logx"
)

// Recorder journals task lifecycle events from the bus into a Store.
type Recorder struct {
	store Store
	log   logx.Logger

	events <-chan eventbus.Event
	unsub  func()

	// Name resolves a task id to its configured name. Optional.
	Name func(id uint64) string
}

// NewRecorder subscribes to bus right away so no event published after it
// returns is missed.
func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	r := &Recorder{store: store, log: log.With(logx.String("comp", "recorder")), unsub: func() {}}
	if store != nil && bus != nil {
		r.events, r.unsub = bus.Subscribe(256)
	}
	return r
}

// Run consumes events until ctx ends. Spawn events are not journaled.
func (r *Recorder) Run(ctx context.Context) error {
	defer r.unsub()
	if r.events == nil {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			rec, ok := r.record(ev)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := r.store.AppendRun(wctx, rec)
			cancel()
			if err != nil {
				r.log.Warn("run journal append failed", logx.Uint64("task", rec.TaskID), logx.Err(err))
			}
		}
	}
}

func (r *Recorder) record(ev eventbus.Event) (RunRecord, bool) {
	switch ev.Type {
	case engine.EventExecuted, engine.EventCompleted, engine.EventCancelled, engine.EventFailed:
	default:
		return RunRecord{}, false
	}
	te, ok := ev.Data.(engine.TaskEvent)
	if !ok {
		return RunRecord{}, false
	}
	rec := RunRecord{
		RunID:      uuid.NewString(),
		TaskID:     te.ID,
		Event:      ev.Type,
		Cadence:    te.Cadence,
		Count:      te.Count,
		At:         ev.Time,
		DurationMS: te.Duration.Milliseconds(),
		Error:      te.Error,
	}
	if r.Name != nil {
		rec.Name = r.Name(te.ID)
	}
	return rec, true
}
