package engine

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	logx "grapetimer/pkg/logx"
	"grapetimer/pkg/timeexpr"
)

// run is the loop owning e. It exits on the first terminal state.
func (p *Pool) run(e *entry) {
	defer p.unregister(e)

	t := e.task
	id := t.ID()
	log := p.log.With(logx.Uint64("task", id))

	for {
		now := time.Now()
		next, err := nextFire(t, now)
		if err != nil {
			p.finish(e, log, StateFailed, 0, err)
			return
		}
		e.set(StateSleeping, next)
		if e.gen.debug {
			log.Debug("task sleeping", logx.Duration("wait", next.Sub(now)), logx.Time("next", next))
		}

		if !sleepUntil(e, next) {
			p.finish(e, log, StateCancelled, e.info().Count, nil)
			return
		}

		if err := e.gen.acquire(e.ctx); err != nil {
			p.finish(e, log, StateCancelled, e.info().Count, nil)
			return
		}
		e.set(StateExecuting, time.Time{})
		started := time.Now()
		execErr := p.execute(e, log)
		e.gen.release()

		count := e.incr()
		p.executed.Add(1)
		ev := TaskEvent{Count: count, Duration: time.Since(started)}
		if execErr != nil {
			ev.Error = execErr.Error()
		}
		p.publish(EventExecuted, e, ev)
		if e.gen.debug {
			log.Debug("task run", logx.Int32("count", count))
		}

		if e.ctx.Err() != nil {
			p.finish(e, log, StateCancelled, count, nil)
			return
		}
		if limit := t.Limit(); limit > 0 && count >= limit {
			p.finish(e, log, StateCompleted, count, nil)
			return
		}
	}
}

// nextFire returns the next instant t should execute after now.
func nextFire(t Task, now time.Time) (time.Time, error) {
	if cadence := strings.TrimSpace(t.Cadence()); cadence != "" {
		return timeexpr.ParseNext(cadence, now, timeexpr.Local)
	}
	every := t.Interval()
	if every <= 0 {
		return time.Time{}, errNoCadence
	}
	return now.Add(every), nil
}

// sleepUntil waits for the fire time in slices of at most e.tick so a wall
// clock adjustment is noticed. It reports false when e is cancelled first.
func sleepUntil(e *entry, until time.Time) bool {
	for {
		wait := time.Until(until)
		if wait <= 0 {
			return e.ctx.Err() == nil
		}
		if wait > e.tick {
			wait = e.tick
		}
		timer := time.NewTimer(wait)
		select {
		case <-e.ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (p *Pool) execute(e *entry, log logx.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			err = fmt.Errorf("panic: %v", r)
			if p.warn.Allow(e.task.ID()) {
				log.Error("task panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			}
		}
	}()
	e.task.Execute(e.task.ID())
	return nil
}

func (p *Pool) finish(e *entry, log logx.Logger, state State, count int32, err error) {
	e.set(state, time.Time{})

	ev := TaskEvent{Count: count}
	if err != nil {
		ev.Error = err.Error()
	}

	switch state {
	case StateFailed:
		p.failed.Add(1)
		p.publish(EventFailed, e, ev)
		if p.warn.Allow(e.task.ID()) {
			log.Warn("task failed", logx.String("cadence", e.task.Cadence()), logx.Duration("interval", e.task.Interval()), logx.Err(err))
		}
	case StateCompleted:
		p.completed.Add(1)
		p.publish(EventCompleted, e, ev)
		if e.gen.debug {
			log.Debug("task finished", logx.Int32("count", count))
		}
	case StateCancelled:
		p.cancelled.Add(1)
		p.publish(EventCancelled, e, ev)
		if e.gen.debug {
			log.Debug("task stopped", logx.Int32("count", count))
		}
	}
}
