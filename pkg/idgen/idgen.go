// Package idgen generates task identifiers.
//
// Two strategies are available:
//   - Sequence: a monotonically increasing counter seeded with SetSeed.
//   - Timestamp: Unix seconds * 100 plus a rolling sub-counter in [1, 99).
//
// Timestamp ids are NOT unique across processes, and within one process they
// collide as soon as more than 98 ids are requested in the same second. Use
// Sequence whenever uniqueness matters.
package idgen

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Mode selects the id generation strategy.
type Mode int

const (
	Sequence Mode = iota
	Timestamp
)

func (m Mode) String() string {
	if m == Timestamp {
		return "timestamp"
	}
	return "sequence"
}

// ParseMode parses a config value ("sequence", "timestamp"; empty means sequence).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequence", "seq":
		return Sequence, nil
	case "timestamp", "ts":
		return Timestamp, nil
	default:
		return Sequence, fmt.Errorf("unknown id mode %q (use sequence or timestamp)", s)
	}
}

const subMax = 99

// Generator is a lock-free id source. The zero value starts its sequence at 0;
// use New or SetSeed to pick a different start.
type Generator struct {
	seq atomic.Int64
	sub atomic.Int32

	now func() time.Time
}

// New returns a generator whose first sequence id is seed.
func New(seed int64) *Generator {
	g := &Generator{}
	g.SetSeed(seed)
	return g
}

// SetSeed resets the sequence so the next NextSequence call returns seed.
func (g *Generator) SetSeed(seed int64) {
	g.seq.Store(seed)
}

// NextSequence returns the current counter value and advances it.
func (g *Generator) NextSequence() int64 {
	return g.seq.Add(1) - 1
}

// NextTimestamp returns unixSeconds*100 + sub, where sub cycles through 1..98.
func (g *Generator) NextTimestamp() int64 {
	var sub int32
	for {
		cur := g.sub.Load()
		sub = cur + 1
		if sub >= subMax || sub < 1 {
			sub = 1
		}
		if g.sub.CompareAndSwap(cur, sub) {
			break
		}
	}
	now := time.Now
	if g.now != nil {
		now = g.now
	}
	return now().Unix()*100 + int64(sub)
}

// Next returns an id using the given mode.
func (g *Generator) Next(mode Mode) int64 {
	if mode == Timestamp {
		return g.NextTimestamp()
	}
	return g.NextSequence()
}

var std = New(1)

// Default returns the process-wide generator.
func Default() *Generator { return std }

// SetSeed reseeds the process-wide generator.
func SetSeed(seed int64) { std.SetSeed(seed) }

// NextSequenceID returns the next id from the process-wide sequence.
func NextSequenceID() int64 { return std.NextSequence() }

// NextTimestampID returns the next timestamp id from the process-wide generator.
func NextTimestampID() int64 { return std.NextTimestamp() }
