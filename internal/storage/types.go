package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RunRecord is one journal line: an execution or a terminal transition of a
// task loop.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	TaskID     uint64    `json:"task_id"`
	Name       string    `json:"name,omitempty"`
	Event      string    `json:"event"`
	Cadence    string    `json:"cadence,omitempty"`
	Count      int32     `json:"count"`
	At         time.Time `json:"at"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Store is the run journal API.
type Store interface {
	AppendRun(ctx context.Context, r RunRecord) error
	// RecentRuns returns up to limit records, newest first.
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}
