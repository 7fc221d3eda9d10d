// Package storage keeps an optional journal of task runs.
//
// It never persists the schedule itself; a restarted daemon rebuilds its
// tasks from config. Drivers:
//   - file:   <path>.runs.jsonl (append-only JSON Lines)
//   - sqlite: a SQLite database file (modernc.org/sqlite, no cgo)
package storage
