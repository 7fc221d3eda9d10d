// Package timer is the entry point for scheduling recurring work.
//
// A Scheduler owns a worker pool and an id generator. Work is registered
// either with a fixed interval (SpawnTicker) or with a temporal expression
// (SpawnDate):
//
//	Day 05:00:00        every day at 05:00:00
//	Week 1 06:30:00     every Monday at 06:30:00 (0 is Sunday)
//	Month 15 00:00:00   the 15th of every month at midnight
//
// Expressions are evaluated in local time. Each registration may carry an
// execution limit; zero runs until StopTicker is called.
//
//	s := timer.New(timer.DefaultConfig(), logx.Nop())
//	defer s.Close(context.Background())
//	id, err := s.SpawnDate("Day 05:00:00", 0, func(id uint64) { ... })
//
// Default returns a lazily built process-wide Scheduler for callers that do
// not want to pass one around.
package timer
