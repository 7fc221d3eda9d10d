// Package logx configures grapetimer's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured (the scheduler "debug log")
//   - Noisy per-task warnings rate limited (Throttle)
package logx
