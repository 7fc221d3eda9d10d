package config

// Config is the daemon configuration file.
//
// Example (YAML):
//
//	scheduler: { workers: 4, tick: "1s", id_seed: 1, id_mode: sequence }
//	logging:   { level: info, console: true }
//	storage:   { driver: sqlite, path: "./grapetimer_runs.db" }
//	http:      { enabled: true, addr: "127.0.0.1:6070", pprof: true }
//	tasks:
//	  - { name: backup, cadence: "Day 03:00:00", command: "tar czf /tmp/b.tgz /srv" }
//	  - { name: heartbeat, interval: "30s", log: "still alive" }
type Config struct {
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	HTTP      *HTTPConfig     `json:"http,omitempty"`
	Tasks     []TaskConfig    `json:"tasks,omitempty"`
}

// SchedulerConfig maps onto timer.Config.
//
// Defaults (when fields are omitted/zero):
//   - workers: 4
//   - tick: "1s"
//   - id_seed: 1
//   - id_mode: sequence
type SchedulerConfig struct {
	Workers int `json:"workers,omitempty"`
	// Tick is a Go duration string (e.g. "1s", "500ms").
	Tick     string `json:"tick,omitempty"`
	IDSeed   int64  `json:"id_seed,omitempty"`
	IDMode   string `json:"id_mode,omitempty"` // sequence | timestamp
	Debug    bool   `json:"debug,omitempty"`
	DebugLog string `json:"debug_log,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional run journal.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./grapetimer_runs" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HTTPConfig controls the optional status server (/healthz, /status, /runs
// and, with Pprof, /debug/pprof/).
//
// Binding to a non-loopback address requires Token or AllowInsecure.
type HTTPConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"` // default 127.0.0.1:6070
	Token         string `json:"token,omitempty"`
	AllowInsecure bool   `json:"allow_insecure,omitempty"`
	Pprof         bool   `json:"pprof,omitempty"`
}

// TaskConfig declares one recurring task.
//
// Exactly one of Cadence and Interval must be set, and exactly one of
// Command and Log.
type TaskConfig struct {
	Name string `json:"name"`
	// ID pins the task id. Zero draws one from the id generator.
	ID uint64 `json:"id,omitempty"`

	Cadence  string `json:"cadence,omitempty"`  // "Day 03:00:00", "Week 1 08:00:00", "Month 1 00:00:00"
	Interval string `json:"interval,omitempty"` // Go duration string

	LoopCount int32 `json:"loop_count,omitempty"`

	// Command runs through the shell. Timeout bounds one run (Go duration string).
	Command string `json:"command,omitempty"`
	Timeout string `json:"timeout,omitempty"`

	// Log writes a fixed line at info level instead of running a command.
	Log string `json:"log,omitempty"`
}
