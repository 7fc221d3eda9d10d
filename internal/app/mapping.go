package app

import (
	"strings"
	"time"

	"grapetimer/internal/config"
	"grapetimer/internal/observability/status"
	"grapetimer/internal/storage"
	"grapetimer/pkg/idgen"
	logx "grapetimer/pkg/logx"
	"grapetimer/pkg/timer"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapSchedulerConfig(cfg *config.Config) (timer.Config, error) {
	sc := cfg.Scheduler
	tick, err := config.ParseDurationOrDefault("scheduler.tick", sc.Tick, time.Second)
	if err != nil {
		return timer.Config{}, err
	}
	mode, err := idgen.ParseMode(sc.IDMode)
	if err != nil {
		return timer.Config{}, err
	}
	return timer.Config{
		Workers:  sc.Workers,
		Tick:     tick,
		IDSeed:   sc.IDSeed,
		IDMode:   mode,
		Debug:    sc.Debug,
		DebugLog: sc.DebugLog,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == config.DriverNone {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		path = "./grapetimer_runs"
		if driver == config.DriverSQLite {
			path += ".db"
		}
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 2*time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
}

func mapHTTPConfig(cfg *config.Config) status.Config {
	if cfg == nil || cfg.HTTP == nil {
		return status.Config{}
	}
	h := cfg.HTTP
	addr := strings.TrimSpace(h.Addr)
	if addr == "" {
		addr = status.DefaultAddr
	}
	return status.Config{
		Enabled:       h.Enabled,
		Addr:          addr,
		Token:         strings.TrimSpace(h.Token),
		AllowInsecure: h.AllowInsecure,
		Pprof:         h.Pprof,
	}
}
