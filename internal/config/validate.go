package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"grapetimer/pkg/idgen"
	"grapetimer/pkg/timeexpr"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// Storage drivers accepted by storage.driver.
const (
	DriverNone   = "none"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Validate reports every problem in cfg at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	sc := cfg.Scheduler
	if sc.Workers < 0 {
		errs = append(errs, fmt.Errorf("scheduler.workers: must be >= 0"))
	}
	if _, err := ParseDurationField("scheduler.tick", sc.Tick); err != nil {
		errs = append(errs, err)
	}
	if _, err := idgen.ParseMode(sc.IDMode); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.id_mode: %w", err))
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", DriverNone, DriverFile, DriverSQLite:
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}

	if h := cfg.HTTP; h != nil && h.Enabled && strings.TrimSpace(h.Addr) != "" {
		if _, _, err := net.SplitHostPort(strings.TrimSpace(h.Addr)); err != nil {
			errs = append(errs, fmt.Errorf("http.addr: %w", err))
		}
	}

	seen := make(map[string]int, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		if err := validateTask(t); err != nil {
			errs = append(errs, fmt.Errorf("tasks[%d]: %w", i, err))
		}
		name := strings.TrimSpace(t.Name)
		if prev, dup := seen[name]; dup && name != "" {
			errs = append(errs, fmt.Errorf("tasks[%d]: name %q already used by tasks[%d]", i, name, prev))
		}
		seen[name] = i
	}
	return errors.Join(errs...)
}

func validateTask(t TaskConfig) error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("name is required")
	}
	cadence := strings.TrimSpace(t.Cadence)
	interval := strings.TrimSpace(t.Interval)
	switch {
	case cadence != "" && interval != "":
		return fmt.Errorf("%s: set cadence or interval, not both", t.Name)
	case cadence != "":
		if _, err := timeexpr.Parse(cadence); err != nil {
			return fmt.Errorf("%s: cadence %q: %w", t.Name, cadence, err)
		}
	case interval != "":
		d, err := ParseDurationField(t.Name+".interval", interval)
		if err != nil {
			return err
		}
		if d == 0 {
			return fmt.Errorf("%s: interval must be > 0", t.Name)
		}
	default:
		return fmt.Errorf("%s: cadence or interval is required", t.Name)
	}
	if t.LoopCount < 0 {
		return fmt.Errorf("%s: loop_count must be >= 0", t.Name)
	}
	hasCmd := strings.TrimSpace(t.Command) != ""
	hasLog := strings.TrimSpace(t.Log) != ""
	if hasCmd == hasLog {
		return fmt.Errorf("%s: set exactly one of command or log", t.Name)
	}
	if _, err := ParseDurationField(t.Name+".timeout", t.Timeout); err != nil {
		return err
	}
	return nil
}
