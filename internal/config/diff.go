package config

import (
	"reflect"
	"sort"
	"strings"

	logx "grapetimer/pkg/logx"
)

// TaskDiff is the result of comparing two task lists by name.
type TaskDiff struct {
	Added   []TaskConfig
	Removed []TaskConfig
	Changed []TaskConfig // new definitions of tasks present in both lists
}

func (d TaskDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffTasks compares oldTasks and newTasks by trimmed name. Output slices are
// sorted by name.
func DiffTasks(oldTasks, newTasks []TaskConfig) TaskDiff {
	prev := make(map[string]TaskConfig, len(oldTasks))
	for _, t := range oldTasks {
		prev[strings.TrimSpace(t.Name)] = t
	}

	var d TaskDiff
	next := make(map[string]struct{}, len(newTasks))
	for _, t := range newTasks {
		name := strings.TrimSpace(t.Name)
		next[name] = struct{}{}
		old, ok := prev[name]
		switch {
		case !ok:
			d.Added = append(d.Added, t)
		case !reflect.DeepEqual(old, t):
			d.Changed = append(d.Changed, t)
		}
	}
	for name, t := range prev {
		if _, ok := next[name]; !ok {
			d.Removed = append(d.Removed, t)
		}
	}

	byName := func(s []TaskConfig) {
		sort.Slice(s, func(i, j int) bool { return s[i].Name < s[j].Name })
	}
	byName(d.Added)
	byName(d.Removed)
	byName(d.Changed)
	return d
}

// SummarizeConfigChange returns the changed sections and structured attrs
// suitable for one reload log line.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Int("scheduler.workers", newCfg.Scheduler.Workers),
			logx.Bool("scheduler.debug", newCfg.Scheduler.Debug),
			logx.String("scheduler.tick", newCfg.Scheduler.Tick),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	var oldSt, newSt StorageConfig
	if oldCfg.Storage != nil {
		oldSt = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		newSt = *newCfg.Storage
	}
	if oldSt != newSt {
		changed = append(changed, "storage")
		attrs = append(attrs, logx.String("storage.driver", newSt.Driver))
	}

	var oldHTTP, newHTTP HTTPConfig
	if oldCfg.HTTP != nil {
		oldHTTP = *oldCfg.HTTP
	}
	if newCfg.HTTP != nil {
		newHTTP = *newCfg.HTTP
	}
	if oldHTTP != newHTTP {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", newHTTP.Enabled),
			logx.String("http.addr", newHTTP.Addr),
		)
	}

	if d := DiffTasks(oldCfg.Tasks, newCfg.Tasks); !d.Empty() {
		changed = append(changed, "tasks")
		attrs = append(attrs,
			logx.Int("tasks.added", len(d.Added)),
			logx.Int("tasks.removed", len(d.Removed)),
			logx.Int("tasks.changed", len(d.Changed)),
		)
	}
	return changed, attrs
}
