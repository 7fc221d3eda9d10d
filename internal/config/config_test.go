package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
scheduler:
  workers: 3
  tick: "500ms"
  id_seed: 10
  id_mode: timestamp
logging:
  level: debug
  console: true
storage:
  driver: file
  path: ./runs
tasks:
  - name: backup
    cadence: "Day 03:00:00"
    command: "echo backup"
    timeout: "1m"
  - name: heartbeat
    interval: "30s"
    loop_count: 5
    log: "still alive"
`

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	cfg, err := Decode("grapetimer.yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Scheduler.Workers != 3 || cfg.Scheduler.IDSeed != 10 || cfg.Scheduler.IDMode != "timestamp" {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if len(cfg.Tasks) != 2 || cfg.Tasks[1].LoopCount != 5 {
		t.Fatalf("tasks = %+v", cfg.Tasks)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, path, body string
	}{
		{"yaml", "c.yaml", "scheduler:\n  threads: 4\n"},
		{"json", "c.json", `{"scheduler":{"threads":4}}`},
		{"trailing_json", "c.json", `{"scheduler":{}}{"tasks":[]}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Decode(tc.path, []byte(tc.body)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	ok := TaskConfig{Name: "a", Interval: "1s", Log: "x"}
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad_mode", func(c *Config) { c.Scheduler.IDMode = "random" }, "id_mode"},
		{"bad_tick", func(c *Config) { c.Scheduler.Tick = "soon" }, "scheduler.tick"},
		{"bad_driver", func(c *Config) { c.Storage = &StorageConfig{Driver: "redis"} }, "storage.driver"},
		{"no_name", func(c *Config) { c.Tasks[0].Name = "" }, "name is required"},
		{"dup_name", func(c *Config) { c.Tasks = append(c.Tasks, ok) }, "already used"},
		{"both_cadences", func(c *Config) { c.Tasks[0].Cadence = "Day 01:00:00" }, "not both"},
		{"no_cadence", func(c *Config) { c.Tasks[0].Interval = "" }, "required"},
		{"bad_cadence", func(c *Config) { c.Tasks[0].Interval = ""; c.Tasks[0].Cadence = "Hour 1" }, "cadence"},
		{"zero_interval", func(c *Config) { c.Tasks[0].Interval = "0s" }, "> 0"},
		{"two_actions", func(c *Config) { c.Tasks[0].Command = "true" }, "exactly one"},
		{"bad_http_addr", func(c *Config) { c.HTTP = &HTTPConfig{Enabled: true, Addr: "6070"} }, "http.addr"},
		{"negative_loop", func(c *Config) { c.Tasks[0].LoopCount = -1 }, "loop_count"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Tasks: []TaskConfig{ok}}
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestDiffTasks(t *testing.T) {
	t.Parallel()

	oldTasks := []TaskConfig{
		{Name: "keep", Interval: "1s", Log: "k"},
		{Name: "edit", Interval: "1s", Log: "e"},
		{Name: "drop", Interval: "1s", Log: "d"},
	}
	newTasks := []TaskConfig{
		{Name: "keep", Interval: "1s", Log: "k"},
		{Name: "edit", Interval: "2s", Log: "e"},
		{Name: "new", Cadence: "Day 01:00:00", Log: "n"},
	}
	d := DiffTasks(oldTasks, newTasks)
	if len(d.Added) != 1 || d.Added[0].Name != "new" {
		t.Fatalf("added = %+v", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0].Name != "drop" {
		t.Fatalf("removed = %+v", d.Removed)
	}
	if len(d.Changed) != 1 || d.Changed[0].Interval != "2s" {
		t.Fatalf("changed = %+v", d.Changed)
	}
	if !DiffTasks(oldTasks, oldTasks).Empty() {
		t.Fatal("identical lists produced a diff")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	a := &Config{Scheduler: SchedulerConfig{Workers: 2}}
	b := &Config{Scheduler: SchedulerConfig{Workers: 4}, Tasks: []TaskConfig{{Name: "x"}}}
	changed, attrs := SummarizeConfigChange(a, b)
	if strings.Join(changed, ",") != "scheduler,tasks" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("no attrs")
	}
}

func TestManagerLoadAndWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "grapetimer.json")
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(`{"scheduler":{"workers":1}}`)

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.Workers != 1 || m.Get() != cfg {
		t.Fatalf("loaded = %+v", cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := m.Subscribe(1)
	defer m.Unsubscribe(updates)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register the directory before writing.
	time.Sleep(100 * time.Millisecond)
	write(`{"scheduler":{"workers":6}}`)

	select {
	case got := <-updates:
		if got.Scheduler.Workers != 6 {
			t.Fatalf("reloaded workers = %d", got.Scheduler.Workers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}

	cancel()
	<-done
}

func TestManagerLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "grapetimer.yml")
	if err := os.WriteFile(path, []byte("tasks:\n  - name: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfigManager(path).Load(); err == nil {
		t.Fatal("expected validation error")
	}
}
