package app

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"grapetimer/internal/config"
	logx "grapetimer/pkg/logx"
)

// maxOutputLog caps how much command output lands in one log line.
const maxOutputLog = 2048

// CommandTask is a task declared in the config file. It either runs a shell
// command or writes a fixed log line.
type CommandTask struct {
	id      uint64
	name    string
	cadence string
	every   time.Duration
	limit   int32

	command string
	timeout time.Duration
	line    string

	ctx context.Context // cancels in-flight commands on shutdown
	log logx.Logger
}

func newCommandTask(ctx context.Context, id uint64, tc config.TaskConfig, log logx.Logger) (*CommandTask, error) {
	every, err := config.ParseDurationField(tc.Name+".interval", tc.Interval)
	if err != nil {
		return nil, err
	}
	timeout, err := config.ParseDurationField(tc.Name+".timeout", tc.Timeout)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(tc.Name)
	return &CommandTask{
		id:      id,
		name:    name,
		cadence: strings.TrimSpace(tc.Cadence),
		every:   every,
		limit:   tc.LoopCount,
		command: strings.TrimSpace(tc.Command),
		timeout: timeout,
		line:    tc.Log,
		ctx:     ctx,
		log:     log.With(logx.String("task", name), logx.Uint64("task_id", id)),
	}, nil
}

func (t *CommandTask) ID() uint64              { return t.id }
func (t *CommandTask) Name() string            { return t.name }
func (t *CommandTask) Cadence() string         { return t.cadence }
func (t *CommandTask) Interval() time.Duration { return t.every }
func (t *CommandTask) Limit() int32            { return t.limit }

func (t *CommandTask) Execute(id uint64) {
	if t.command == "" {
		t.log.Info(t.line)
		return
	}

	ctx := t.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := shellCommand(ctx, t.command).CombinedOutput()
	fields := []logx.Field{
		logx.Duration("took", time.Since(start)),
		logx.String("output", truncate(strings.TrimSpace(string(out)), maxOutputLog)),
	}
	if err != nil {
		t.log.Warn("task command failed", append(fields, logx.Err(err))...)
		return
	}
	t.log.Info("task command finished", fields...)
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "/bin/sh", "-c", command)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
