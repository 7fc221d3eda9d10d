package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"grapetimer/internal/app"
	logx "grapetimer/pkg/logx"
	"grapetimer/pkg/systemd"
	"grapetimer/pkg/timeexpr"
)

var runFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "path to the config file (yaml or json)",
		Value:  "./grapetimer.yaml",
		EnvVar: "GRAPETIMER_CONFIG",
	},
}

var nextFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "utc",
		Usage: "evaluate the cadence in UTC instead of local time",
	},
	cli.IntFlag{
		Name:  "count, n",
		Usage: "number of upcoming fire times to print",
		Value: 1,
	},
}

func newCLI(out io.Writer) *cli.App {
	a := cli.NewApp()
	a.Name = "grapetimer"
	a.HelpName = "grapetimer"
	a.Usage = "a coarse-grained recurring task scheduler"
	a.UsageText = "grapetimer <command> [arguments...]"
	a.Version = version
	a.Writer = out
	a.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run the scheduler daemon with the tasks from a config file",
			Flags:  runFlags,
			Action: runDaemon,
		},
		{
			Name:      "next",
			Usage:     "print the next fire times of a cadence",
			UsageText: `grapetimer next [--utc] [--count N] "Week 1 08:00:00"`,
			Flags:     nextFlags,
			Action:    printNext,
		},
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "prints the build version",
			Action:  printVersion,
		},
	}
	return a
}

func runDaemon(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	d, err := app.New(c.String("config"))
	if err != nil {
		// No config means no logging service yet.
		logx.NewConsole("info").Error("startup failed", logx.String("config", c.String("config")), logx.Err(err))
		return cli.NewExitError("", 1)
	}
	if err := d.Start(ctx); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = d.Stop(stopCtx)
		return err
	}
	_, _ = systemd.Ready()
	_, _ = systemd.Status("%d tasks scheduled", len(d.Scheduler().Snapshot().Tasks))

	if every := systemd.WatchdogInterval(); every > 0 {
		go func() {
			t := time.NewTicker(every / 2)
			defer t.Stop()
			for {
				select {
				case <-d.Done():
					return
				case <-t.C:
					_, _ = systemd.Watchdog()
				}
			}
		}()
	}

	<-d.Done()
	_, _ = systemd.Stopping()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return err
	}
	if err := d.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printNext(c *cli.Context) error {
	raw := strings.TrimSpace(strings.Join(c.Args(), " "))
	if raw == "" {
		return cli.NewExitError("a cadence is required, e.g. \"Day 05:00:00\"", 2)
	}
	expr, err := timeexpr.Parse(raw)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("%q: %v", raw, err), 2)
	}

	tz := timeexpr.Local
	if c.Bool("utc") {
		tz = timeexpr.UTC
	}
	n := c.Int("count")
	if n <= 0 {
		n = 1
	}

	now := time.Now()
	if _, err := timeexpr.Next(expr, now, tz); err != nil {
		return cli.NewExitError(fmt.Sprintf("%s: %v", expr, err), 1)
	}
	next := timeexpr.Preview(timeexpr.Schedule(expr, tz), now, n)

	w := c.App.Writer
	for _, t := range next {
		fmt.Fprintln(w, t.Format(time.RFC3339))
	}
	if len(next) < n {
		fmt.Fprintf(w, "# stopped after %d: %s has no later occurrence\n", len(next), expr)
	}
	return nil
}

func printVersion(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "grapetimer %s (commit %s, built %s, %s/%s)\n", version, commit, date, runtime.GOOS, runtime.GOARCH)
	return nil
}
