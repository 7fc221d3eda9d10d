package status

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grapetimer/internal/storage"
	"grapetimer/internal/task/engine"
	logx "grapetimer/pkg/logx"
	"grapetimer/pkg/timer"
)

type fakeSource struct{ snap timer.Snapshot }

func (f fakeSource) Snapshot() timer.Snapshot { return f.snap }

type fakeJournal struct{ recs []storage.RunRecord }

func (f fakeJournal) RecentRuns(_ context.Context, limit int) ([]storage.RunRecord, error) {
	return f.recs[:min(limit, len(f.recs))], nil
}

func testSource() fakeSource {
	return fakeSource{snap: timer.Snapshot{
		Workers:    3,
		Tick:       time.Second,
		Generation: 2,
		Executed:   7,
		Tasks: []timer.TaskInfo{
			{ID: 1, Cadence: "Day 03:00:00", State: engine.StateSleeping},
			{ID: 2, Interval: 30 * time.Second, Limit: 5, Count: 2, State: engine.StateExecuting},
		},
	}}
}

func get(t *testing.T, h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusReportsSnapshot(t *testing.T) {
	t.Parallel()

	svc := New(Config{Enabled: true}, testSource(), nil, logx.Nop())
	rec := get(t, svc.Handler(), "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
	}
	var v statusView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Workers != 3 || v.Generation != 2 || v.Executed != 7 || v.Tick != "1s" {
		t.Fatalf("status = %+v", v)
	}
	if len(v.Tasks) != 2 || v.Tasks[0].State != "sleeping" || v.Tasks[1].Interval != "30s" || v.Tasks[0].Interval != "" {
		t.Fatalf("tasks = %+v", v.Tasks)
	}
}

func TestRunsEndpoint(t *testing.T) {
	t.Parallel()

	journal := fakeJournal{recs: []storage.RunRecord{
		{RunID: "c", TaskID: 1, Event: timer.EventCompleted},
		{RunID: "b", TaskID: 1, Event: timer.EventExecuted},
		{RunID: "a", TaskID: 1, Event: timer.EventExecuted},
	}}

	cases := []struct {
		name    string
		journal Journal
		target  string
		code    int
		want    int
	}{
		{"default_limit", journal, "/runs", http.StatusOK, 3},
		{"limited", journal, "/runs?limit=2", http.StatusOK, 2},
		{"bad_limit", journal, "/runs?limit=zero", http.StatusBadRequest, 0},
		{"disabled", nil, "/runs", http.StatusNotFound, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := New(Config{Enabled: true}, testSource(), tc.journal, logx.Nop())
			rec := get(t, svc.Handler(), tc.target, nil)
			if rec.Code != tc.code {
				t.Fatalf("code = %d, want %d", rec.Code, tc.code)
			}
			if tc.code != http.StatusOK {
				return
			}
			var recs []storage.RunRecord
			if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
				t.Fatal(err)
			}
			if len(recs) != tc.want || recs[0].RunID != "c" {
				t.Fatalf("runs = %+v", recs)
			}
		})
	}
}

func TestTokenAuth(t *testing.T) {
	t.Parallel()

	h := New(Config{Enabled: true, Token: "s3cret"}, testSource(), nil, logx.Nop()).Handler()
	cases := []struct {
		name   string
		target string
		header http.Header
		code   int
	}{
		{"missing", "/healthz", nil, http.StatusUnauthorized},
		{"wrong_query", "/healthz?token=nope", nil, http.StatusUnauthorized},
		{"query", "/healthz?token=s3cret", nil, http.StatusOK},
		{"bearer", "/healthz", http.Header{"Authorization": {"Bearer s3cret"}}, http.StatusOK},
		{"wrong_bearer", "/healthz", http.Header{"Authorization": {"Bearer other"}}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if rec := get(t, h, tc.target, tc.header); rec.Code != tc.code {
				t.Fatalf("code = %d, want %d", rec.Code, tc.code)
			}
		})
	}
}

func TestPprofRoutesOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	off := New(Config{Enabled: true}, testSource(), nil, logx.Nop()).Handler()
	if rec := get(t, off, "/debug/pprof/", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof disabled: code = %d", rec.Code)
	}
	on := New(Config{Enabled: true, Pprof: true}, testSource(), nil, logx.Nop()).Handler()
	if rec := get(t, on, "/debug/pprof/", nil); rec.Code != http.StatusOK {
		t.Fatalf("pprof enabled: code = %d", rec.Code)
	}
}

func TestStartServesAndStops(t *testing.T) {
	t.Parallel()

	svc := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, testSource(), nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for svc.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server never bound")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := http.Get("http://" + svc.Addr() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer stopCancel()
	svc.Stop(stopCtx)
	if svc.Addr() != "" {
		t.Fatal("still bound after Stop")
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"127.0.0.1:6070": true,
		"localhost:80":   true,
		"[::1]:6070":     true,
		":6070":          false,
		"0.0.0.0:6070":   false,
		"10.0.0.2:6070":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackAddr(addr); got != want {
			t.Errorf("isLoopbackAddr(%q) = %v, want %v", addr, got, want)
		}
	}
}
