package process

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// lineRecorder collects OnLine output.
type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lines)
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{Name: "test-proc", Binary: "/bin/true"})

	if m.config.RestartDelay != time.Second {
		t.Errorf("RestartDelay = %v, want 1s", m.config.RestartDelay)
	}
	if m.config.MaxRestartDelay != time.Second {
		t.Errorf("MaxRestartDelay = %v, want it raised to RestartDelay", m.config.MaxRestartDelay)
	}
	if m.config.GracefulTimeout != 5*time.Second {
		t.Errorf("GracefulTimeout = %v, want 5s", m.config.GracefulTimeout)
	}
}

func TestDefaultConfig_Function(t *testing.T) {
	cfg := DefaultConfig("journal", "journalctl", []string{"-f"})

	if !cfg.RestartOnFailure {
		t.Error("RestartOnFailure = false, want true")
	}
	if cfg.MaxRestartDelay != time.Minute {
		t.Errorf("MaxRestartDelay = %v, want 1m", cfg.MaxRestartDelay)
	}
	if cfg.MaxRestartAttempts != 0 {
		t.Errorf("MaxRestartAttempts = %d, want unlimited", cfg.MaxRestartAttempts)
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffDelay(time.Second, 10*time.Second, tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(attempt %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestManager_InitialState(t *testing.T) {
	m := NewManager(Config{Name: "test", Binary: "/bin/true"})

	if got := m.Stats(); got != (Stats{Name: "test", Status: StatusStopped}) {
		t.Errorf("initial Stats() = %+v", got)
	}
	if m.Done() != nil {
		t.Error("Done() before Start should be nil")
	}
	// Stopping a manager that never started is a no-op.
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestManager_StreamsLinesAndStops(t *testing.T) {
	rec := &lineRecorder{}
	m := NewManager(Config{
		Name:            "lines",
		Binary:          "/bin/sh",
		Args:            []string{"-c", "echo first; echo second; exec sleep 60"},
		GracefulTimeout: 2 * time.Second,
		OnLine:          rec.add,
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitUntil(t, "two lines", func() bool { return len(rec.snapshot()) == 2 })

	if st := m.Stats(); st.Status != StatusRunning || st.PID == 0 {
		t.Errorf("not running after Start: %+v", st)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if st := m.Stats(); st.Status != StatusStopped || st.PID != 0 {
		t.Errorf("Stats() after Stop = %+v", st)
	}
	if got := rec.snapshot(); !slices.Equal(got, []string{"first", "second"}) {
		t.Errorf("lines = %v", got)
	}
}

func TestManager_RestartsAfterExit(t *testing.T) {
	rec := &lineRecorder{}
	m := NewManager(Config{
		Name:             "flaky",
		Binary:           "/bin/sh",
		Args:             []string{"-c", "echo tick"},
		RestartOnFailure: true,
		RestartDelay:     10 * time.Millisecond,
		OnLine:           rec.add,
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitUntil(t, "restarts", func() bool { return m.Stats().RestartCount >= 2 })
	m.Stop()

	if len(rec.snapshot()) < 2 {
		t.Errorf("lines = %v, want output from several runs", rec.snapshot())
	}
	if st := m.Stats(); !strings.Contains(st.LastError, ErrExited.Error()) {
		t.Errorf("LastError = %q, want %q", st.LastError, ErrExited)
	}
}

func TestManager_MaxRestartAttempts(t *testing.T) {
	m := NewManager(Config{
		Name:               "fails",
		Binary:             "/bin/false",
		RestartOnFailure:   true,
		RestartDelay:       time.Millisecond,
		MaxRestartAttempts: 2,
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("supervision did not give up")
	}
	if st := m.Stats(); st.Status != StatusFailed {
		t.Errorf("Stats().Status = %q, want failed", st.Status)
	}
}

func TestManager_StartWithInvalidBinary(t *testing.T) {
	var stopped bool
	m := NewManager(Config{
		Name:   "missing",
		Binary: "/nonexistent/binary",
		OnStop: func(error) { stopped = true },
	})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error for missing binary")
	}
	if st := m.Stats(); st.Status != StatusFailed {
		t.Errorf("Stats().Status = %q, want failed", st.Status)
	}
	if stopped {
		t.Error("OnStop called for a process that never started")
	}
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestManager_OnStartCallback(t *testing.T) {
	started := make(chan struct{}, 1)
	m := NewManager(Config{
		Name:    "cb",
		Binary:  "/bin/sleep",
		Args:    []string{"60"},
		OnStart: func() { started <- struct{}{} },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer m.Stop()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Error("OnStart not called")
	}
}
