package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ─── Mock Dependencies ──────────────────────────────────────────────

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Debug(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func (l *recordingLogger) counts() (warns, errs int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns), len(l.errs)
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestLoop_TicksUntilStopped(t *testing.T) {
	var ticks atomic.Int32
	loop := NewLoop("ticker", 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	}, nil)

	loop.Start()
	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	loop.Stop()
	loop.Wait()

	if ticks.Load() < 3 {
		t.Fatalf("ticks = %d, want at least 3", ticks.Load())
	}
	if loop.Running() {
		t.Error("Running() = true after Wait()")
	}

	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("loop kept ticking after Wait()")
	}
}

func TestLoop_StopAndWaitWithoutStart(t *testing.T) {
	loop := NewLoop("idle", time.Millisecond, func(context.Context) {}, nil)

	done := make(chan struct{})
	go func() {
		loop.Stop()
		loop.Wait()
		loop.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop/Wait on a never-started loop blocked")
	}
}

func TestLoop_DoubleStartIsLoggedNoop(t *testing.T) {
	logger := &recordingLogger{}
	var concurrent, maxConcurrent atomic.Int32
	loop := NewLoop("once", time.Millisecond, func(context.Context) {
		n := concurrent.Add(1)
		if n > maxConcurrent.Load() {
			maxConcurrent.Store(n)
		}
		time.Sleep(2 * time.Millisecond)
		concurrent.Add(-1)
	}, logger)

	loop.Start()
	loop.Start()
	time.Sleep(20 * time.Millisecond)
	loop.Stop()
	loop.Wait()

	if warns, _ := logger.counts(); warns != 1 {
		t.Errorf("warnings = %d, want 1", warns)
	}
	if maxConcurrent.Load() > 1 {
		t.Errorf("max concurrent ticks = %d, want 1", maxConcurrent.Load())
	}
}

func TestLoop_StopInterruptsLongTick(t *testing.T) {
	started := make(chan struct{})
	loop := NewLoop("slow", time.Hour, func(ctx context.Context) {
		close(started)
		Sleep(ctx, time.Hour)
	}, nil)

	loop.Start()
	<-started

	begin := time.Now()
	loop.Stop()
	loop.Wait()

	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("stop took %v, want prompt exit", elapsed)
	}
}

func TestLoop_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{}
	var ticks atomic.Int32
	loop := NewLoop("flaky", time.Millisecond, func(context.Context) {
		if ticks.Add(1) == 1 {
			panic("first tick")
		}
	}, logger)

	loop.Start()
	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	loop.Stop()
	loop.Wait()

	if ticks.Load() < 2 {
		t.Error("loop did not survive a panicking tick")
	}
	if _, errs := logger.counts(); errs != 1 {
		t.Errorf("errors = %d, want 1", errs)
	}
}

func TestLoop_Restart(t *testing.T) {
	var ticks atomic.Int32
	loop := NewLoop("again", time.Millisecond, func(context.Context) { ticks.Add(1) }, nil)

	loop.Start()
	loop.Stop()
	loop.Wait()
	before := ticks.Load()

	loop.Start()
	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() == before && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	loop.Stop()
	loop.Wait()

	if ticks.Load() == before {
		t.Error("restarted loop did not tick")
	}
}

func TestSleep(t *testing.T) {
	if !Sleep(context.Background(), time.Millisecond) {
		t.Error("Sleep() = false for an uncancelled context")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if Sleep(ctx, time.Hour) {
		t.Error("Sleep() = true for a cancelled context")
	}
}

func TestGroupOrder(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	record := func(s string) {
		mu.Lock()
		calls = append(calls, s)
		mu.Unlock()
	}

	runners := []Runner{
		&fakeRunner{name: "a", record: record},
		&fakeRunner{name: "b", record: record},
	}
	StartAll(runners)
	StopAll(runners)
	WaitAll(runners)

	want := []string{"start a", "start b", "stop a", "stop b", "wait a", "wait b"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

type fakeRunner struct {
	name   string
	record func(string)
}

func (f *fakeRunner) Name() string { return f.name }
func (f *fakeRunner) Start()       { f.record("start " + f.name) }
func (f *fakeRunner) Stop()        { f.record("stop " + f.name) }
func (f *fakeRunner) Wait()        { f.record("wait " + f.name) }
