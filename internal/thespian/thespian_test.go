package thespian

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ─── Mock Dependencies ──────────────────────────────────────────────

// fakeRunner records programs and blocks each one until released.
type fakeRunner struct {
	mu       sync.Mutex
	programs []string
	states   []map[string]any
	active   int
	maxSeen  int
	release  chan struct{}
	err      error
	panics   bool
}

func (r *fakeRunner) Run(ctx context.Context, program string, state map[string]any) error {
	r.mu.Lock()
	r.programs = append(r.programs, program)
	r.states = append(r.states, state)
	r.active++
	r.maxSeen = max(r.maxSeen, r.active)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if r.panics {
		panic("program exploded")
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.err
}

func (r *fakeRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.programs)
}

type fixedState map[string]any

func (s fixedState) Snapshot() map[string]any { return s }

func testConfig() config.ThespianConfig {
	return config.ThespianConfig{
		QueueCapacity: 3,
		PollInterval:  2 * time.Millisecond,
		ActTimeout:    time.Second,
	}
}

func act(program string) *brain.Act {
	return brain.NewAct(program, brain.Normal, program, nil)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestAdd_DropsWhenFull(t *testing.T) {
	th := New(testConfig(), &fakeRunner{}, nil, nil)

	for i, p := range []string{"a", "b", "c", "d"} {
		if got, want := th.Add(act(p)), i < 3; got != want {
			t.Errorf("Add(%s) = %v, want %v", p, got, want)
		}
	}
	if th.Pending() != 3 {
		t.Errorf("Pending() = %d, want 3", th.Pending())
	}
}

func TestPerformsOneAtATimeInOrder(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	th := New(testConfig(), r, nil, nil)
	th.Add(act("first"))
	th.Add(act("second"))

	th.Start()
	waitFor(t, "first act", func() bool { return len(r.ran()) == 1 })

	// The second act must not start while the first is running.
	time.Sleep(20 * time.Millisecond)
	if got := r.ran(); len(got) != 1 {
		t.Fatalf("ran %v while first act still running", got)
	}
	if !th.Busy() {
		t.Error("Busy() = false during a performance")
	}

	r.release <- struct{}{}
	waitFor(t, "second act", func() bool { return len(r.ran()) == 2 })
	r.release <- struct{}{}

	th.Stop()
	th.Wait()

	if got := r.ran(); !slices.Equal(got, []string{"first", "second"}) {
		t.Errorf("ran %v", got)
	}
	if r.maxSeen != 1 {
		t.Errorf("max concurrent performances = %d, want 1", r.maxSeen)
	}
}

func TestFailuresDoNotStopScheduler(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
	}{
		{"error", &fakeRunner{err: errors.New("compile failed")}},
		{"panic", &fakeRunner{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := New(testConfig(), tt.runner, nil, nil)
			th.Add(act("one"))
			th.Add(act("two"))

			th.Start()
			waitFor(t, "both acts", func() bool { return len(tt.runner.ran()) == 2 })
			th.Stop()
			th.Wait()
		})
	}
}

func TestStateSnapshotFallback(t *testing.T) {
	r := &fakeRunner{}
	th := New(testConfig(), r, fixedState{"member_name": "Bob"}, nil)
	th.Add(act("uses brain state"))
	th.Add(brain.NewAct("own state", brain.High, "x", map[string]any{"member_name": "Alice"}))

	th.Start()
	waitFor(t, "acts", func() bool { return len(r.ran()) == 2 })
	th.Stop()
	th.Wait()

	if got := r.states[0]["member_name"]; got != "Bob" {
		t.Errorf("fallback state member_name = %v, want Bob", got)
	}
	if got := r.states[1]["member_name"]; got != "Alice" {
		t.Errorf("act state member_name = %v, want Alice", got)
	}
}

func TestWaitJoinsRunningPerformance(t *testing.T) {
	r := &fakeRunner{release: make(chan struct{})}
	th := New(testConfig(), r, nil, nil)
	th.Add(act("long"))

	th.Start()
	waitFor(t, "act start", func() bool { return len(r.ran()) == 1 })
	th.Stop()

	waited := make(chan struct{})
	go func() {
		th.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned while the act was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(r.release)
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the act finished")
	}
}

func TestStopWaitWithoutStart(t *testing.T) {
	th := New(testConfig(), &fakeRunner{}, nil, nil)
	th.Stop()
	th.Wait()
}
