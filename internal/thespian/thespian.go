package thespian

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/lifecycle"
)

// Runner executes program text with state visible to it.
type Runner interface {
	Run(ctx context.Context, program string, state map[string]any) error
}

// StateSource supplies state for acts created without a snapshot.
type StateSource interface {
	Snapshot() map[string]any
}

// Logger is the logging surface the thespian needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// performance is an act being run.
type performance struct {
	act  *brain.Act
	done chan struct{}
}

// Thespian is the action scheduler.
//
// Thread Safety: Add is safe for concurrent use. At most one act runs at
// a time.
type Thespian struct {
	queue   *brain.Queue[*brain.Act]
	runner  Runner
	state   StateSource
	timeout time.Duration
	logger  Logger
	loop    *lifecycle.Loop

	mu      sync.Mutex
	current *performance
}

// New creates a stopped thespian.
func New(cfg config.ThespianConfig, runner Runner, state StateSource, logger Logger) *Thespian {
	if logger == nil {
		logger = noopLogger{}
	}
	t := &Thespian{
		queue:   brain.NewQueue[*brain.Act](cfg.QueueCapacity),
		runner:  runner,
		state:   state,
		timeout: cfg.ActTimeout,
		logger:  logger,
	}
	t.loop = lifecycle.NewLoop("thespian", cfg.PollInterval, t.tick, logger)
	return t
}

// Name identifies the worker.
func (t *Thespian) Name() string { return "thespian" }

// Start begins supervising performances.
func (t *Thespian) Start() { t.loop.Start() }

// Stop asks the supervisor to exit. A performance in progress is left to
// finish.
func (t *Thespian) Stop() { t.loop.Stop() }

// Wait blocks until the supervisor has exited and any performance it
// started has finished.
func (t *Thespian) Wait() {
	t.loop.Wait()

	t.mu.Lock()
	cur := t.current
	t.mu.Unlock()
	if cur != nil {
		<-cur.done
		t.reap()
	}
}

// Add queues an act. It never blocks; when the queue is full the act is
// dropped and false returned.
func (t *Thespian) Add(a *brain.Act) bool {
	if !t.queue.Push(a) {
		t.logger.Debug("act dropped: queue full", "cause", a.Cause())
		return false
	}
	return true
}

// Pending returns the number of queued acts.
func (t *Thespian) Pending() int { return t.queue.Len() }

// Busy reports whether an act is being performed.
func (t *Thespian) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return false
	}
	select {
	case <-t.current.done:
		return false
	default:
		return true
	}
}

func (t *Thespian) tick(context.Context) {
	t.reap()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return
	}
	a, ok := t.queue.Pop()
	if !ok {
		return
	}
	p := &performance{act: a, done: make(chan struct{})}
	t.current = p
	t.logger.Debug("starting act", "cause", a.Cause(), "priority", a.Priority().String())
	go t.perform(p)
}

// reap forgets the current performance once it has finished.
func (t *Thespian) reap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return
	}
	select {
	case <-t.current.done:
		t.logger.Debug("reaped completed act", "cause", t.current.act.Cause())
		t.current = nil
	default:
	}
}

func (t *Thespian) perform(p *performance) {
	defer close(p.done)
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("act panicked", "cause", p.act.Cause(), "panic", r)
		}
	}()

	state := p.act.State()
	if state == nil && t.state != nil {
		state = t.state.Snapshot()
	}

	ctx := context.Background()
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.logger.Info("performing act", "cause", p.act.Cause())
	if err := t.runner.Run(ctx, p.act.Program, state); err != nil {
		t.logger.Warn("act failed", "cause", p.act.Cause(), "error", err)
		return
	}
	t.logger.Debug("act finished", "cause", p.act.Cause())
}
