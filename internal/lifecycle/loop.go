package lifecycle

import (
	"context"
	"sync"
	"time"
)

// Runner is the start/stop/wait contract shared by senses and workers.
//
// Start returns immediately. Stop requests termination and returns
// immediately. Wait blocks until termination completes; it is idempotent
// and returns at once if nothing was started.
type Runner interface {
	Name() string
	Start()
	Stop()
	Wait()
}

// Logger is the logging surface lifecycle needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TickFunc is one iteration of a polling loop. ctx is cancelled when the
// loop is stopped, so long ticks can bail out early.
type TickFunc func(ctx context.Context)

// Loop calls a TickFunc on a fixed interval in its own goroutine until
// stopped. A panicking tick is logged and the loop carries on.
type Loop struct {
	name     string
	interval time.Duration
	tick     TickFunc
	logger   Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a stopped loop. A nil logger discards output.
func NewLoop(name string, interval time.Duration, tick TickFunc, logger Logger) *Loop {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Loop{
		name:     name,
		interval: interval,
		tick:     tick,
		logger:   logger,
	}
}

// Name returns the loop's name.
func (l *Loop) Name() string {
	return l.name
}

// Start launches the loop goroutine. Starting a running loop is a logged
// no-op. A loop that has been stopped and waited on may be started again.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done != nil {
		select {
		case <-l.done:
		default:
			l.logger.Warn("start ignored: already running", "runner", l.name)
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(ctx, l.done)
}

// Stop asks the loop to exit. It does not wait.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel == nil {
		l.logger.Debug("stop ignored: never started", "runner", l.name)
		return
	}
	l.cancel()
}

// Wait blocks until the loop goroutine has exited.
func (l *Loop) Wait() {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return
	}
	<-done
}

// Running reports whether the loop goroutine is alive.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done == nil {
		return false
	}
	select {
	case <-l.done:
		return false
	default:
		return true
	}
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	l.logger.Debug("runner started", "runner", l.name)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("runner stopped", "runner", l.name)
			return
		case <-timer.C:
		}

		l.safeTick(ctx)
		timer.Reset(l.interval)
	}
}

func (l *Loop) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick panic recovered", "runner", l.name, "panic", r)
		}
	}()
	l.tick(ctx)
}

// Sleep pauses for d or until ctx is done, reporting whether the full
// duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
