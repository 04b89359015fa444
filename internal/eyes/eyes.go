// Package eyes drives the light behind the urchin's eyes.
package eyes

import (
	"context"
	"math"
	"sync"
	"time"
)

// linearScale shapes the PWM curve so fades look even to the eye.
const linearScale = 4.0

// Driver sets the hardware duty cycle in [0, 1].
type Driver interface {
	SetDuty(duty float64) error
}

// Logger is the logging surface the package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Eyes is the light actuator. A new fade, Set, On or Off supersedes any
// fade in progress.
//
// Thread Safety: all methods are safe for concurrent use.
type Eyes struct {
	driver       Driver
	defaultSteps int
	logger       Logger

	mu        sync.Mutex
	intensity float64
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates the actuator with the light off. A nil driver gives a light
// that only tracks its intensity.
func New(driver Driver, defaultSteps int, logger Logger) *Eyes {
	if driver == nil {
		driver = NullDriver{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if defaultSteps < 1 {
		defaultSteps = 25
	}
	e := &Eyes{driver: driver, defaultSteps: defaultSteps, logger: logger}
	e.apply(0)
	return e
}

// Name identifies the worker.
func (e *Eyes) Name() string { return "eyes" }

// Start is a no-op; the light needs no background loop.
func (e *Eyes) Start() {}

// Stop cancels any fade in progress.
func (e *Eyes) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Wait blocks until a cancelled fade has unwound.
func (e *Eyes) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Intensity returns the current linear intensity.
func (e *Eyes) Intensity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.intensity
}

// Set jumps to intensity, clamped to [0, 1].
func (e *Eyes) Set(intensity float64) {
	e.cancelFade()
	e.apply(intensity)
}

// On is Set(1).
func (e *Eyes) On() { e.Set(1) }

// Off is Set(0).
func (e *Eyes) Off() { e.Set(0) }

// Fade moves from the current intensity to final over d in steps. It
// returns immediately. A non-positive steps uses the configured default.
func (e *Eyes) Fade(final float64, d time.Duration, steps int) {
	if steps < 1 {
		steps = e.defaultSteps
	}
	e.cancelFade()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.mu.Lock()
	initial := e.intensity
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		step := (final - initial) / float64(steps)
		pause := d / time.Duration(steps)
		t := time.NewTicker(max(pause, time.Millisecond))
		defer t.Stop()

		for i := range steps {
			e.apply(initial + float64(i)*step)
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
		e.apply(final)
	}()
}

// FadeDefault fades with the configured number of steps.
func (e *Eyes) FadeDefault(final float64, d time.Duration) {
	e.Fade(final, d, 0)
}

func (e *Eyes) cancelFade() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (e *Eyes) apply(intensity float64) {
	intensity = min(max(intensity, 0), 1)

	e.mu.Lock()
	e.intensity = intensity
	e.mu.Unlock()

	if err := e.driver.SetDuty(Duty(intensity)); err != nil {
		e.logger.Warn("setting eye brightness failed", "error", err)
	}
}

// Duty maps linear intensity to a PWM duty cycle on an exponential curve.
// The ends snap to fully off and fully on.
func Duty(intensity float64) float64 {
	switch {
	case intensity < 0.001:
		return 0
	case intensity > 0.999:
		return 1
	}
	return math.Exp(intensity*linearScale) / math.Exp(linearScale)
}
