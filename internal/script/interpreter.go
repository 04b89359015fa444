package script

import (
	"context"
	"fmt"
	"math/rand/v2"
	"reflect"
	"time"

	"github.com/traefik/yaegi/interp"
)

// Primitives are the side effects a program can cause.
type Primitives interface {
	Say(text, voice string, state map[string]any) bool
	Play(sound string, background bool) bool
	StopSound(sound string, instance int)
	Publish(topic, message string) error
	Eyes(intensity float64, duration time.Duration)
}

// Logger is the logging surface the package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

const primitivesPath = "urchin/act/act"

// preamble binds the lower-case names programs use to the exported
// primitives.
const preamble = `package main

import "urchin/act"

func say(text string) bool                   { return act.Say(text, "") }
func sayAs(voice, text string) bool          { return act.Say(text, voice) }
func play(sound string, background bool) bool { return act.Play(sound, background) }
func stop(sound string)                      { act.Stop(sound, 0) }
func stopInstance(sound string, n int)       { act.Stop(sound, n) }
func pause(seconds float64)                  { act.Pause(seconds) }
func publish(topic, message string) bool     { return act.Publish(topic, message) }
func eyes(intensity, seconds float64)        { act.Eyes(intensity, seconds) }
func random() float64                        { return act.Random() }
func randInt(lo, hi int) int                 { return act.RandInt(lo, hi) }
func choose(options ...string) string        { return act.Choose(options...) }
func get(key string) interface{}             { return act.Get(key) }
func log(message string)                     { act.Log(message) }

`

// reservedNames cannot be shadowed by state variables inside programs.
var reservedNames = map[string]bool{
	"act": true, "say": true, "sayAs": true, "play": true, "stop": true,
	"stopInstance": true, "pause": true, "publish": true, "eyes": true,
	"random": true, "randInt": true, "choose": true, "get": true, "log": true,
	"Run": true, "main": true,
}

// Interpreter runs action programs against a fixed set of primitives.
type Interpreter struct {
	prims   Primitives
	timeout time.Duration
	logger  Logger
	random  func() float64
	intN    func(n int) int
}

// NewInterpreter creates an interpreter. A zero timeout means programs
// are bounded only by the caller's context.
func NewInterpreter(prims Primitives, timeout time.Duration, logger Logger) *Interpreter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Interpreter{
		prims:   prims,
		timeout: timeout,
		logger:  logger,
		random:  rand.Float64,
		intN:    rand.IntN,
	}
}

// Run compiles and executes program with the given state visible to it.
// It returns when the program finishes or ctx is done. Once ctx is done
// the interpreter is stopped and every primitive is a no-op.
func (in *Interpreter) Run(ctx context.Context, program string, state map[string]any) error {
	if in.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}

	i := interp.New(interp.Options{})
	if err := i.Use(interp.Exports{primitivesPath: in.exports(ctx, state)}); err != nil {
		return fmt.Errorf("loading primitives: %w", err)
	}

	src := preamble + declarations(state, reservedNames) + "\nfunc Run() {\n" + program + "\n}\n"
	if _, err := i.EvalWithContext(ctx, src); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("program abandoned: %w", ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrCompile, err)
	}

	// Cancelling ctx stops the interpreter mid-program.
	if _, err := i.EvalWithContext(ctx, "main.Run()"); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("program abandoned: %w", ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrPanic, err)
	}
	return nil
}

// exports builds the primitive table for one run. Every function checks
// ctx so an abandoned program stops acting.
func (in *Interpreter) exports(ctx context.Context, state map[string]any) map[string]reflect.Value {
	alive := func() bool { return ctx.Err() == nil }

	return map[string]reflect.Value{
		"Say": reflect.ValueOf(func(text, voice string) bool {
			if !alive() || in.prims == nil {
				return false
			}
			return in.prims.Say(text, voice, state)
		}),
		"Play": reflect.ValueOf(func(sound string, background bool) bool {
			if !alive() || in.prims == nil {
				return false
			}
			return in.prims.Play(sound, background)
		}),
		"Stop": reflect.ValueOf(func(sound string, instance int) {
			if alive() && in.prims != nil {
				in.prims.StopSound(sound, instance)
			}
		}),
		"Pause": reflect.ValueOf(func(seconds float64) {
			if seconds <= 0 {
				return
			}
			t := time.NewTimer(time.Duration(seconds * float64(time.Second)))
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		}),
		"Publish": reflect.ValueOf(func(topic, message string) bool {
			if !alive() || in.prims == nil {
				return false
			}
			if err := in.prims.Publish(topic, message); err != nil {
				in.logger.Warn("program publish failed", "topic", topic, "error", err)
				return false
			}
			return true
		}),
		"Eyes": reflect.ValueOf(func(intensity, seconds float64) {
			if alive() && in.prims != nil {
				in.prims.Eyes(intensity, time.Duration(seconds*float64(time.Second)))
			}
		}),
		"Random": reflect.ValueOf(func() float64 {
			return in.random()
		}),
		"RandInt": reflect.ValueOf(func(lo, hi int) int {
			if hi < lo {
				lo, hi = hi, lo
			}
			return lo + in.intN(hi-lo+1)
		}),
		"Choose": reflect.ValueOf(func(options ...string) string {
			if len(options) == 0 {
				return ""
			}
			return options[in.intN(len(options))]
		}),
		"Get": reflect.ValueOf(func(key string) any {
			return state[key]
		}),
		"Log": reflect.ValueOf(func(message string) {
			in.logger.Info("program log", "message", message)
		}),
	}
}
