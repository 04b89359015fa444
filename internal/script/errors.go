package script

import "errors"

var (
	// ErrCompile is returned when a program or condition does not compile.
	ErrCompile = errors.New("script: compile failed")

	// ErrPanic is returned when a program panics while running.
	ErrPanic = errors.New("script: program panicked")

	// ErrNotBoolean is returned when a condition does not yield a bool.
	ErrNotBoolean = errors.New("script: condition is not boolean")
)
