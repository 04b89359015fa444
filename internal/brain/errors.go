package brain

import "errors"

var (
	// ErrDropped is returned by Perform when the target scheduler refused
	// the urge (queue full or speech silenced).
	ErrDropped = errors.New("brain: urge dropped")

	// ErrNoActuator is returned when no component is wired for an urge kind.
	ErrNoActuator = errors.New("brain: no actuator for urge")

	// ErrDispatchPanic reports a panic that escaped the dispatch loop.
	ErrDispatchPanic = errors.New("brain: dispatch loop panicked")
)

// ErrAlreadyRunning is returned by a second concurrent call to Run.
var ErrAlreadyRunning = errors.New("brain: already running")
