package process

import "errors"

var (
	// ErrAlreadyRunning is returned by Start on a running manager.
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrExited reports a supervised process that exited cleanly when it
	// was expected to keep running.
	ErrExited = errors.New("process: exited")

	// ErrEmptyCommand is returned when a command has no binary.
	ErrEmptyCommand = errors.New("process: empty command")
)
