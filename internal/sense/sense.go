package sense

import (
	"github.com/nerrad567/urchin-core/internal/brain"
)

// Mind is the part of the brain a sense talks to. *brain.Brain
// satisfies it.
type Mind interface {
	Experience(s brain.Sensation) bool
	Topic(suffix string) string
	State() *brain.State
}

// Logger is the logging surface senses need.
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

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}
