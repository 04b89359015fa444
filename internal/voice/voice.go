package voice

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/lifecycle"
	"github.com/nerrad567/urchin-core/internal/script"
)

// Logger is the logging surface the package needs.
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

// Mind is the part of the brain the speech scheduler reads and writes.
type Mind interface {
	Silenced() bool
	Snapshot() map[string]any
	Set(key string, value any) any
}

// Speaker utters a single utterance.
type Speaker interface {
	Utter(ctx context.Context, u Utterance) bool
	Interrupt() bool
}

// Voice is the speech scheduler. Say queues text; a single loop speaks it
// in order, waiting for politeness before each utterance.
//
// Thread Safety: all methods are safe for concurrent use.
type Voice struct {
	cfg        config.VoiceConfig
	mind       Mind
	speaker    Speaker
	politeness Politeness
	render     func(string, map[string]any) (string, error)
	logger     Logger
	loop       *lifecycle.Loop
	now        func() time.Time

	mu      sync.Mutex
	pending []Utterance
}

// New creates a stopped speech scheduler.
func New(cfg config.VoiceConfig, mind Mind, speaker Speaker, politeness Politeness, logger Logger) *Voice {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 500 * time.Millisecond
	}
	if politeness.Poll <= 0 {
		politeness.Poll = 100 * time.Millisecond
	}
	v := &Voice{
		cfg:        cfg,
		mind:       mind,
		speaker:    speaker,
		politeness: politeness,
		render:     script.Render,
		logger:     logger,
		now:        time.Now,
	}
	v.loop = lifecycle.NewLoop("voice", cfg.Poll, v.drain, logger)
	return v
}

// Name identifies the worker.
func (v *Voice) Name() string { return "voice" }

// Start begins speaking queued text.
func (v *Voice) Start() { v.loop.Start() }

// Stop asks the speech loop to exit; an utterance in progress is cut off.
func (v *Voice) Stop() { v.loop.Stop() }

// Wait blocks until the speech loop has exited.
func (v *Voice) Wait() { v.loop.Wait() }

// Say renders text as a template over state (the brain's state when nil),
// splits it at voice directives and queues the pieces. voice overrides the
// default voice for text outside directives. Nothing is queued while
// silenced; Say then returns false.
func (v *Voice) Say(text, voice string, state map[string]any) bool {
	if v.mind.Silenced() {
		v.logger.Debug("silenced, not saying", "text", text)
		return false
	}
	if state == nil {
		state = v.mind.Snapshot()
	}
	rendered, err := v.render(text, state)
	if err != nil {
		v.logger.Warn("speech template failed", "text", text, "error", err)
		return false
	}
	if voice == "" {
		voice = v.cfg.DefaultVoice
	}

	parts := Split(rendered, voice)
	if len(parts) == 0 {
		return false
	}
	v.mu.Lock()
	v.pending = append(v.pending, parts...)
	v.mu.Unlock()
	return true
}

// Interrupt cuts off the current utterance and discards queued speech.
func (v *Voice) Interrupt() bool {
	v.mu.Lock()
	dropped := len(v.pending)
	v.pending = nil
	v.mu.Unlock()

	if dropped > 0 {
		v.logger.Debug("discarded queued speech", "utterances", dropped)
	}
	return v.speaker.Interrupt()
}

// Pending returns the number of queued utterances.
func (v *Voice) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

func (v *Voice) pop() (Utterance, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.pending) == 0 {
		return Utterance{}, false
	}
	u := v.pending[0]
	v.pending[0] = Utterance{}
	v.pending = v.pending[1:]
	return u, true
}

// drain speaks everything queued, one utterance at a time.
func (v *Voice) drain(ctx context.Context) {
	for ctx.Err() == nil {
		u, ok := v.pop()
		if !ok {
			return
		}
		if !v.politeness.Wait(ctx) {
			return
		}
		v.logger.Info("saying", "text", u.Text, "voice", u.Voice)
		if !v.speaker.Utter(ctx, u) {
			v.logger.Debug("utterance did not complete", "utterance", u.String())
		}
		v.mind.Set(brain.KeyLastUtterance, v.now())
		lifecycle.Sleep(ctx, v.cfg.Gap)
	}
}
