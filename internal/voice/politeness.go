package voice

import (
	"context"
	"time"

	"github.com/nerrad567/urchin-core/internal/lifecycle"
)

// Talkers reports whether any speech source is mid-utterance.
type Talkers interface {
	AnyTalking() bool
}

// Politeness keeps the agent from talking over other speakers.
type Politeness struct {
	Talkers Talkers
	Poll    time.Duration
	Grace   time.Duration
}

// Wait returns true once it is polite to speak: at once if nobody is
// talking, otherwise after the talkers have fallen silent and stayed
// silent for the grace period. It returns false if ctx ends first.
func (p Politeness) Wait(ctx context.Context) bool {
	if p.Talkers == nil || !p.Talkers.AnyTalking() {
		return ctx.Err() == nil
	}
	for {
		for p.Talkers.AnyTalking() {
			if !lifecycle.Sleep(ctx, p.Poll) {
				return false
			}
		}
		if !lifecycle.Sleep(ctx, p.Grace) {
			return false
		}
		if !p.Talkers.AnyTalking() {
			return true
		}
	}
}
