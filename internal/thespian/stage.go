package thespian

import (
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
)

// Stage gathers the actuators a running act can reach. Any of them may be
// nil, in which case the matching primitive does nothing.
type Stage struct {
	Voice interface {
		Say(text, voice string, state map[string]any) bool
	}
	Audio interface {
		Play(id string, background bool) bool
		StopSound(id string, instance int)
	}
	Bus interface {
		Publish(topic, message string) error
	}
	Light interface {
		FadeDefault(final float64, d time.Duration)
	}
}

func (s Stage) Say(text, voice string, state map[string]any) bool {
	if s.Voice == nil {
		return false
	}
	return s.Voice.Say(text, voice, state)
}

func (s Stage) Play(sound string, background bool) bool {
	if s.Audio == nil {
		return false
	}
	return s.Audio.Play(sound, background)
}

func (s Stage) StopSound(sound string, instance int) {
	if s.Audio != nil {
		s.Audio.StopSound(sound, instance)
	}
}

func (s Stage) Publish(topic, message string) error {
	if s.Bus == nil {
		return brain.ErrNoActuator
	}
	return s.Bus.Publish(topic, message)
}

// Eyes fades the light to intensity over duration.
func (s Stage) Eyes(intensity float64, duration time.Duration) {
	if s.Light != nil {
		s.Light.FadeDefault(intensity, duration)
	}
}
