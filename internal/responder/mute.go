package responder

import (
	"sync"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
)

// Gatekeeper occupancy messages.
const (
	LastManTopic = "nh/gk/LastManState"
	LastOut      = "Last Out"
	FirstIn      = "First In"
)

// MuteSwitch silences the agent a short while after the last occupant
// leaves, and unsilences it when someone returns.
type MuteSwitch struct {
	mind  Mind
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewMuteSwitch creates the mute switch responder.
func NewMuteSwitch(mind Mind, delay time.Duration) *MuteSwitch {
	return &MuteSwitch{mind: mind, delay: delay}
}

func (m *MuteSwitch) Name() string { return "mute-switch" }

// Respond never produces urges.
func (m *MuteSwitch) Respond(s brain.Sensation) ([]brain.Urge, error) {
	if s.Topic != LastManTopic {
		return nil, nil
	}

	switch s.Message {
	case LastOut:
		m.mind.Experience(brain.NewSensation(m.mind.Topic("silence"), "yes"))
		m.mu.Lock()
		if m.timer != nil {
			m.timer.Stop()
		}
		m.timer = time.AfterFunc(m.delay, func() { m.mind.SetSilence(true) })
		m.mu.Unlock()
	case FirstIn:
		m.Cancel()
		m.mind.SetSilence(false)
		m.mind.Experience(brain.NewSensation(m.mind.Topic("silence"), "no"))
	}
	return nil, nil
}

// Cancel disarms a pending silence.
func (m *MuteSwitch) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
