package responder

import (
	"regexp"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
)

var (
	doorTopicRx   = regexp.MustCompile(`^nh/gk/(\d+)/DoorState$`)
	doorMessageRx = regexp.MustCompile(`^(OPEN|CLOSED|LOCKED)$`)
)

// DoorMonitor records door openings and closings in state for the door
// sense to watch.
type DoorMonitor struct {
	mind   Mind
	names  map[string]string
	budget int
	now    func() time.Time
}

// NewDoorMonitor creates the door state responder.
func NewDoorMonitor(cfg config.DoorSenseConfig, mind Mind) *DoorMonitor {
	budget := cfg.MaxNotifications
	if budget <= 0 {
		budget = brain.DefaultDoorNotifications
	}
	return &DoorMonitor{mind: mind, names: cfg.Names, budget: budget, now: time.Now}
}

func (d *DoorMonitor) Name() string { return "door-monitor" }

// Respond never produces urges.
func (d *DoorMonitor) Respond(s brain.Sensation) ([]brain.Urge, error) {
	m := doorTopicRx.FindStringSubmatch(s.Topic)
	if m == nil {
		return nil, nil
	}
	id := m[1]
	if !doorMessageRx.MatchString(s.Message) {
		return nil, nil
	}

	door := brain.Door{Name: d.doorName(id)}
	if s.Message == "OPEN" {
		now := d.now()
		door.Open = true
		door.OpenSince = now
		door.LastNotified = now
		door.NotificationsLeft = d.budget
	}
	d.mind.State().Set(brain.DoorKey(id), door)
	return nil, nil
}

func (d *DoorMonitor) doorName(id string) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return "door number " + id
}
