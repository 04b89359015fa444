package sense

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/config"
	"github.com/nerrad567/urchin-core/internal/lifecycle"
)

// Door warns about doors left open. A door is reported once it has been
// open for the threshold, then again after each further threshold, until
// its notification budget is spent.
type Door struct {
	*lifecycle.Loop

	threshold time.Duration
	mind      Mind
	now       func() time.Time
}

// NewDoor creates the open-door monitor.
func NewDoor(cfg config.DoorSenseConfig, mind Mind, logger Logger) *Door {
	d := &Door{
		threshold: cfg.Threshold,
		mind:      mind,
		now:       time.Now,
	}
	d.Loop = lifecycle.NewLoop("door", cfg.Interval, func(context.Context) { d.Tick(d.now()) }, orNoop(logger))
	return d
}

// Tick checks every known door against now.
func (d *Door) Tick(now time.Time) {
	state := d.mind.State()
	keys := state.Keys(brain.DoorKeyPrefix)
	slices.Sort(keys)

	for _, key := range keys {
		var warning string
		state.Update(key, func(old any) any {
			door, ok := old.(brain.Door)
			if !ok || !door.Open || door.NotificationsLeft <= 0 {
				return old
			}
			if now.Sub(door.LastNotified) < d.threshold {
				return old
			}
			door.LastNotified = now
			door.NotificationsLeft--
			open := now.Sub(door.OpenSince).Truncate(time.Second)
			warning = fmt.Sprintf("%s has been open for %s", door.Name, brain.DurationText(open))
			return door
		})
		if warning != "" {
			d.mind.Experience(brain.NewSensation(d.mind.Topic("door-open-warning"), warning))
		}
	}
}
