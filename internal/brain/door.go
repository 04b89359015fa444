package brain

import "time"

// DefaultDoorNotifications is how many open-door warnings a door gets each
// time it opens.
const DefaultDoorNotifications = 2

// Door is the state record kept under DoorKey(id).
type Door struct {
	Name              string
	Open              bool
	OpenSince         time.Time
	LastNotified      time.Time
	NotificationsLeft int
}

// DoorKey returns the state key for door id ("door_1").
func DoorKey(id string) string {
	return DoorKeyPrefix + id
}
