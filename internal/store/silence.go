package store

import (
	"context"
	"time"
)

const silenceWriteTimeout = 5 * time.Second

// ProfileSilence persists the mute switch for one profile. It satisfies
// the brain's silence store.
type ProfileSilence struct {
	Repo      Repository
	ProfileID string
}

// SaveSilence records whether the agent is muted.
func (s ProfileSilence) SaveSilence(silenced bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), silenceWriteTimeout)
	defer cancel()
	return s.Repo.SetMuteSwitch(ctx, s.ProfileID, silenced)
}
