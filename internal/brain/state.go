package brain

import (
	"context"
	"log/slog"
	"maps"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Derived state keys, recomputed on every read.
const (
	KeyUptime     = "uptime"
	KeyUptimeText = "uptime_text"
	KeyRandom     = "random"
)

// Well-known state keys shared between subsystems.
const (
	KeyInstrumentID  = "instrument_id"
	KeyBootTime      = "boot_time"
	KeySilence       = "silence"
	KeyLastUtterance = "last_utterance"
	KeyArrival       = "arrival"
	KeyMutePublish   = "mute_mqtt"
	KeyDayPeriod     = "day_period"
	KeySpecialDay    = "special_day"
)

// DoorKeyPrefix namespaces per-door state ("door_1").
const DoorKeyPrefix = "door_"

// State is the brain's process-wide key/value store. It is the only
// channel through which senses, responders and workers share information.
type State struct {
	mu     sync.RWMutex
	values map[string]any
	boot   time.Time
	now    func() time.Time
	random func() float64
	logger Logger
}

func newState(logger Logger) *State {
	s := &State{
		values: make(map[string]any),
		now:    time.Now,
		random: rand.Float64,
		logger: logger,
	}
	s.boot = s.now()
	s.values[KeyBootTime] = s.boot
	return s
}

// Get returns the value for key, or def if the key is missing or nil.
// Derived keys are computed fresh.
func (s *State) Get(key string, def any) any {
	if v, ok := s.derived(key); ok {
		return v
	}
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if !ok || v == nil {
		return def
	}
	return v
}

// Bool returns a boolean value or false.
func (s *State) Bool(key string) bool {
	b, _ := s.Get(key, false).(bool)
	return b
}

// String returns a string value or "".
func (s *State) String(key string) string {
	str, _ := s.Get(key, "").(string)
	return str
}

// Time returns a time value and whether one was set.
func (s *State) Time(key string) (time.Time, bool) {
	t, ok := s.Get(key, nil).(time.Time)
	return t, ok
}

// Set stores value and returns the previous one, logging the change at debug.
func (s *State) Set(key string, value any) any {
	return s.SetAt(slog.LevelDebug, key, value)
}

// SetAt stores value and logs old→new at the given level.
func (s *State) SetAt(level slog.Level, key string, value any) any {
	s.mu.Lock()
	old := s.values[key]
	s.values[key] = value
	s.mu.Unlock()

	s.logger.Log(context.Background(), level, "state set", "key", key, "value", value, "old", old)
	return old
}

// Update atomically replaces the value for key with fn(old). old is nil if
// the key was unset. fn runs under the state lock and must not call back
// into State.
func (s *State) Update(key string, fn func(old any) any) any {
	s.mu.Lock()
	v := fn(s.values[key])
	s.values[key] = v
	s.mu.Unlock()
	return v
}

// Keys returns the stored keys beginning with prefix.
func (s *State) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Snapshot returns a shallow copy of the state including derived values.
// Callers may add to the copy freely.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	snap := maps.Clone(s.values)
	s.mu.RUnlock()

	for _, k := range []string{KeyUptime, KeyUptimeText, KeyRandom} {
		snap[k], _ = s.derived(k)
	}
	return snap
}

// Uptime is the time since the state was created.
func (s *State) Uptime() time.Duration {
	return s.now().Sub(s.boot)
}

func (s *State) derived(key string) (any, bool) {
	switch key {
	case KeyUptime:
		return int64(s.Uptime().Seconds()), true
	case KeyUptimeText:
		return DurationText(s.Uptime()), true
	case KeyRandom:
		return s.random(), true
	}
	return nil, false
}
