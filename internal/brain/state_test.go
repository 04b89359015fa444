package brain

import (
	"slices"
	"testing"
	"time"
)

func TestState_GetDefaults(t *testing.T) {
	s := newState(noopLogger{})

	if got := s.Get("missing", "fallback"); got != "fallback" {
		t.Errorf("Get(missing) = %v", got)
	}
	s.Set("nil", nil)
	if got := s.Get("nil", 7); got != 7 {
		t.Errorf("Get(nil value) = %v, want default", got)
	}
	if old := s.Set("k", 1); old != nil {
		t.Errorf("first Set returned %v, want nil", old)
	}
	if old := s.Set("k", 2); old != 1 {
		t.Errorf("second Set returned %v, want 1", old)
	}
}

func TestState_DerivedValues(t *testing.T) {
	s := newState(noopLogger{})
	boot := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.boot = boot
	s.now = func() time.Time { return boot.Add(90 * time.Second) }
	s.random = func() float64 { return 0.25 }

	if got := s.Get(KeyUptime, nil); got != int64(90) {
		t.Errorf("uptime = %v, want 90", got)
	}
	if got := s.Get(KeyUptimeText, nil); got != "1 minute, 30 seconds" {
		t.Errorf("uptime_text = %v", got)
	}
	if got := s.Get(KeyRandom, nil); got != 0.25 {
		t.Errorf("random = %v", got)
	}

	snap := s.Snapshot()
	if snap[KeyUptime] != int64(90) || snap[KeyRandom] != 0.25 {
		t.Errorf("snapshot missing derived values: %v", snap)
	}
	snap["extra"] = true
	if s.Get("extra", nil) != nil {
		t.Error("mutating a snapshot leaked into state")
	}
}

func TestState_UpdateAndKeys(t *testing.T) {
	s := newState(noopLogger{})
	s.Update("door_1", func(old any) any {
		if old != nil {
			t.Errorf("old = %v, want nil", old)
		}
		return 1
	})
	s.Update("door_1", func(old any) any { return old.(int) + 1 })
	s.Set("door_2", 5)
	s.Set("other", 0)

	if got := s.Get("door_1", nil); got != 2 {
		t.Errorf("door_1 = %v, want 2", got)
	}
	keys := s.Keys(DoorKeyPrefix)
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"door_1", "door_2"}) {
		t.Errorf("Keys = %v", keys)
	}
}

func TestYakkers_Timeout(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	y := NewYakkers(60*time.Second, nil)
	y.now = func() time.Time { return now }

	y.Begin("nh/dalek")

	tests := []struct {
		offset time.Duration
		want   bool
	}{
		{0, true},
		{30 * time.Second, true},
		{61 * time.Second, false},
	}
	for _, tt := range tests {
		now = start.Add(tt.offset)
		if got := y.IsTalking("nh/dalek"); got != tt.want {
			t.Errorf("IsTalking at T+%v = %v, want %v", tt.offset, got, tt.want)
		}
		if got := y.AnyTalking(); got != tt.want {
			t.Errorf("AnyTalking at T+%v = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestYakkers_BeginDoesNotRefresh(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start
	y := NewYakkers(60*time.Second, nil)
	y.now = func() time.Time { return now }

	y.Begin("a")
	now = start.Add(50 * time.Second)
	y.Begin("a")
	now = start.Add(61 * time.Second)
	if y.IsTalking("a") {
		t.Error("second Begin extended the talking window")
	}

	// Once expired, a new Begin registers afresh.
	y.Begin("a")
	if !y.IsTalking("a") {
		t.Error("Begin after expiry not registered")
	}
}

func TestYakkers_Observe(t *testing.T) {
	y := NewYakkers(time.Minute, nil)

	y.Observe("nh/urchin/talking")
	y.Observe("nh/other/state")
	if got := y.Snapshot(); len(got) != 1 {
		t.Fatalf("registry = %v, want one talker", got)
	}
	y.Observe("nh/urchin/said")
	if y.AnyTalking() {
		t.Error("talker not removed by said")
	}
	// Ending an unknown talker is harmless.
	y.End("nobody")
}

func TestQueue_FIFOAndCapacity(t *testing.T) {
	q := NewQueue[int](2)
	if !q.Push(1) || !q.Push(2) {
		t.Fatal("push within capacity rejected")
	}
	if q.Push(3) {
		t.Error("push beyond capacity accepted")
	}
	if q.Len() != 2 || q.Cap() != 2 {
		t.Errorf("Len=%d Cap=%d", q.Len(), q.Cap())
	}
	for _, want := range []int{1, 2} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Pop() = %d, %v, want %d", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue reported ok")
	}
	if NewQueue[string](0).Cap() != 1 {
		t.Error("capacity below one not clamped")
	}
}

func TestDurationText(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, ""},
		{500 * time.Millisecond, ""},
		{time.Second, "1 second"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour + time.Minute + 5*time.Second, "1 hour, 1 minute, 5 seconds"},
		{26 * time.Hour, "1 day, 2 hours"},
	}
	for _, tt := range tests {
		if got := DurationText(tt.d); got != tt.want {
			t.Errorf("DurationText(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSensation_JSON(t *testing.T) {
	s := NewJSONSensation("t", map[string]any{"from_ip": "10.0.0.1"})
	if s.ID == "" || s.ReceivedAt.IsZero() {
		t.Errorf("sensation not stamped: %+v", s)
	}
	if got := s.Fields()["from_ip"]; got != "10.0.0.1" {
		t.Errorf("Fields()[from_ip] = %v", got)
	}
	if NewSensation("t", "plain").Fields() != nil {
		t.Error("Fields() of non-JSON message should be nil")
	}
	var v struct{ X int }
	if err := NewSensation("t", "{").Decode(&v); err == nil {
		t.Error("Decode of bad JSON returned nil error")
	}
}
