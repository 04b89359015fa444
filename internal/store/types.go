package store

import "time"

// Broker holds MQTT connection settings for a profile.
type Broker struct {
	ID        string
	Host      string
	Port      int
	KeepAlive int
	Clean     bool
	ClientID  string
}

// Effect is the argument list given to the audio effect player that
// synthesized speech is piped through.
type Effect struct {
	ID   string
	Args string
}

// Voice is a speech synthesis profile.
type Voice struct {
	ID        string
	Engine    string
	Voice     string
	Pitch     int
	Amplitude int
	Speed     int
	Gap       int
	Effect    Effect
}

// Profile is the per-installation configuration record.
type Profile struct {
	ID              string
	BrokerID        string
	VoiceID         string
	TimeInterval    time.Duration
	JournalInterval time.Duration
	BoredomMinimum  time.Duration
	BoredomAmount   float64
	DoorOpen        time.Duration
	MuteSwitch      bool
}

// Ignore is a pair of patterns; a message matching both is dropped before
// it becomes a sensation. An empty MessageRE matches any message.
type Ignore struct {
	ID        int64
	TopicRE   string
	MessageRE string
}

// SpecialDay is a calendar entry. Year zero means every year.
type SpecialDay struct {
	ID    int64
	Year  int
	Month int
	Day   int
	Name  string
	Story string
}

// Candidate is a greeting or musing the agent may perform.
type Candidate struct {
	ID        int64
	Kind      string
	Action    string
	Condition string
	Weight    int
	Member    string
	Topic     string
}

// Label identifies the candidate in logs and urge causes ("Musing #4").
func (c Candidate) Label() string {
	return c.Kind + " #" + itoa(c.ID)
}
