package brain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sensation is an immutable event record entering the brain.
type Sensation struct {
	ID         string
	Topic      string
	Message    string
	ReceivedAt time.Time
}

// NewSensation stamps a sensation with an id and the current time.
func NewSensation(topic, message string) Sensation {
	return Sensation{
		ID:         uuid.NewString(),
		Topic:      topic,
		Message:    message,
		ReceivedAt: time.Now(),
	}
}

// NewJSONSensation marshals v as the message. Marshal failures fall back
// to fmt's %v rendering so a sensation is never lost to encoding.
func NewJSONSensation(topic string, v any) Sensation {
	b, err := json.Marshal(v)
	if err != nil {
		return NewSensation(topic, fmt.Sprintf("%v", v))
	}
	return NewSensation(topic, string(b))
}

// Decode unmarshals the message as JSON into v.
func (s Sensation) Decode(v any) error {
	if err := json.Unmarshal([]byte(s.Message), v); err != nil {
		return fmt.Errorf("decoding %s: %w", s.Topic, err)
	}
	return nil
}

// Fields returns the message as a JSON object, or nil if it is not one.
func (s Sensation) Fields() map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(s.Message), &m); err != nil {
		return nil
	}
	return m
}

func (s Sensation) String() string {
	return fmt.Sprintf("Sensation(%s, %q)", s.Topic, s.Message)
}
