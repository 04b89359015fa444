package mqtt

import (
	"fmt"
	"strings"
)

// TopicAll is the filter that matches every topic on the broker.
const TopicAll = "#"

// MatchTopic reports whether topic matches the MQTT filter, honouring the
// "+" (one level) and "#" (this level and everything below) wildcards.
//
// Topics starting with "$" are only matched by filters that name them
// explicitly, as brokers do.
func MatchTopic(filter, topic string) bool {
	if strings.HasPrefix(topic, "$") && !strings.HasPrefix(filter, "$") {
		return false
	}

	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}

// ValidateFilter checks a subscription filter: non-empty, "#" only as the
// last level, wildcards only as whole levels.
func ValidateFilter(filter string) error {
	if filter == "" {
		return ErrInvalidTopic
	}
	levels := strings.Split(filter, "/")
	for i, l := range levels {
		if l == "#" && i != len(levels)-1 {
			return fmt.Errorf("%w: %q has # before the last level", ErrInvalidTopic, filter)
		}
		if len(l) > 1 && strings.ContainsAny(l, "+#") {
			return fmt.Errorf("%w: %q has a wildcard inside a level", ErrInvalidTopic, filter)
		}
	}
	return nil
}

func validatePublishTopic(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: %q contains a wildcard", ErrInvalidTopic, topic)
	}
	return nil
}
