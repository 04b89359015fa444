package mqtt

import "errors"

var (
	ErrNotConnected      = errors.New("mqtt: not connected")
	ErrConnectionFailed  = errors.New("mqtt: connect failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS: only 0, 1 and 2 exist.
	ErrInvalidQoS = errors.New("mqtt: qos out of range")

	// ErrInvalidTopic covers empty topics, wildcards in a publish topic and
	// misplaced wildcards in a filter.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
