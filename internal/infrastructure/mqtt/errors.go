package mqtt

import "errors"

// Errors returned by Client. Operation failures wrap one of the *Failed
// errors together with the cause, so both can be matched with errors.Is:
//
//	if errors.Is(err, mqtt.ErrTimeout) {
//	    // broker did not acknowledge in time
//	}
var (
	// ErrNotConnected means the broker session is down or Close was called.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps the failure of the first connect attempt.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrPayloadTooLarge is returned for payloads above 1 MiB.
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")

	// ErrInvalidQoS is returned for a QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout means the broker did not acknowledge within the deadline.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
