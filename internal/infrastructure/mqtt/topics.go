package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "insteon"

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
// All topics use the flat scheme {prefix}/{category}/{target}:
//
//	topics := mqtt.NewTopics("insteon")
//	cmdTopic := topics.Command("kitchen")
//	// Returns: "insteon/command/kitchen"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Trailing slashes are trimmed and
// an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// =============================================================================
// Command Topics
// =============================================================================

// Command returns the topic commands for a target are received on.
// The target is "modem", a device name or an address.
//
// Example: insteon/command/kitchen
func (t Topics) Command(target string) string {
	return fmt.Sprintf("%s/command/%s", t.Prefix(), target)
}

// Reply returns the topic command results for a target are published on.
//
// Example: insteon/reply/kitchen
func (t Topics) Reply(target string) string {
	return fmt.Sprintf("%s/reply/%s", t.Prefix(), target)
}

// CommandTarget extracts the target from a command topic. It returns false
// when topic is not a command topic under this prefix.
func (t Topics) CommandTarget(topic string) (string, bool) {
	target, ok := strings.CutPrefix(topic, t.Prefix()+"/command/")
	if !ok || target == "" || strings.Contains(target, "/") {
		return "", false
	}
	return target, true
}

// =============================================================================
// Device Topics
// =============================================================================

// Device returns the retained announcement topic for an endpoint.
//
// Example: insteon/device/112233
func (t Topics) Device(hex string) string {
	return fmt.Sprintf("%s/device/%s", t.Prefix(), hex)
}

// =============================================================================
// System Topics
// =============================================================================

// Status returns the bridge status topic (online/offline and LWT).
//
// Example: insteon/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.Prefix())
}

// Health returns the periodic bridge health topic.
//
// Example: insteon/health
func (t Topics) Health() string {
	return fmt.Sprintf("%s/health", t.Prefix())
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllCommands returns a pattern matching commands for every target.
//
// Pattern: insteon/command/+
func (t Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/+", t.Prefix())
}
