package polarmqtt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTopicLength is the maximum length of an MQTT topic (2 bytes for the
// length prefix on the wire).
const MaxTopicLength = 65535

// The session itself does not pre-validate topic syntax (that is the
// engine's responsibility), but callers that want to fail fast before
// paying for an engine round trip can use these helpers. The cmd tool
// does.

// ValidateTopicName validates a topic for publishing. Publish topics must
// not contain wildcards and must follow MQTT rules.
func ValidateTopicName(topic string) error {
	if topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if len(topic) > MaxTopicLength {
		return fmt.Errorf("topic length %d exceeds maximum %d", len(topic), MaxTopicLength)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("topic contains wildcard characters which are not allowed in PUBLISH")
	}
	if strings.Contains(topic, "\x00") {
		return fmt.Errorf("topic contains null byte which is not allowed")
	}
	if !utf8.ValidString(topic) {
		return fmt.Errorf("topic is not valid UTF-8")
	}
	return nil
}

// ValidateTopicFilter validates a topic filter for subscribing. Filters
// may contain wildcards but must follow MQTT rules: '+' must occupy an
// entire level, '#' must be the last level.
func ValidateTopicFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("topic filter cannot be empty")
	}
	if len(filter) > MaxTopicLength {
		return fmt.Errorf("topic filter length %d exceeds maximum %d", len(filter), MaxTopicLength)
	}
	if strings.Contains(filter, "\x00") {
		return fmt.Errorf("topic filter contains null byte which is not allowed")
	}
	if !utf8.ValidString(filter) {
		return fmt.Errorf("topic filter is not valid UTF-8")
	}

	parts := strings.Split(filter, "/")
	for i, part := range parts {
		if strings.Contains(part, "+") && part != "+" {
			return fmt.Errorf("single-level wildcard '+' must occupy entire topic level")
		}
		if strings.Contains(part, "#") {
			if part != "#" {
				return fmt.Errorf("multi-level wildcard '#' must occupy entire topic level")
			}
			if i != len(parts)-1 {
				return fmt.Errorf("multi-level wildcard '#' must be the last topic level")
			}
		}
	}
	return nil
}
