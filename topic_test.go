package polarmqtt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTopicName(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		valid bool
	}{
		{"simple", "sensors/a/temp", true},
		{"single level", "status", true},
		{"leading slash", "/sensors/a", true},
		{"space", "sensors/room one/temp", true},
		{"dollar prefix", "$SYS/broker/uptime", true},
		{"maximum length", strings.Repeat("a", MaxTopicLength), true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", MaxTopicLength+1), false},
		{"plus wildcard", "sensors/+/temp", false},
		{"hash wildcard", "sensors/#", false},
		{"null byte", "sensors\x00temp", false},
		{"invalid utf8", "sensors/\xff", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopicName(tt.topic)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateTopicFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		valid  bool
	}{
		{"plain", "sensors/a/temp", true},
		{"single-level wildcard", "sensors/+/temp", true},
		{"multi-level wildcard", "sensors/#", true},
		{"bare hash", "#", true},
		{"bare plus", "+", true},
		{"plus then hash", "+/+/#", true},
		{"sys tree", "$SYS/#", true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", MaxTopicLength+1), false},
		{"embedded plus", "sensors/a+b/temp", false},
		{"embedded hash", "sensors/a#", false},
		{"hash not last", "sensors/#/temp", false},
		{"null byte", "sensors/\x00/temp", false},
		{"invalid utf8", "sensors/\xff/#", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopicFilter(tt.filter)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
