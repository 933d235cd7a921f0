package polarmqtt

// QoS represents the MQTT Quality of Service level.
type QoS uint8

// MQTT Quality of Service levels.
//
// These constants provide readable names for the three QoS levels defined
// in the MQTT specification.
//
// Example:
//
//	session.Subscribe("sensors/temp", polarmqtt.AtLeastOnce)
//	session.Publish("alert", data, polarmqtt.ExactlyOnce, false)
const (
	// AtMostOnce (QoS 0) - Fire and forget delivery.
	// The message is delivered at most once, or it may not be delivered at all.
	AtMostOnce QoS = 0

	// AtLeastOnce (QoS 1) - Acknowledged delivery.
	// The message is always delivered at least once; duplicates may occur.
	AtLeastOnce QoS = 1

	// ExactlyOnce (QoS 2) - Assured delivery.
	// The message is always delivered exactly once using a four-step handshake.
	ExactlyOnce QoS = 2
)
