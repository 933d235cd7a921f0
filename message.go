package polarmqtt

// Message is an immutable snapshot of one MQTT message.
//
// Inbound messages are constructed by the Session's delivery trampoline
// immediately before the MessageHandler callback runs; the payload is a
// private copy of the engine's buffer, so accessors never observe a
// partially populated instance. A Message handed to a callback is only
// guaranteed valid for the duration of that callback; copy the fields out
// if you need them longer.
//
// Outbound messages can be described with NewMessage and handed to
// Session.PublishMessage:
//
//	msg := polarmqtt.NewMessage("sensors/a/temp", []byte("21.5")).
//	    WithQoS(polarmqtt.AtLeastOnce).
//	    WithRetained(false)
//	id := session.PublishMessage(msg)
type Message struct {
	topic     string
	payload   []byte
	qos       QoS
	retained  bool
	messageID int64
}

// NewMessage describes an outbound message with QoS AtMostOnce and the
// retained flag cleared. The payload is copied.
func NewMessage(topic string, payload []byte) *Message {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return &Message{topic: topic, payload: buf}
}

// WithQoS sets the Quality of Service level and returns the message.
func (m *Message) WithQoS(qos QoS) *Message {
	m.qos = qos
	return m
}

// WithRetained sets the retained flag and returns the message.
func (m *Message) WithRetained(retained bool) *Message {
	m.retained = retained
	return m
}

// Topic returns the topic the message was published to.
func (m *Message) Topic() string { return m.topic }

// Payload returns the message payload. The slice must not be mutated and
// is only valid for the duration of the delivery callback; copy it to
// retain it longer.
func (m *Message) Payload() []byte { return m.payload }

// PayloadLength returns the exact payload size in bytes.
func (m *Message) PayloadLength() int { return len(m.payload) }

// QoS returns the Quality of Service level.
func (m *Message) QoS() QoS { return m.qos }

// Retained reports whether the message was a retained message.
func (m *Message) Retained() bool { return m.retained }

// MessageID returns the message identifier. For inbound messages this is
// the engine-assigned id; it is session-local and not globally unique.
func (m *Message) MessageID() int64 { return m.messageID }
