package polarmqtt

// SessionHandler receives state transitions and error notifications for
// one Session. It is implemented by the embedding application, registered
// at session creation, and invoked from both caller goroutines
// (synchronous failures) and the engine's delivery goroutine (connection
// loss). Implementations must be safe for that. The Session does not own
// the handler's lifetime; keep it alive while the session is active.
type SessionHandler interface {
	// OnStateChange is called once per notified transition, in the order
	// the transitions occur.
	OnStateChange(state SessionState)

	// OnError is called for protocol-level failures with the engine's
	// native result code, and for asynchronous connection loss with
	// ErrCodeLocal. The message is a human-readable description.
	OnError(code int, message string)
}

// MessageHandler receives inbound message deliveries. It is optional: a
// session without a message handler silently drops inbound messages.
// OnMessage runs synchronously on the engine's delivery goroutine, so a
// slow handler stalls delivery; hand work off if that matters.
type MessageHandler interface {
	OnMessage(msg *Message)
}

// MessageHandlerFunc adapts a plain function to the MessageHandler
// interface.
type MessageHandlerFunc func(msg *Message)

// OnMessage calls f(msg).
func (f MessageHandlerFunc) OnMessage(msg *Message) { f(msg) }

// SessionHandlerFuncs adapts plain functions to the SessionHandler
// interface. Nil fields are ignored, so embedders can subscribe to only
// the event family they care about.
type SessionHandlerFuncs struct {
	StateChange func(state SessionState)
	Error       func(code int, message string)
}

// OnStateChange calls the StateChange function if set.
func (h SessionHandlerFuncs) OnStateChange(state SessionState) {
	if h.StateChange != nil {
		h.StateChange(state)
	}
}

// OnError calls the Error function if set.
func (h SessionHandlerFuncs) OnError(code int, message string) {
	if h.Error != nil {
		h.Error(code, message)
	}
}
