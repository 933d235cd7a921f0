package polarmqtt

// SessionState describes the connection state of a Session.
//
// The state machine is:
//
//	StateDisconnected -> StateConnecting -> StateConnected
//	StateConnected    -> StateReconnecting   (connection lost)
//	StateReconnecting -> StateConnected      (engine re-established the link)
//	any state         -> StateDisconnected   (Stop)
//
// The type is shared by Session and SessionHandler and owned by neither.
// The numeric values are part of the C ABI (see capi) and must not change.
type SessionState int32

const (
	// StateDisconnected is the initial and terminal state.
	StateDisconnected SessionState = 0

	// StateConnecting is the transient state while Start drives the engine
	// connect. It is observable through State but never notified.
	StateConnecting SessionState = 1

	// StateConnected means the engine reported a live connection.
	StateConnected SessionState = 2

	// StateReconnecting means the connection was lost and the engine is
	// retrying on its own schedule (the configured reconnect delay).
	StateReconnecting SessionState = 3
)

// String returns a human-readable name for the state.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
