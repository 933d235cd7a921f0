package polarmqtt

import "time"

// Engine is the narrow contract the Session drives. It abstracts the
// wire-level MQTT implementation (connect handshake, packet framing,
// retransmission, TLS handshake); the session only configures it and
// reacts to its callbacks. The default implementation is backed by the
// Eclipse Paho client, see NewPahoEngine.
//
// Engines report failures as errors; wrap engine-native result codes in
// *EngineError so the session can surface them through
// SessionHandler.OnError.
type Engine interface {
	// Connect opens the connection. It blocks until the engine accepts or
	// rejects the connection, bounded by opts.ConnectTimeout.
	Connect(opts ConnectOptions) error

	// Disconnect closes the connection, waiting up to timeout for
	// in-flight work to complete. It must be safe to call when not
	// connected.
	Disconnect(timeout time.Duration) error

	// Subscribe registers a topic filter at the given QoS.
	Subscribe(topic string, qos QoS) error

	// Unsubscribe removes a topic filter.
	Unsubscribe(topic string) error

	// Publish submits one message. Engines that assign their own packet
	// identifiers may ignore messageID.
	Publish(topic string, payload []byte, qos QoS, retained bool, messageID int64) error

	// Destroy releases the engine. No callback may fire after Destroy
	// returns.
	Destroy()
}

// ConnectOptions carries the engine-level connection parameters derived
// from a ConnectionConfig snapshot.
type ConnectOptions struct {
	KeepAlive      time.Duration
	CleanSession   bool
	ConnectTimeout time.Duration

	// ReconnectDelay is the retry interval the engine uses after a
	// connection loss. Retry policy belongs to the engine, not the
	// session.
	ReconnectDelay time.Duration

	MaxInflight int
	MaxQueued   int

	Username string
	Password string

	// TLS is nil for plain connections.
	TLS *TLSMaterial
}

// TLSMaterial names the certificate files for a secure connection.
type TLSMaterial struct {
	CAFile   string
	CertFile string
	KeyFile  string
}

// EngineCallbacks are the trampolines an engine invokes on its own
// delivery goroutine. Nil fields are skipped.
type EngineCallbacks struct {
	// OnMessage delivers one inbound message. The payload buffer belongs
	// to the engine and is only valid for the duration of the call.
	OnMessage func(topic string, payload []byte, qos QoS, retained bool, messageID int64)

	// OnConnectionLost reports an asynchronous connection loss with the
	// engine-supplied cause, which may be empty.
	OnConnectionLost func(cause string)

	// OnReconnect reports that the engine re-established the connection
	// after a loss.
	OnReconnect func()

	// OnDeliveryComplete reports completion of an outbound delivery.
	// Reserved; no current engine wires it.
	OnDeliveryComplete func(messageID int64)
}

// EngineFactory creates a protocol engine bound to a server URI and
// client identifier, with the callbacks registered before any connect
// attempt. Session.Start calls the factory once per engine lifetime.
type EngineFactory func(serverURI, clientID string, callbacks EngineCallbacks) (Engine, error)
