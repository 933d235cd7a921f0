package polarmqtt

import (
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// disconnectTimeout bounds the engine-level disconnect issued by Stop.
const disconnectTimeout = 10 * time.Second

// Session owns one logical broker connection: a ConnectionConfig, the
// current connection state, the subscription table, and the registered
// handlers. It drives the protocol engine through Start, Stop, Subscribe,
// Unsubscribe and Publish, and receives the engine's asynchronous
// callbacks.
//
// Sessions are created and destroyed by the Factory. The state-changing
// operations are synchronous and block until the engine responds; they
// are meant to be issued from caller goroutines and are not serialized
// against each other. State is safe to call from any goroutine.
type Session struct {
	clientID string
	config   *ConnectionConfig

	newEngine EngineFactory
	engine    Engine

	// mu guards state and the handler references: both are written by
	// caller goroutines and read by the engine's delivery goroutine.
	// Handlers are always invoked outside the lock.
	mu             sync.Mutex
	state          SessionState
	sessionHandler SessionHandler
	messageHandler MessageHandler

	// The subscription table is only touched from caller goroutines under
	// the synchronous-call contract; the mutex keeps concurrent callers
	// from corrupting it, but cross-call ordering stays undefined.
	subMu         sync.Mutex
	subscriptions map[int64]string

	// Monotonic counters, starting at 1, never reused for the lifetime of
	// the session.
	nextSubHandle atomic.Int64
	nextMessageID atomic.Int64

	logger *zap.Logger
}

func newSession(clientID string, handler SessionHandler, logger *zap.Logger) *Session {
	return &Session{
		clientID:       clientID,
		config:         NewConnectionConfig(),
		newEngine:      NewPahoEngine,
		state:          StateDisconnected,
		sessionHandler: handler,
		subscriptions:  make(map[int64]string),
		logger:         logger,
	}
}

// ClientID returns the client identifier, immutable for the session's
// lifetime.
func (s *Session) ClientID() string { return s.clientID }

// Config returns the session's ConnectionConfig for mutation before
// Start.
func (s *Session) Config() *ConnectionConfig { return s.config }

// State returns the current connection state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetEngineFactory replaces the factory used to create the underlying
// protocol engine on the next Start. It exists for tests and for
// embedders supplying an alternative engine; must be called before Start.
func (s *Session) SetEngineFactory(f EngineFactory) {
	if f != nil {
		s.newEngine = f
	}
}

// SetSessionHandler replaces the session handler. The change takes effect
// for subsequently delivered events only; missed events are not replayed.
func (s *Session) SetSessionHandler(h SessionHandler) {
	s.mu.Lock()
	s.sessionHandler = h
	s.mu.Unlock()
}

// SetMessageHandler registers or replaces the message handler. A nil
// handler means inbound messages are silently dropped.
func (s *Session) SetMessageHandler(h MessageHandler) {
	s.mu.Lock()
	s.messageHandler = h
	s.mu.Unlock()
}

// Start opens the connection described by the session's ConnectionConfig.
//
// A config without a broker address is rejected locally: Start returns
// false without touching the engine and without notifying the
// SessionHandler. Otherwise Start creates the engine from the current
// config (config changes made after a failed attempt take effect on the
// retry), registers the callback trampolines, transitions to
// StateConnecting and issues the connect. On engine-level failure it
// releases the engine, reports OnError with the engine's code and
// reverts to StateDisconnected; on success it transitions to
// StateConnected and notifies OnStateChange.
//
// Start does not retry; retry policy after a later connection loss
// belongs to the engine, configured through the reconnect delay. The
// return value reflects only the synchronous outcome of this call.
func (s *Session) Start() bool {
	cfg := s.config
	if cfg.broker == "" {
		s.logger.Warn("start rejected: no broker address configured")
		return false
	}

	scheme := "tcp://"
	if cfg.tlsEnabled {
		scheme = "ssl://"
	}
	uri := scheme + cfg.broker + ":" + strconv.Itoa(int(cfg.port))

	// The URI is baked into the engine at creation, so a handle left by
	// an earlier attempt is stale against the current config. Rebuild it
	// on every start.
	if s.engine != nil {
		s.engine.Destroy()
		s.engine = nil
	}
	eng, err := s.newEngine(uri, s.clientID, EngineCallbacks{
		OnMessage:        s.onMessageArrived,
		OnConnectionLost: s.onConnectionLost,
		OnReconnect:      s.onReconnected,
	})
	if err != nil {
		s.logger.Error("engine creation failed", zap.String("uri", uri), zap.Error(err))
		s.reportError(engineErrorCode(err), "failed to create client")
		return false
	}
	s.engine = eng

	// Enter the intermediate state before issuing the connect so an
	// observer never sees a gap. Not notified; only the outcome is.
	s.setState(StateConnecting)
	s.logger.Debug("connecting", zap.String("uri", uri))

	if err := s.engine.Connect(cfg.connectOptions()); err != nil {
		s.logger.Warn("connect failed", zap.String("uri", uri), zap.Error(err))
		// Release the handle so the session is back where it started:
		// no engine, operations rejected locally until the next Start.
		s.engine.Destroy()
		s.engine = nil
		s.reportError(engineErrorCode(err), "connection failed")
		s.setState(StateDisconnected)
		return false
	}

	s.setState(StateConnected)
	s.notifyStateChange(StateConnected)
	s.logger.Info("connected", zap.String("uri", uri))
	return true
}

// Stop tears down the connection and drives the state machine to
// StateDisconnected, notifying the SessionHandler. It is idempotent: on a
// session that was never started, or already stopped, it is a no-op that
// still returns true. Safe to call from an error handler.
func (s *Session) Stop() bool {
	if s.engine == nil {
		return true
	}
	if err := s.engine.Disconnect(disconnectTimeout); err != nil {
		s.logger.Debug("disconnect", zap.Error(err))
	}
	s.engine.Destroy()
	s.engine = nil
	s.setState(StateDisconnected)
	s.notifyStateChange(StateDisconnected)
	s.logger.Info("stopped")
	return true
}

// Subscribe registers a topic filter at the given QoS and returns the
// subscription handle: a session-local identifier starting at 1,
// strictly increasing and never reused, usable with Unsubscribe.
//
// On a session that was never started the call is rejected locally and
// returns -1 without notifying the SessionHandler. On engine-level
// failure it reports OnError with the engine's code and returns -1.
// Topic syntax is the engine's responsibility; the session does not
// pre-validate it.
func (s *Session) Subscribe(topic string, qos QoS) int64 {
	if s.engine == nil {
		s.logger.Warn("subscribe rejected: session not started", zap.String("topic", topic))
		return -1
	}
	if err := s.engine.Subscribe(topic, qos); err != nil {
		s.logger.Warn("subscribe failed", zap.String("topic", topic), zap.Error(err))
		s.reportError(engineErrorCode(err), "subscribe failed")
		return -1
	}

	handle := s.nextSubHandle.Inc()
	s.subMu.Lock()
	s.subscriptions[handle] = topic
	s.subMu.Unlock()
	s.logger.Debug("subscribed", zap.String("topic", topic), zap.Int64("handle", handle))
	return handle
}

// Unsubscribe removes the subscription identified by handle.
//
// An unknown handle is a purely local condition: Unsubscribe returns
// false without contacting the engine and without an OnError call. On
// engine-level failure it reports OnError and returns false, keeping the
// table entry so the local view stays consistent with what the engine
// still believes is subscribed; there is no automatic retry or resync.
func (s *Session) Unsubscribe(handle int64) bool {
	s.subMu.Lock()
	topic, ok := s.subscriptions[handle]
	s.subMu.Unlock()
	if !ok {
		return false
	}
	if s.engine == nil {
		s.logger.Warn("unsubscribe rejected: session not started", zap.Int64("handle", handle))
		return false
	}
	if err := s.engine.Unsubscribe(topic); err != nil {
		s.logger.Warn("unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		s.reportError(engineErrorCode(err), "unsubscribe failed")
		return false
	}

	s.subMu.Lock()
	delete(s.subscriptions, handle)
	s.subMu.Unlock()
	s.logger.Debug("unsubscribed", zap.String("topic", topic), zap.Int64("handle", handle))
	return true
}

// Publish submits one message and returns its message id: session-local,
// starting at 1, strictly increasing and never reused.
//
// The id is allocated before the delivery attempt regardless of outcome,
// so duplicate ids are never issued even under failure; a failed publish
// consumes its id and leaves a visible gap in the sequence. On a session
// that was never started the call is rejected locally and returns -1
// without notifying the SessionHandler. On engine-level failure it
// reports OnError with the engine's code and returns -1.
func (s *Session) Publish(topic string, payload []byte, qos QoS, retained bool) int64 {
	id := s.nextMessageID.Inc()
	if s.engine == nil {
		s.logger.Warn("publish rejected: session not started", zap.String("topic", topic))
		return -1
	}
	if err := s.engine.Publish(topic, payload, qos, retained, id); err != nil {
		s.logger.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
		s.reportError(engineErrorCode(err), "publish failed")
		return -1
	}
	return id
}

// PublishMessage publishes a message described with NewMessage. See
// Publish for the id semantics.
func (s *Session) PublishMessage(msg *Message) int64 {
	return s.Publish(msg.Topic(), msg.Payload(), msg.QoS(), msg.Retained())
}

// onMessageArrived is the inbound delivery trampoline, invoked on the
// engine's delivery goroutine. It snapshots the engine buffers into a
// Message and hands it to the registered handler; without a handler the
// message is dropped.
func (s *Session) onMessageArrived(topic string, payload []byte, qos QoS, retained bool, messageID int64) {
	s.mu.Lock()
	handler := s.messageHandler
	s.mu.Unlock()
	if handler == nil {
		return
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	handler.OnMessage(&Message{
		topic:     topic,
		payload:   buf,
		qos:       qos,
		retained:  retained,
		messageID: messageID,
	})
}

// onConnectionLost is the connection-lost trampoline. The state change is
// notified before the error, in that order.
func (s *Session) onConnectionLost(cause string) {
	if cause == "" {
		cause = "connection lost"
	}
	s.logger.Warn("connection lost", zap.String("cause", cause))
	s.setState(StateReconnecting)
	s.notifyStateChange(StateReconnecting)
	s.reportError(ErrCodeLocal, cause)
}

// onReconnected fires when the engine re-establishes the link. The first
// connect also triggers it; only a loss recovery transitions and
// notifies.
func (s *Session) onReconnected() {
	s.mu.Lock()
	if s.state != StateReconnecting {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	s.mu.Unlock()
	s.logger.Info("reconnected")
	s.notifyStateChange(StateConnected)
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) notifyStateChange(state SessionState) {
	s.mu.Lock()
	h := s.sessionHandler
	s.mu.Unlock()
	if h != nil {
		h.OnStateChange(state)
	}
}

func (s *Session) reportError(code int, message string) {
	s.mu.Lock()
	h := s.sessionHandler
	s.mu.Unlock()
	if h != nil {
		h.OnError(code, message)
	}
}
