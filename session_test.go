package polarmqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEngine is a scripted Engine standing in for the paho-backed one.
type fakeEngine struct {
	uri      string
	clientID string
	cb       EngineCallbacks

	connectErr     error
	subscribeErr   error
	unsubscribeErr error
	publishErr     error

	connects     []ConnectOptions
	subscribes   []string
	unsubscribes []string
	publishes    []fakePublish
	disconnects  int
	destroyed    bool
}

type fakePublish struct {
	topic    string
	payload  []byte
	qos      QoS
	retained bool
	id       int64
}

func (e *fakeEngine) Connect(opts ConnectOptions) error {
	e.connects = append(e.connects, opts)
	return e.connectErr
}

func (e *fakeEngine) Disconnect(time.Duration) error {
	e.disconnects++
	return nil
}

func (e *fakeEngine) Subscribe(topic string, _ QoS) error {
	if e.subscribeErr != nil {
		return e.subscribeErr
	}
	e.subscribes = append(e.subscribes, topic)
	return nil
}

func (e *fakeEngine) Unsubscribe(topic string) error {
	if e.unsubscribeErr != nil {
		return e.unsubscribeErr
	}
	e.unsubscribes = append(e.unsubscribes, topic)
	return nil
}

func (e *fakeEngine) Publish(topic string, payload []byte, qos QoS, retained bool, id int64) error {
	if e.publishErr != nil {
		return e.publishErr
	}
	e.publishes = append(e.publishes, fakePublish{topic, payload, qos, retained, id})
	return nil
}

func (e *fakeEngine) Destroy() { e.destroyed = true }

// recordingHandler records every SessionHandler notification in order.
type recordingHandler struct {
	mu     sync.Mutex
	events []string // "state:<name>" or "error:<code>:<message>"
	states []SessionState
	codes  []int
	msgs   []string
}

func (h *recordingHandler) OnStateChange(state SessionState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "state:"+state.String())
	h.states = append(h.states, state)
}

func (h *recordingHandler) OnError(code int, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "error")
	h.codes = append(h.codes, code)
	h.msgs = append(h.msgs, message)
}

// newTestSession wires a session to a fresh fakeEngine without going
// through the factory singleton.
func newTestSession(t *testing.T, handler SessionHandler) (*Session, *fakeEngine) {
	t.Helper()
	eng := &fakeEngine{}
	s := newSession("sensorA", handler, zap.NewNop())
	s.SetEngineFactory(func(uri, clientID string, cb EngineCallbacks) (Engine, error) {
		eng.uri = uri
		eng.clientID = clientID
		eng.cb = cb
		return eng, nil
	})
	return s, eng
}

func TestStartWithoutBroker(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)

	require.False(t, s.Start())
	assert.Equal(t, StateDisconnected, s.State())
	assert.Empty(t, h.events, "local rejection must not notify the handler")
	assert.Empty(t, eng.connects)
}

func TestStartSuccess(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().
		SetBroker("broker.example", 1883).
		SetCredentials("alice", "secret").
		Set(KeepAliveInterval, 30).
		Set(ReconnectDelay, 2).
		SetBool(CleanSession, false)

	require.True(t, s.Start())
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, []SessionState{StateConnected}, h.states)
	assert.Equal(t, "tcp://broker.example:1883", eng.uri)
	assert.Equal(t, "sensorA", eng.clientID)

	// Every configured field must reach the engine unchanged.
	require.Len(t, eng.connects, 1)
	opts := eng.connects[0]
	assert.Equal(t, 30*time.Second, opts.KeepAlive)
	assert.Equal(t, 2*time.Second, opts.ReconnectDelay)
	assert.Equal(t, 30*time.Second, opts.ConnectTimeout)
	assert.False(t, opts.CleanSession)
	assert.Equal(t, "alice", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.Nil(t, opts.TLS)
}

func TestStartUsesSecureSchemeWithCertificates(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	// TLS_ENABLED is never set explicitly; the certificate setter implies it.
	s.Config().
		SetBroker("broker.example", 8883).
		SetTLSCertificates("/etc/ssl/ca.pem", "/etc/ssl/client.pem", "/etc/ssl/client.key")

	require.True(t, s.Start())
	assert.Equal(t, "ssl://broker.example:8883", eng.uri)
	require.NotNil(t, eng.connects[0].TLS)
	assert.Equal(t, "/etc/ssl/ca.pem", eng.connects[0].TLS.CAFile)
	assert.Equal(t, "/etc/ssl/client.pem", eng.connects[0].TLS.CertFile)
	assert.Equal(t, "/etc/ssl/client.key", eng.connects[0].TLS.KeyFile)
}

func TestStartUsesSecureSchemeWithFlag(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().
		SetBroker("broker.example", 8883).
		SetBool(TLSEnabled, true)

	require.True(t, s.Start())
	assert.Equal(t, "ssl://broker.example:8883", eng.uri)
}

func TestStartConnectFailure(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	eng.connectErr = &EngineError{Code: ErrCodeBadCredentials, Reason: "refused"}

	require.False(t, s.Start())
	assert.Equal(t, StateDisconnected, s.State())
	// Error notification with the engine's native code, no state-change
	// notification for the failed attempt.
	assert.Equal(t, []int{ErrCodeBadCredentials}, h.codes)
	assert.Equal(t, []string{"connection failed"}, h.msgs)
	assert.Empty(t, h.states)
}

func TestStartRebuildsEngineAfterFailure(t *testing.T) {
	h := &recordingHandler{}
	s := newSession("sensorA", h, zap.NewNop())

	// Each start gets a fresh engine; the first one refuses the connect.
	var engines []*fakeEngine
	s.SetEngineFactory(func(uri, clientID string, cb EngineCallbacks) (Engine, error) {
		eng := &fakeEngine{uri: uri, clientID: clientID, cb: cb}
		if len(engines) == 0 {
			eng.connectErr = &EngineError{Code: ErrCodeServerUnavailable, Reason: "refused"}
		}
		engines = append(engines, eng)
		return eng, nil
	})

	s.Config().SetBroker("first.example", 1883)
	require.False(t, s.Start())
	require.Len(t, engines, 1)
	assert.True(t, engines[0].destroyed, "failed attempt must release its engine")

	// With no engine held, operations are back to local rejection.
	assert.Equal(t, int64(-1), s.Subscribe("sensors/a", AtMostOnce))
	assert.Equal(t, []int{ErrCodeServerUnavailable}, h.codes)

	// Reconfiguring the broker and enabling TLS must be visible to the
	// retry, not swallowed by a handle built for the old address.
	s.Config().SetBroker("second.example", 8883).SetBool(TLSEnabled, true)
	require.True(t, s.Start())
	require.Len(t, engines, 2)
	assert.Equal(t, "ssl://second.example:8883", engines[1].uri)
	assert.Equal(t, StateConnected, s.State())
}

func TestStartEngineCreationFailure(t *testing.T) {
	h := &recordingHandler{}
	s := newSession("sensorA", h, zap.NewNop())
	s.SetEngineFactory(func(string, string, EngineCallbacks) (Engine, error) {
		return nil, assert.AnError
	})
	s.Config().SetBroker("broker.example", 1883)

	require.False(t, s.Start())
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, []int{ErrCodeLocal}, h.codes)
}

func TestStopIdempotent(t *testing.T) {
	h := &recordingHandler{}
	s, _ := newTestSession(t, h)

	// Never started: no-op that still succeeds, no notification.
	require.True(t, s.Stop())
	assert.Empty(t, h.events)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestStopAfterStart(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	require.True(t, s.Stop())
	assert.Equal(t, 1, eng.disconnects)
	assert.True(t, eng.destroyed)
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, []SessionState{StateConnected, StateDisconnected}, h.states)

	// Second stop is a no-op: no further notification.
	require.True(t, s.Stop())
	assert.Equal(t, []SessionState{StateConnected, StateDisconnected}, h.states)
}

func TestSubscribeHandlesStrictlyIncreasing(t *testing.T) {
	h := &recordingHandler{}
	s, _ := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	h1 := s.Subscribe("sensors/+/temp", AtLeastOnce)
	h2 := s.Subscribe("sensors/+/humidity", AtMostOnce)
	assert.Equal(t, int64(1), h1)
	assert.Equal(t, int64(2), h2)

	require.True(t, s.Unsubscribe(h1))
	// Handles are never reused, even after unsubscribe.
	h3 := s.Subscribe("sensors/+/pressure", AtLeastOnce)
	assert.Equal(t, int64(3), h3)

	// A consumed handle stays invalid.
	assert.False(t, s.Unsubscribe(h1))
}

func TestSubscribeFailureDoesNotConsumeHandle(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	eng.subscribeErr = &EngineError{Code: 135, Reason: "not authorized"}
	assert.Equal(t, int64(-1), s.Subscribe("forbidden", AtLeastOnce))
	assert.Equal(t, []int{135}, h.codes)
	assert.Equal(t, []string{"subscribe failed"}, h.msgs)

	eng.subscribeErr = nil
	assert.Equal(t, int64(1), s.Subscribe("allowed", AtLeastOnce))
}

func TestSubscribeBeforeStart(t *testing.T) {
	h := &recordingHandler{}
	s, _ := newTestSession(t, h)

	assert.Equal(t, int64(-1), s.Subscribe("sensors/a", AtMostOnce))
	assert.Empty(t, h.events, "local rejection must not notify the handler")
}

func TestUnsubscribeUnknownHandle(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	assert.False(t, s.Unsubscribe(42))
	assert.Empty(t, eng.unsubscribes, "unknown handle must not contact the engine")
	assert.Empty(t, h.codes, "unknown handle is a local condition, not a protocol error")
}

func TestUnsubscribeFailureKeepsEntry(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	handle := s.Subscribe("sensors/a", AtLeastOnce)
	require.Equal(t, int64(1), handle)

	eng.unsubscribeErr = &EngineError{Code: 17, Reason: "no subscription existed"}
	assert.False(t, s.Unsubscribe(handle))
	assert.Equal(t, []int{17}, h.codes)

	// The table entry survives the failure, so a retry can succeed.
	eng.unsubscribeErr = nil
	assert.True(t, s.Unsubscribe(handle))
	assert.Equal(t, []string{"sensors/a"}, eng.unsubscribes)
}

func TestPublishIDsStrictlyIncreasing(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	id1 := s.Publish("sensors/a/temp", []byte("21.5"), AtLeastOnce, false)
	id2 := s.Publish("sensors/a/temp", []byte("21.6"), AtLeastOnce, false)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	require.Len(t, eng.publishes, 2)
	assert.Equal(t, "sensors/a/temp", eng.publishes[0].topic)
	assert.Equal(t, []byte("21.5"), eng.publishes[0].payload)
	assert.Equal(t, AtLeastOnce, eng.publishes[0].qos)
	assert.False(t, eng.publishes[0].retained)
	assert.Equal(t, int64(1), eng.publishes[0].id)
}

func TestPublishFailureConsumesID(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	eng.publishErr = &EngineError{Code: 3, Reason: "server unavailable"}
	assert.Equal(t, int64(-1), s.Publish("t", []byte("x"), AtLeastOnce, false))
	assert.Equal(t, []int{3}, h.codes)

	// The failed publish consumed id 1; the sequence shows the gap.
	eng.publishErr = nil
	assert.Equal(t, int64(2), s.Publish("t", []byte("y"), AtLeastOnce, false))
}

func TestPublishBeforeStart(t *testing.T) {
	h := &recordingHandler{}
	s, _ := newTestSession(t, h)

	assert.Equal(t, int64(-1), s.Publish("t", []byte("x"), AtMostOnce, false))
	assert.Empty(t, h.events)
}

func TestPublishMessage(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	msg := NewMessage("alerts/a", []byte("fire")).WithQoS(ExactlyOnce).WithRetained(true)
	assert.Equal(t, int64(1), s.PublishMessage(msg))
	require.Len(t, eng.publishes, 1)
	assert.Equal(t, "alerts/a", eng.publishes[0].topic)
	assert.Equal(t, ExactlyOnce, eng.publishes[0].qos)
	assert.True(t, eng.publishes[0].retained)
}

func TestConnectionLostNotifiesStateThenError(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	eng.cb.OnConnectionLost("network unreachable")

	assert.Equal(t, StateReconnecting, s.State())
	assert.Equal(t, []SessionState{StateConnected, StateReconnecting}, h.states)
	assert.Equal(t, []int{ErrCodeLocal}, h.codes)
	assert.Equal(t, []string{"network unreachable"}, h.msgs)
	// Strict ordering: the state change is observed before the error.
	assert.Equal(t, []string{"state:connected", "state:reconnecting", "error"}, h.events)
}

func TestConnectionLostFallbackCause(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	eng.cb.OnConnectionLost("")
	assert.Equal(t, []string{"connection lost"}, h.msgs)
}

func TestReconnectRestoresConnected(t *testing.T) {
	h := &recordingHandler{}
	s, eng := newTestSession(t, h)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	// The engine fires the connect hook on the initial connect too; that
	// must not produce a duplicate notification.
	eng.cb.OnReconnect()
	assert.Equal(t, []SessionState{StateConnected}, h.states)

	eng.cb.OnConnectionLost("broken pipe")
	eng.cb.OnReconnect()
	assert.Equal(t, StateConnected, s.State())
	assert.Equal(t, []SessionState{StateConnected, StateReconnecting, StateConnected}, h.states)
}

func TestMessageDelivery(t *testing.T) {
	s, eng := newTestSession(t, &recordingHandler{})
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	var got *Message
	s.SetMessageHandler(MessageHandlerFunc(func(msg *Message) { got = msg }))

	payload := []byte("21.5")
	eng.cb.OnMessage("sensors/a/temp", payload, AtLeastOnce, true, 7)

	require.NotNil(t, got)
	assert.Equal(t, "sensors/a/temp", got.Topic())
	assert.Equal(t, []byte("21.5"), got.Payload())
	assert.Equal(t, 4, got.PayloadLength())
	assert.Equal(t, AtLeastOnce, got.QoS())
	assert.True(t, got.Retained())
	assert.Equal(t, int64(7), got.MessageID())

	// The snapshot owns its payload: mutating the engine buffer after
	// delivery must not be observable.
	payload[0] = 'X'
	assert.Equal(t, []byte("21.5"), got.Payload())
}

func TestMessageDroppedWithoutHandler(t *testing.T) {
	s, eng := newTestSession(t, &recordingHandler{})
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	// No handler registered: the delivery is silently discarded.
	assert.NotPanics(t, func() {
		eng.cb.OnMessage("sensors/a/temp", []byte("21.5"), AtMostOnce, false, 1)
	})
}

func TestHandlerReplacementTakesEffect(t *testing.T) {
	first := &recordingHandler{}
	s, eng := newTestSession(t, first)
	s.Config().SetBroker("broker.example", 1883)
	require.True(t, s.Start())

	second := &recordingHandler{}
	s.SetSessionHandler(second)
	eng.cb.OnConnectionLost("gone")

	// Only the connect notification went to the first handler; no replay
	// of missed events for the second.
	assert.Equal(t, []SessionState{StateConnected}, first.states)
	assert.Equal(t, []SessionState{StateReconnecting}, second.states)
	assert.Equal(t, []string{"gone"}, second.msgs)
}
