package polarmqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
)

// NewPahoEngine is the default EngineFactory. It adapts the Eclipse Paho
// client (github.com/eclipse/paho.mqtt.golang) to the Engine contract.
// Reconnect policy is delegated to paho's auto-reconnect, driven by the
// reconnect delay from the connect options.
func NewPahoEngine(serverURI, clientID string, callbacks EngineCallbacks) (Engine, error) {
	return &pahoEngine{
		serverURI: serverURI,
		clientID:  clientID,
		callbacks: callbacks,
	}, nil
}

type pahoEngine struct {
	serverURI string
	clientID  string
	callbacks EngineCallbacks
	client    mqtt.Client
}

func (e *pahoEngine) Connect(opts ConnectOptions) error {
	co := mqtt.NewClientOptions().
		AddBroker(e.serverURI).
		SetClientID(e.clientID).
		SetKeepAlive(opts.KeepAlive).
		SetCleanSession(opts.CleanSession).
		SetConnectTimeout(opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(opts.ReconnectDelay)

	if opts.MaxQueued > 0 {
		co.SetMessageChannelDepth(uint(opts.MaxQueued))
	}
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	if opts.TLS != nil {
		tlsConfig, err := newTLSConfig(opts.TLS)
		if err != nil {
			return &EngineError{Code: ErrCodeLocal, Reason: "tls setup failed", Err: err}
		}
		co.SetTLSConfig(tlsConfig)
	}

	// The session keeps its own subscription table and dispatches through
	// a single delivery trampoline, so every inbound PUBLISH is routed
	// through the default handler rather than per-subscription callbacks.
	co.SetDefaultPublishHandler(func(_ mqtt.Client, m mqtt.Message) {
		if e.callbacks.OnMessage != nil {
			e.callbacks.OnMessage(m.Topic(), m.Payload(), QoS(m.Qos()), m.Retained(), int64(m.MessageID()))
		}
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if e.callbacks.OnConnectionLost != nil {
			cause := ""
			if err != nil {
				cause = err.Error()
			}
			e.callbacks.OnConnectionLost(cause)
		}
	})
	co.SetOnConnectHandler(func(_ mqtt.Client) {
		if e.callbacks.OnReconnect != nil {
			e.callbacks.OnReconnect()
		}
	})

	e.client = mqtt.NewClient(co)
	return pahoResult(e.client.Connect())
}

func (e *pahoEngine) Disconnect(timeout time.Duration) error {
	if e.client == nil {
		return nil
	}
	e.client.Disconnect(uint(timeout.Milliseconds()))
	return nil
}

func (e *pahoEngine) Subscribe(topic string, qos QoS) error {
	if e.client == nil {
		return &EngineError{Code: ErrCodeLocal, Reason: "not connected"}
	}
	return pahoResult(e.client.Subscribe(topic, byte(qos), nil))
}

func (e *pahoEngine) Unsubscribe(topic string) error {
	if e.client == nil {
		return &EngineError{Code: ErrCodeLocal, Reason: "not connected"}
	}
	return pahoResult(e.client.Unsubscribe(topic))
}

func (e *pahoEngine) Publish(topic string, payload []byte, qos QoS, retained bool, _ int64) error {
	// Paho assigns its own packet identifiers; the session-local message
	// id is bookkeeping only.
	if e.client == nil {
		return &EngineError{Code: ErrCodeLocal, Reason: "not connected"}
	}
	return pahoResult(e.client.Publish(topic, byte(qos), retained, payload))
}

func (e *pahoEngine) Destroy() {
	e.client = nil
}

// pahoResult waits for a paho token and wraps its failure in an
// EngineError carrying the engine-native code.
func pahoResult(t mqtt.Token) error {
	t.Wait()
	err := t.Error()
	if err == nil {
		return nil
	}
	return &EngineError{Code: pahoErrorCode(err), Reason: err.Error(), Err: err}
}

// pahoErrorCode maps paho errors to the CONNACK refusal codes where one
// applies, falling back to ErrCodeLocal for transport-level failures.
func pahoErrorCode(err error) int {
	switch {
	case errors.Is(err, packets.ErrorRefusedBadProtocolVersion):
		return ErrCodeBadProtocolVersion
	case errors.Is(err, packets.ErrorRefusedIDRejected):
		return ErrCodeIdentifierRejected
	case errors.Is(err, packets.ErrorRefusedServerUnavailable):
		return ErrCodeServerUnavailable
	case errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword):
		return ErrCodeBadCredentials
	case errors.Is(err, packets.ErrorRefusedNotAuthorised):
		return ErrCodeNotAuthorized
	default:
		return ErrCodeLocal
	}
}

// newTLSConfig builds a tls.Config from certificate file paths. Any path
// may be empty; an empty CA file falls back to the system roots.
func newTLSConfig(m *TLSMaterial) (*tls.Config, error) {
	cfg := &tls.Config{}
	if m.CAFile != "" {
		pem, err := os.ReadFile(m.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", m.CAFile)
		}
		cfg.RootCAs = pool
	}
	if m.CertFile != "" || m.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(m.CertFile, m.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
