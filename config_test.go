package polarmqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnectionConfigDefaults(t *testing.T) {
	opts := NewConnectionConfig().connectOptions()

	assert.Equal(t, 60*time.Second, opts.KeepAlive)
	assert.Equal(t, 30*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 5*time.Second, opts.ReconnectDelay)
	assert.Equal(t, 10, opts.MaxInflight)
	assert.Equal(t, 100, opts.MaxQueued)
	assert.True(t, opts.CleanSession)
	assert.Empty(t, opts.Username)
	assert.Empty(t, opts.Password)
	assert.Nil(t, opts.TLS)
}

func TestConnectionConfigChaining(t *testing.T) {
	cfg := NewConnectionConfig().
		SetBroker("broker.example", 1883).
		SetCredentials("alice", "secret").
		Set(KeepAliveInterval, 15).
		Set(ConnectionTimeout, 5).
		Set(MaxInflight, 20).
		Set(MaxQueuedMessages, 500).
		Set(ReconnectDelay, 1).
		SetBool(CleanSession, false)

	assert.Equal(t, "broker.example", cfg.broker)
	assert.Equal(t, uint16(1883), cfg.port)

	opts := cfg.connectOptions()
	assert.Equal(t, 15*time.Second, opts.KeepAlive)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 20, opts.MaxInflight)
	assert.Equal(t, 500, opts.MaxQueued)
	assert.Equal(t, time.Second, opts.ReconnectDelay)
	assert.False(t, opts.CleanSession)
	assert.Equal(t, "alice", opts.Username)
	assert.Equal(t, "secret", opts.Password)
}

func TestConnectionConfigIgnoresUnrecognizedParameters(t *testing.T) {
	cfg := NewConnectionConfig()
	want := cfg.connectOptions()

	// Unknown parameter values and type-mismatched writes are no-ops.
	cfg.Set(Parameter(99), 7)
	cfg.SetBool(Parameter(99), true)
	cfg.Set(CleanSession, 0)             // bool parameter through the int setter
	cfg.SetBool(KeepAliveInterval, true) // int parameter through the bool setter

	assert.Equal(t, want, cfg.connectOptions())
}

func TestConnectionConfigTLSCertificatesEnableTLS(t *testing.T) {
	cfg := NewConnectionConfig().
		SetTLSCertificates("/certs/ca.pem", "/certs/client.pem", "/certs/client.key")

	assert.True(t, cfg.tlsEnabled)
	opts := cfg.connectOptions()
	assert.NotNil(t, opts.TLS)
	assert.Equal(t, "/certs/ca.pem", opts.TLS.CAFile)
	assert.Equal(t, "/certs/client.pem", opts.TLS.CertFile)
	assert.Equal(t, "/certs/client.key", opts.TLS.KeyFile)
}

func TestConnectionConfigTLSFlagWithoutCertificates(t *testing.T) {
	// TLS can be enabled without client certificates; the engine then
	// uses the system trust store.
	opts := NewConnectionConfig().SetBool(TLSEnabled, true).connectOptions()
	assert.NotNil(t, opts.TLS)
	assert.Empty(t, opts.TLS.CAFile)
}
