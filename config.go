package polarmqtt

import "time"

// Parameter identifies a numeric or boolean tuning parameter of a
// ConnectionConfig. The numeric values are part of the C ABI (see capi)
// and must not change.
type Parameter int32

// Recognized configuration parameters. Unrecognized values are accepted
// and ignored by Set and SetBool, never rejected.
const (
	KeepAliveInterval Parameter = 0 // seconds, int
	CleanSession      Parameter = 1 // bool
	ConnectionTimeout Parameter = 2 // seconds, int
	MaxInflight       Parameter = 3 // int
	MaxQueuedMessages Parameter = 4 // int
	ReconnectDelay    Parameter = 5 // seconds, int
	TLSEnabled        Parameter = 6 // bool
)

// Default values applied by NewConnectionConfig.
const (
	DefaultKeepAliveInterval = 60 // seconds
	DefaultConnectionTimeout = 30 // seconds
	DefaultMaxInflight       = 10
	DefaultMaxQueuedMessages = 100
	DefaultReconnectDelay    = 5 // seconds
)

// ConnectionConfig is a mutable value bag of broker parameters, consumed
// by Session.Start. Setters perform no validation and return the config
// itself so call sites can chain them:
//
//	session.Config().
//	    SetBroker("broker.example", 1883).
//	    SetCredentials("user", "secret").
//	    Set(polarmqtt.KeepAliveInterval, 30)
//
// All validation is deferred to Start. A ConnectionConfig is owned by its
// Session; mutating it while the session is started has undefined effect
// on the live connection.
type ConnectionConfig struct {
	broker            string
	port              uint16
	username          string
	password          string
	caFile            string
	certFile          string
	keyFile           string
	keepAliveInterval int
	cleanSession      bool
	connectionTimeout int
	maxInflight       int
	maxQueuedMessages int
	reconnectDelay    int
	tlsEnabled        bool
}

// NewConnectionConfig returns a config carrying the documented defaults:
// keep-alive 60s, connection timeout 30s, max in-flight 10, max queued
// 100, reconnect delay 5s, clean session on, TLS off.
func NewConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		keepAliveInterval: DefaultKeepAliveInterval,
		cleanSession:      true,
		connectionTimeout: DefaultConnectionTimeout,
		maxInflight:       DefaultMaxInflight,
		maxQueuedMessages: DefaultMaxQueuedMessages,
		reconnectDelay:    DefaultReconnectDelay,
	}
}

// Set writes one named integer parameter. An unrecognized parameter, or a
// parameter that is not integer-valued, is a no-op; this lets call sites
// route values through either Set or SetBool defensively.
func (c *ConnectionConfig) Set(param Parameter, value int) *ConnectionConfig {
	switch param {
	case KeepAliveInterval:
		c.keepAliveInterval = value
	case ConnectionTimeout:
		c.connectionTimeout = value
	case MaxInflight:
		c.maxInflight = value
	case MaxQueuedMessages:
		c.maxQueuedMessages = value
	case ReconnectDelay:
		c.reconnectDelay = value
	}
	return c
}

// SetBool writes one named boolean parameter. An unrecognized parameter,
// or a parameter that is not boolean-valued, is a no-op.
func (c *ConnectionConfig) SetBool(param Parameter, value bool) *ConnectionConfig {
	switch param {
	case CleanSession:
		c.cleanSession = value
	case TLSEnabled:
		c.tlsEnabled = value
	}
	return c
}

// SetBroker stores the target host and port. An empty url leaves the
// broker unset; Session.Start rejects an unset broker.
func (c *ConnectionConfig) SetBroker(url string, port uint16) *ConnectionConfig {
	c.broker = url
	c.port = port
	return c
}

// SetCredentials stores the username and password sent during connect.
// Absent values are stored as empty strings.
func (c *ConnectionConfig) SetCredentials(username, password string) *ConnectionConfig {
	c.username = username
	c.password = password
	return c
}

// SetTLSCertificates stores the CA, client certificate and client key file
// paths and unconditionally enables TLS.
func (c *ConnectionConfig) SetTLSCertificates(caFile, certFile, keyFile string) *ConnectionConfig {
	c.caFile = caFile
	c.certFile = certFile
	c.keyFile = keyFile
	c.tlsEnabled = true
	return c
}

// connectOptions snapshots the config into the engine-level options.
func (c *ConnectionConfig) connectOptions() ConnectOptions {
	opts := ConnectOptions{
		KeepAlive:      time.Duration(c.keepAliveInterval) * time.Second,
		CleanSession:   c.cleanSession,
		ConnectTimeout: time.Duration(c.connectionTimeout) * time.Second,
		ReconnectDelay: time.Duration(c.reconnectDelay) * time.Second,
		MaxInflight:    c.maxInflight,
		MaxQueued:      c.maxQueuedMessages,
		Username:       c.username,
		Password:       c.password,
	}
	if c.tlsEnabled {
		opts.TLS = &TLSMaterial{
			CAFile:   c.caFile,
			CertFile: c.certFile,
			KeyFile:  c.keyFile,
		}
	}
	return opts
}
