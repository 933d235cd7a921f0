package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	polarmqtt "github.com/jsulmont/polar-mqtt"
)

// toolConfig is the TOML file schema. Everything has a workable default
// except the broker, which must come from the file or a flag.
//
//	broker = "broker.example"
//	port = 1883
//	client_id = "sensorA"
//	qos = 1
//	keep_alive = 60
//
//	[tls]
//	enabled = true
//	ca_file = "/etc/ssl/ca.pem"
type toolConfig struct {
	Broker        string `toml:"broker" validate:"omitempty,hostname|ip"`
	Port          uint16 `toml:"port" validate:"required"`
	ClientID      string `toml:"client_id" validate:"omitempty,max=65535"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	QoS           int    `toml:"qos" validate:"gte=0,lte=2"`
	KeepAlive     int    `toml:"keep_alive" validate:"gte=0"`
	Timeout       int    `toml:"timeout" validate:"gte=0"`
	CleanSession  bool   `toml:"clean_session"`
	MaxInflight   int    `toml:"max_inflight" validate:"gte=0"`
	MaxQueued     int    `toml:"max_queued" validate:"gte=0"`
	ReconnectWait int    `toml:"reconnect_wait" validate:"gte=0"`

	TLS tlsConfig `toml:"tls"`
}

type tlsConfig struct {
	Enabled  bool   `toml:"enabled"`
	CAFile   string `toml:"ca_file" validate:"omitempty,filepath"`
	CertFile string `toml:"cert_file" validate:"omitempty,filepath"`
	KeyFile  string `toml:"key_file" validate:"omitempty,filepath"`
}

func defaultToolConfig() *toolConfig {
	return &toolConfig{
		Port:          1883,
		QoS:           1,
		KeepAlive:     polarmqtt.DefaultKeepAliveInterval,
		Timeout:       polarmqtt.DefaultConnectionTimeout,
		CleanSession:  true,
		MaxInflight:   polarmqtt.DefaultMaxInflight,
		MaxQueued:     polarmqtt.DefaultMaxQueuedMessages,
		ReconnectWait: polarmqtt.DefaultReconnectDelay,
	}
}

// loadToolConfig reads and validates a TOML config file. Keys absent from
// the file keep their defaults.
func loadToolConfig(path string) (*toolConfig, error) {
	cfg := defaultToolConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// apply writes the resolved settings into a session's ConnectionConfig.
func (c *toolConfig) apply(cc *polarmqtt.ConnectionConfig) {
	cc.SetBroker(c.Broker, c.Port).
		Set(polarmqtt.KeepAliveInterval, c.KeepAlive).
		Set(polarmqtt.ConnectionTimeout, c.Timeout).
		Set(polarmqtt.MaxInflight, c.MaxInflight).
		Set(polarmqtt.MaxQueuedMessages, c.MaxQueued).
		Set(polarmqtt.ReconnectDelay, c.ReconnectWait).
		SetBool(polarmqtt.CleanSession, c.CleanSession)
	if c.Username != "" {
		cc.SetCredentials(c.Username, c.Password)
	}
	if c.TLS.CAFile != "" || c.TLS.CertFile != "" || c.TLS.KeyFile != "" {
		cc.SetTLSCertificates(c.TLS.CAFile, c.TLS.CertFile, c.TLS.KeyFile)
	} else if c.TLS.Enabled {
		cc.SetBool(polarmqtt.TLSEnabled, true)
	}
}

func (c *toolConfig) qos() polarmqtt.QoS {
	return polarmqtt.QoS(c.QoS)
}
