package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	polarmqtt "github.com/jsulmont/polar-mqtt"
)

var (
	flagConfig   string
	flagBroker   string
	flagPort     uint16
	flagClientID string
	flagUsername string
	flagPassword string
	flagQoS      int
	flagTLS      bool
	flagCAFile   string
	flagCertFile string
	flagKeyFile  string
	flagDebug    bool
	flagLogFile  string
)

var rootCmd = &cobra.Command{
	Use:           "polarmqtt",
	Short:         "Publish, subscribe and benchmark against an MQTT broker",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "TOML config file")
	pf.StringVarP(&flagBroker, "broker", "b", "", "broker host")
	pf.Uint16VarP(&flagPort, "port", "p", 1883, "broker port")
	pf.StringVarP(&flagClientID, "client-id", "i", "", "client identifier (generated when empty)")
	pf.StringVarP(&flagUsername, "username", "u", "", "username")
	pf.StringVarP(&flagPassword, "password", "P", "", "password")
	pf.IntVarP(&flagQoS, "qos", "q", 1, "quality of service (0, 1 or 2)")
	pf.BoolVar(&flagTLS, "tls", false, "connect over TLS")
	pf.StringVar(&flagCAFile, "ca-file", "", "CA certificate file")
	pf.StringVar(&flagCertFile, "cert-file", "", "client certificate file")
	pf.StringVar(&flagKeyFile, "key-file", "", "client key file")
	pf.BoolVarP(&flagDebug, "debug", "d", false, "debug logging")
	pf.StringVar(&flagLogFile, "log-file", "", "redirect logs to a file")

	rootCmd.AddCommand(pubCmd, subCmd, benchCmd)
}

// resolveConfig merges the optional TOML file with the command-line
// flags. Flags explicitly set on the command line win over file values.
func resolveConfig(cmd *cobra.Command) (*toolConfig, error) {
	cfg := defaultToolConfig()
	if flagConfig != "" {
		loaded, err := loadToolConfig(flagConfig)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("broker") || cfg.Broker == "" {
		cfg.Broker = flagBroker
	}
	if flags.Changed("port") {
		cfg.Port = flagPort
	}
	if flags.Changed("client-id") {
		cfg.ClientID = flagClientID
	}
	if flags.Changed("username") {
		cfg.Username = flagUsername
	}
	if flags.Changed("password") {
		cfg.Password = flagPassword
	}
	if flags.Changed("qos") {
		cfg.QoS = flagQoS
	}
	if flags.Changed("tls") {
		cfg.TLS.Enabled = flagTLS
	}
	if flags.Changed("ca-file") {
		cfg.TLS.CAFile = flagCAFile
	}
	if flags.Changed("cert-file") {
		cfg.TLS.CertFile = flagCertFile
	}
	if flags.Changed("key-file") {
		cfg.TLS.KeyFile = flagKeyFile
	}

	if cfg.Broker == "" {
		return nil, fmt.Errorf("no broker: pass --broker or a config file")
	}
	if cfg.QoS < 0 || cfg.QoS > 2 {
		return nil, fmt.Errorf("qos must be 0, 1 or 2, got %d", cfg.QoS)
	}
	return cfg, nil
}

// openSession acquires the factory, creates a session from the resolved
// config and starts it. The returned cleanup stops and reclaims
// everything; call it exactly once.
func openSession(cfg *toolConfig, handler polarmqtt.SessionHandler) (*polarmqtt.Session, func(), error) {
	f := polarmqtt.GetFactory()
	if err := f.Initialize("polarmqtt", version, flagDebug, flagLogFile); err != nil {
		f.Uninitialize()
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}

	s := f.CreateSession(cfg.ClientID, handler)
	cfg.apply(s.Config())

	if !s.Start() {
		f.DestroySession(s)
		f.Uninitialize()
		return nil, nil, fmt.Errorf("connect to %s:%d failed", cfg.Broker, cfg.Port)
	}

	cleanup := func() {
		s.Stop()
		f.DestroySession(s)
		f.Uninitialize()
	}
	return s, cleanup, nil
}

// reportingHandler prints session events to stderr; the commands share
// it.
func reportingHandler() polarmqtt.SessionHandlerFuncs {
	return polarmqtt.SessionHandlerFuncs{
		StateChange: func(state polarmqtt.SessionState) {
			fmt.Fprintf(os.Stderr, "session %s\n", state)
		},
		Error: func(code int, message string) {
			fmt.Fprintf(os.Stderr, "session error %d: %s\n", code, message)
		},
	}
}
