package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	polarmqtt "github.com/jsulmont/polar-mqtt"
)

var (
	flagRetain  bool
	flagPubFile string
)

var pubCmd = &cobra.Command{
	Use:   "pub TOPIC [PAYLOAD]",
	Short: "Publish one message",
	Long: `Publish one message to the broker and exit.

The payload comes from the second argument, from --file, or from stdin
when neither is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPub,
}

func init() {
	pubCmd.Flags().BoolVarP(&flagRetain, "retain", "r", false, "set the retained flag")
	pubCmd.Flags().StringVarP(&flagPubFile, "file", "f", "", "read the payload from a file")
}

func runPub(cmd *cobra.Command, args []string) error {
	topic := args[0]
	if err := polarmqtt.ValidateTopicName(topic); err != nil {
		return fmt.Errorf("invalid topic %q: %w", topic, err)
	}

	payload, err := pubPayload(args)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, cleanup, err := openSession(cfg, reportingHandler())
	if err != nil {
		return err
	}
	defer cleanup()

	id := s.Publish(topic, payload, cfg.qos(), flagRetain)
	if id < 0 {
		return fmt.Errorf("publish to %q failed", topic)
	}
	fmt.Fprintf(os.Stderr, "published message %d to %s (%d bytes)\n", id, topic, len(payload))
	return nil
}

func pubPayload(args []string) ([]byte, error) {
	switch {
	case len(args) == 2 && flagPubFile != "":
		return nil, fmt.Errorf("payload given both as argument and --file")
	case len(args) == 2:
		return []byte(args[1]), nil
	case flagPubFile != "":
		data, err := os.ReadFile(flagPubFile)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		return data, nil
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
}
