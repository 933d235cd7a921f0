package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	polarmqtt "github.com/jsulmont/polar-mqtt"
)

var (
	flagWorkers int
	flagVerbose bool
)

var subCmd = &cobra.Command{
	Use:   "sub FILTER [FILTER...]",
	Short: "Subscribe to topic filters and print messages",
	Long: `Subscribe to one or more topic filters and print every message to
stdout until interrupted.

Printing happens on a worker pool so a slow terminal does not stall the
delivery goroutine.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSub,
}

func init() {
	subCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 4, "print worker pool size")
	subCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "print qos, retained flag and message id")
}

func runSub(cmd *cobra.Command, args []string) error {
	for _, filter := range args {
		if err := polarmqtt.ValidateTopicFilter(filter); err != nil {
			return fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	pool, err := ants.NewPool(flagWorkers)
	if err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	s, cleanup, err := openSession(cfg, reportingHandler())
	if err != nil {
		return err
	}
	defer cleanup()

	s.SetMessageHandler(polarmqtt.MessageHandlerFunc(func(msg *polarmqtt.Message) {
		// The message only lives for the duration of the callback; copy
		// what the print job needs before handing it to the pool.
		topic := msg.Topic()
		payload := string(msg.Payload())
		qos := msg.QoS()
		retained := msg.Retained()
		id := msg.MessageID()
		if err := pool.Submit(func() {
			if flagVerbose {
				fmt.Printf("%s qos=%d retained=%t id=%d %s\n", topic, qos, retained, id, payload)
			} else {
				fmt.Printf("%s %s\n", topic, payload)
			}
		}); err != nil {
			fmt.Fprintf(os.Stderr, "dropped message on %s: %v\n", topic, err)
		}
	}))

	handles := make([]int64, 0, len(args))
	for _, filter := range args {
		h := s.Subscribe(filter, cfg.qos())
		if h < 0 {
			return fmt.Errorf("subscribe to %q failed", filter)
		}
		handles = append(handles, h)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	for _, h := range handles {
		s.Unsubscribe(h)
	}
	return nil
}
