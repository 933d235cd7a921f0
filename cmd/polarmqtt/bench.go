package main

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"

	polarmqtt "github.com/jsulmont/polar-mqtt"
)

var (
	flagBenchCount    int
	flagBenchSize     int
	flagBenchTopic    string
	flagBenchInterval time.Duration
	flagBenchEcho     bool
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Publish a message stream and report the achieved rate",
	Long: `Publish a stream of fixed-size messages as fast as the broker accepts
them and report the achieved rate.

With --echo the tool also subscribes to the benchmark topic and reports
how many of its own messages came back, which exercises the full
broker round trip.`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&flagBenchCount, "count", "n", 1000, "messages to publish")
	benchCmd.Flags().IntVarP(&flagBenchSize, "size", "s", 64, "payload size in bytes")
	benchCmd.Flags().StringVarP(&flagBenchTopic, "topic", "t", "polarmqtt/bench", "benchmark topic")
	benchCmd.Flags().DurationVar(&flagBenchInterval, "interval", 0, "pause between publishes (0 = none)")
	benchCmd.Flags().BoolVar(&flagBenchEcho, "echo", false, "subscribe to the topic and count round trips")
}

func runBench(cmd *cobra.Command, args []string) error {
	if err := polarmqtt.ValidateTopicName(flagBenchTopic); err != nil {
		return fmt.Errorf("invalid topic %q: %w", flagBenchTopic, err)
	}
	if flagBenchCount <= 0 {
		return fmt.Errorf("count must be positive, got %d", flagBenchCount)
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

	var received atomic.Int64
	if flagBenchEcho {
		s.SetMessageHandler(polarmqtt.MessageHandlerFunc(func(*polarmqtt.Message) {
			received.Inc()
		}))
		if s.Subscribe(flagBenchTopic, cfg.qos()) < 0 {
			return fmt.Errorf("subscribe to %q failed", flagBenchTopic)
		}
	}

	payload := bytes.Repeat([]byte("x"), flagBenchSize)
	var failed int
	start := time.Now()
	for i := 0; i < flagBenchCount; i++ {
		if s.Publish(flagBenchTopic, payload, cfg.qos(), false) < 0 {
			failed++
		}
		if flagBenchInterval > 0 {
			time.Sleep(flagBenchInterval)
		}
	}
	elapsed := time.Since(start)

	published := flagBenchCount - failed
	rate := float64(published) / elapsed.Seconds()
	fmt.Printf("published %d/%d messages of %d bytes in %s (%.0f msg/s)\n",
		published, flagBenchCount, flagBenchSize, elapsed.Round(time.Millisecond), rate)

	if flagBenchEcho {
		// Give the tail of the stream a moment to come back.
		deadline := time.Now().Add(5 * time.Second)
		for received.Load() < int64(published) && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
		fmt.Printf("received %d/%d round trips\n", received.Load(), published)
	}
	return nil
}
