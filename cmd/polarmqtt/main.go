// Command polarmqtt is a publish/subscribe/benchmark tool for MQTT
// brokers, built on the polar-mqtt session API.
package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "polarmqtt:", err)
		os.Exit(1)
	}
}
