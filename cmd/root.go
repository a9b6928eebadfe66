// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/Thermoquad/gantry/pkg/transport"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// To be set via go build -ldflags "-X github.com/Thermoquad/gantry/cmd.buildVersion=..."
var (
	buildVersion = "1.0.0"
	buildDate    = "unknown"
)

var (
	// Channel flags
	channelMap  map[string]string
	baudRate    int
	timeout     time.Duration
	minResponse int
	keepOpen    bool

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Output flags
	logFile     string
	journalFile string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "gantry",
	Short: "Three-axis stepper controller client",
	Long: `Gantry - drive a three-axis stepper motor controller over serial links.

Each axis (X, Y, Z) is served by a controller on its own channel. Several axes
may share one channel. Commands are framed as STX + ASCII payload + CR LF and
every exchange waits for a bounded response.

Connection modes:
  Serial:    --channel x=/dev/ttyUSB0,y=/dev/ttyUSB0,z=/dev/ttyUSB1 [--baud 115200]
  WebSocket: --channel ... --url ws://host/serial [--username user]

In WebSocket mode each channel name is appended to the bridge URL.
For bridge authentication the password is read from the GANTRY_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.Version = buildVersion

	defaults := transport.DefaultConfig()

	rootCmd.PersistentFlags().StringToStringVarP(&channelMap, "channel", "c", nil, "Axis to channel mapping (x=PORT,y=PORT,z=PORT)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", stepper.DefaultBaudRate, "Baud rate")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", defaults.Timeout, "Response timeout per exchange")
	rootCmd.PersistentFlags().IntVar(&minResponse, "min-response", defaults.MinResponseBytes, "Minimum response length in bytes")
	rootCmd.PersistentFlags().BoolVar(&keepOpen, "keep-open", false, "Keep channels open between exchanges")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge base URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append a text exchange log to this file")
	rootCmd.PersistentFlags().StringVar(&journalFile, "journal", "", "Append a CBOR exchange journal to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func setupLogging() {
	if verbose {
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
		return
	}
	log.SetLevel(log.WarnLevel)
}

// Execute runs the root command. Ctrl+C cancels the exchange in flight.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
