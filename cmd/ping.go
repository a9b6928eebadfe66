// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test each channel by sending IDN and timing the reply",
	Long: `Send IDN to the controller on every configured channel and report the
round-trip time of each reply.

This is useful for verifying:
  - Serial ports or the WebSocket bridge are reachable
  - Baud rate and framing are right
  - Controllers answer within --timeout

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings per channel")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 100*time.Millisecond, "Delay between pings")
}

func runPing(cmd *cobra.Command, args []string) error {
	conn, err := openConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Gantry - Ping\n")
	fmt.Printf("Connection: %s\n", conn.info)
	fmt.Printf("Timeout: %v per ping\n", timeout)
	fmt.Printf("Count: %d pings per channel\n\n", pingCount)

	table := conn.ctrl.Axes()
	sent, received := 0, 0

	for _, channel := range table.Channels() {
		axis := table.AxesOn(channel)[0]
		for i := 1; i <= pingCount; i++ {
			fmt.Printf("%s ping %d/%d: ", channel, i, pingCount)
			sent++

			resp, err := conn.ctrl.Identify(cmd.Context(), axis)
			switch {
			case err == nil:
				fmt.Printf("%q, rtt=%v\n", resp.Text(), resp.Elapsed.Round(time.Millisecond))
				received++
			case resp != nil && len(resp.Data) > 0:
				fmt.Printf("PARTIAL %q: %v\n", stepper.FormatASCII(resp.Data), err)
			default:
				fmt.Printf("FAILED: %v\n", err)
			}

			if cmd.Context().Err() != nil {
				break
			}
			if i < pingCount {
				time.Sleep(pingInterval)
			}
		}
	}

	// Summary
	fmt.Printf("\n--- Ping statistics ---\n")
	loss := 0.0
	if sent > 0 {
		loss = float64(sent-received) / float64(sent) * 100
	}
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n", sent, received, loss)

	if received < sent {
		conn.Close()
		os.Exit(1)
	}
	return nil
}
