// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/gantry/pkg/journal"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var homeSpeed int

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Move every axis to position 0",
	Long: `Move X, Y and Z to position 0, in that order.

A failure on one axis is reported and the remaining axes are still moved.
Use "origin all" for the controller's own origin-return sequence instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		results := conn.ctrl.HomeAll(cmd.Context(), homeSpeed)
		printResults(results)
		return results.Err()
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset every controller",
	Long: `Send RST once per configured channel.

Axes sharing a channel share a controller, so each controller is reset exactly
once and every configured axis is covered.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		results := conn.ctrl.ResetAll(cmd.Context())
		printResults(results)
		return results.Err()
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Request identification from every controller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		fmt.Printf("Gantry - Controller Info\n")
		fmt.Printf("Connection: %s\n\n", conn.info)

		results := conn.ctrl.IdentifyAll(cmd.Context())
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%-16s error: %v\n", r.Channel, r.Err)
				continue
			}
			fmt.Printf("%-16s %s\n", r.Channel, r.Response.Text())
		}
		fmt.Printf("\n%s", conn.ctrl.Statistics().String())
		return results.Err()
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports available as channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.GetPortsList()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal FILE",
	Short: "Print a CBOR exchange journal as a text log",
	Long: `Decode a journal written with --journal and print each exchange in the
text log format (Time, Command Sent, Response Received, separator).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		entries, readErr := journal.ReadCBOR(f)
		out := journal.NewTextSink(os.Stdout)
		for _, e := range entries {
			if err := out.Record(e); err != nil {
				return err
			}
		}
		if readErr != nil {
			return readErr
		}
		fmt.Printf("%d exchanges\n", len(entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(homeCmd, resetCmd, infoCmd, portsCmd, journalCmd)
	homeCmd.Flags().IntVarP(&homeSpeed, "speed", "s", stepper.DefaultOriginSpeed, "Move speed")
}
