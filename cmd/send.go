// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/gantry/pkg/journal"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/Thermoquad/gantry/pkg/transport"
	"github.com/spf13/cobra"
)

var sendMinResponse int

var sendCmd = &cobra.Command{
	Use:   "send AXIS PAYLOAD",
	Short: "Send a raw payload on an axis' channel",
	Long: `Frame an arbitrary payload and send it on the channel serving AXIS, then
print the exchange in the text log format.

The payload is upper-cased and must use only the controller alphabet
(0-9, A-Z, + - . / ?). No bounds checking is applied.

Example:
  gantry send x RSY2/66 --channel x=/dev/ttyUSB0`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().IntVar(&sendMinResponse, "expect", 0, "Minimum response length for this exchange (default: --min-response)")
}

func runSend(cmd *cobra.Command, args []string) error {
	axis, err := stepper.ParseAxis(args[0])
	if err != nil {
		return err
	}
	frame, err := stepper.NewFrame(strings.ToUpper(args[1]))
	if err != nil {
		return err
	}

	conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	channel, err := stepper.NewBuilder(conn.ctrl.Axes()).Channel(stepper.Identify(axis))
	if err != nil {
		return err
	}

	resp, err := conn.session.Exchange(cmd.Context(), channel, frame, transport.WithMinResponse(sendMinResponse))
	conn.ctrl.Statistics().Update(resp, err)
	if resp != nil {
		entry := journal.NewEntry(axis, resp, err)
		if rerr := journal.NewTextSink(cmd.OutOrStdout()).Record(entry); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", args[1], err)
	}
	return nil
}
