// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/gantry/pkg/motion"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/spf13/cobra"
)

var moveSpeed int

var moveCmd = &cobra.Command{
	Use:   "move AXIS POSITION",
	Short: "Move an axis to an absolute position",
	Long: `Send an absolute move (APS) to one axis.

The position is checked against the axis bound (0..1000) before anything is
written to the channel. An out-of-range position never reaches the device.

Examples:
  gantry move x 500 --channel x=/dev/ttyUSB0
  gantry move z 0 --speed 8 --channel z=/dev/ttyUSB1`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

var originCmd = &cobra.Command{
	Use:   "origin [AXIS|all]",
	Short: "Run origin return on one or all axes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPerAxis(cmd, args, func(ctx context.Context, c *motion.Controller, a stepper.Axis) (*stepper.Response, error) {
			return c.InitializeOrigin(ctx, a)
		}, func(ctx context.Context, c *motion.Controller) motion.Results {
			return c.InitializeOriginAll(ctx)
		})
	},
}

var originModeCmd = &cobra.Command{
	Use:   "origin-mode [AXIS|all]",
	Short: "Select the origin-return mode on one or all axes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPerAxis(cmd, args, func(ctx context.Context, c *motion.Controller, a stepper.Axis) (*stepper.Response, error) {
			return c.SetOriginMode(ctx, a)
		}, func(ctx context.Context, c *motion.Controller) motion.Results {
			return c.SetOriginModeAll(ctx)
		})
	},
}

var positionCmd = &cobra.Command{
	Use:   "position [AXIS|all]",
	Short: "Read the position of one or all axes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPerAxis(cmd, args, func(ctx context.Context, c *motion.Controller, a stepper.Axis) (*stepper.Response, error) {
			return c.ReadPosition(ctx, a)
		}, func(ctx context.Context, c *motion.Controller) motion.Results {
			return c.ReadPositionAll(ctx)
		})
	},
}

var microstepCmd = &cobra.Command{
	Use:   "microstep AXIS|all VALUE",
	Short: "Write the microstep division (system setting 66)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid microstep value %q", args[1])
		}
		return runPerAxis(cmd, args[:1], func(ctx context.Context, c *motion.Controller, a stepper.Axis) (*stepper.Response, error) {
			return c.WriteMicrostep(ctx, a, value)
		}, func(ctx context.Context, c *motion.Controller) motion.Results {
			return c.WriteMicrostepAll(ctx, value)
		})
	},
}

var settingCmd = &cobra.Command{
	Use:   "setting",
	Short: "Read or write controller system settings",
}

var settingReadCmd = &cobra.Command{
	Use:   "read AXIS|all ID",
	Short: "Read a system setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid setting id %q", args[1])
		}
		return runPerAxis(cmd, args[:1], func(ctx context.Context, c *motion.Controller, a stepper.Axis) (*stepper.Response, error) {
			return c.ReadSystemSetting(ctx, a, id)
		}, func(ctx context.Context, c *motion.Controller) motion.Results {
			return c.ReadSystemSettingAll(ctx, id)
		})
	},
}

var settingWriteCmd = &cobra.Command{
	Use:   "write AXIS ID VALUE",
	Short: "Write a system setting",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid setting id %q", args[1])
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid setting value %q", args[2])
		}
		return runPerAxis(cmd, args[:1], func(ctx context.Context, c *motion.Controller, a stepper.Axis) (*stepper.Response, error) {
			return c.WriteSystemSetting(ctx, a, id, value)
		}, nil)
	},
}

func init() {
	rootCmd.AddCommand(moveCmd, originCmd, originModeCmd, positionCmd, microstepCmd, settingCmd)
	settingCmd.AddCommand(settingReadCmd, settingWriteCmd)

	moveCmd.Flags().IntVarP(&moveSpeed, "speed", "s", stepper.DefaultOriginSpeed, "Move speed")
}

// parseAxisArg accepts x, y, z or "all". An empty argument list means all.
func parseAxisArg(args []string) (axis stepper.Axis, all bool, err error) {
	if len(args) == 0 || strings.EqualFold(args[0], "all") {
		return 0, true, nil
	}
	axis, err = stepper.ParseAxis(args[0])
	return axis, false, err
}

type axisFunc func(ctx context.Context, c *motion.Controller, a stepper.Axis) (*stepper.Response, error)

type allFunc func(ctx context.Context, c *motion.Controller) motion.Results

// runPerAxis dispatches to one or every axis. A nil all rejects "all".
func runPerAxis(cmd *cobra.Command, args []string, one axisFunc, all allFunc) error {
	axis, isAll, err := parseAxisArg(args)
	if err != nil {
		return err
	}
	if isAll && all == nil {
		return fmt.Errorf("%s needs a single axis", cmd.CommandPath())
	}

	conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if isAll {
		results := all(cmd.Context(), conn.ctrl)
		printResults(results)
		return results.Err()
	}
	resp, err := one(cmd.Context(), conn.ctrl, axis)
	printResponse(axis, resp, err)
	return err
}

func runMove(cmd *cobra.Command, args []string) error {
	axis, err := stepper.ParseAxis(args[0])
	if err != nil {
		return err
	}
	position, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid position %q", args[1])
	}

	conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := conn.ctrl.Move(cmd.Context(), axis, moveSpeed, position)
	printResponse(axis, resp, err)
	return err
}

// printResponse prints one line per exchange, including partial responses.
func printResponse(axis stepper.Axis, resp *stepper.Response, err error) {
	if resp == nil {
		fmt.Printf("%s: %v\n", axis, err)
		return
	}
	fmt.Printf("%s: %s\n", axis, stepper.FormatResponse(resp))
	if err != nil {
		fmt.Printf("%s: %v\n", axis, err)
	}
}

func printResults(results motion.Results) {
	for _, r := range results {
		printResponse(r.Axis, r.Response, r.Err)
	}
}
