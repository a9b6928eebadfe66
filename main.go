// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Gantry - Three-axis stepper controller client
//
// A CLI tool for framing, sending and logging stepper controller commands
// over serial links or a serial-to-WebSocket bridge.

package main

import (
	"os"

	"github.com/Thermoquad/gantry/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
