// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var jogCmd = &cobra.Command{
	Use:   "jog",
	Short: "Interactive TUI for jogging the axes",
	Long: `Drive the three axes from an interactive terminal UI.

Features:
  - Axis list with channel and controller index
  - Target position and speed inputs
  - Move, read position and origin return on the selected axis
  - Home all axes and reset all controllers
  - Statistics bar and exchange log

Tab cycles between the axis list, the inputs and the buttons. Arrow keys
navigate the axis list. Enter triggers the focused field.

Shortcuts: p=read position  o=origin  h=home all  r=reset all  q=quit`,
	Args: cobra.NoArgs,
	RunE: runJog,
}

func init() {
	rootCmd.AddCommand(jogCmd)
}

func runJog(cmd *cobra.Command, args []string) error {
	conn, err := openConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	// log lines would tear the alt screen
	level := log.GetLevel()
	log.SetLevel(log.PanicLevel)
	defer log.SetLevel(level)

	m := initialJogModel(cmd.Context(), conn.ctrl, conn.info)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
