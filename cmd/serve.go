// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Thermoquad/gantry/pkg/api"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the controller over HTTP",
	Long: `Expose the axis commands as a JSON HTTP API.

Endpoints:
  GET  /version
  GET  /stats
  GET  /axes
  GET  /axes/{axis}/position
  POST /axes/{axis}/move          {"speed": 4, "position": 500}
  POST /axes/{axis}/origin
  POST /axes/{axis}/origin-mode
  GET  /axes/{axis}/settings/{id}
  PUT  /axes/{axis}/settings/{id} {"value": 1}
  PUT  /axes/{axis}/microstep     {"value": 16}
  POST /home?speed=4
  POST /reset
  GET  /identify

Channels are opened per request unless --keep-open is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openConnection()
		if err != nil {
			return err
		}
		defer conn.Close()

		fmt.Printf("Gantry - HTTP API\n")
		fmt.Printf("Connection: %s\n", conn.info)
		fmt.Printf("Listening: %s\n", serveAddr)

		srv := api.NewServer(conn.ctrl, api.Version{Version: buildVersion, BuildDate: buildDate})
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe(serveAddr) }()

		select {
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "Listen address")
}
