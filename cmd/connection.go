// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/Thermoquad/gantry/pkg/journal"
	"github.com/Thermoquad/gantry/pkg/motion"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/Thermoquad/gantry/pkg/transport"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// PasswordEnv names the environment variable holding the bridge password.
const PasswordEnv = "GANTRY_PASSWORD"

// connection bundles everything a command needs to talk to the controllers.
type connection struct {
	ctrl    *motion.Controller
	session *transport.Session
	info    string
	closers []io.Closer
}

// Close releases the session and any journal files.
func (c *connection) Close() error {
	errs := []error{c.session.Close()}
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// axisTableFromFlags binds the --channel assignments onto the default table.
func axisTableFromFlags() (stepper.AxisTable, error) {
	if len(channelMap) == 0 {
		return nil, fmt.Errorf("--channel must assign at least one axis (e.g. x=/dev/ttyUSB0)")
	}
	channels, err := stepper.ParseChannelMap(channelMap)
	if err != nil {
		return nil, fmt.Errorf("invalid --channel: %w", err)
	}
	return stepper.DefaultAxisTable().WithChannels(channels), nil
}

// configFromFlags builds the transport configuration.
func configFromFlags() (transport.Config, error) {
	cfg := transport.DefaultConfig()
	cfg.BaudRate = baudRate
	cfg.Timeout = timeout
	cfg.MinResponseBytes = minResponse
	cfg.KeepOpen = keepOpen
	return cfg, cfg.Validate()
}

// openerFromFlags selects serial or WebSocket channels.
func openerFromFlags() (transport.Opener, string, error) {
	if wsURL == "" {
		return transport.SerialOpener{}, fmt.Sprintf("Serial @ %d baud", baudRate), nil
	}

	password := ""
	if wsUsername != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, "", err
		}
	}
	opener := transport.WebSocketOpener{
		BaseURL:       wsURL,
		Username:      wsUsername,
		Password:      password,
		SkipSSLVerify: wsNoSSLVerify,
	}
	// fail on a bad URL before any command is attempted
	if _, err := opener.ChannelURL("probe"); err != nil {
		return nil, "", err
	}
	return opener, fmt.Sprintf("WebSocket: %s", wsURL), nil
}

// sinksFromFlags opens the exchange log sinks requested on the command line.
func sinksFromFlags() (*journal.Multi, []io.Closer, error) {
	sinks := journal.NewMulti()
	var closers []io.Closer

	if logFile != "" {
		s, err := journal.OpenTextFile(logFile)
		if err != nil {
			return nil, nil, err
		}
		sinks.Add(s)
		closers = append(closers, s)
	}
	if journalFile != "" {
		s, err := journal.OpenCBORFile(journalFile)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, err
		}
		sinks.Add(s)
		closers = append(closers, s)
	}
	if verbose {
		sinks.Add(journal.NewLogSink(log.StandardLogger()))
	}
	return sinks, closers, nil
}

// openConnection builds the controller described by the global flags.
func openConnection() (*connection, error) {
	table, err := axisTableFromFlags()
	if err != nil {
		return nil, err
	}
	cfg, err := configFromFlags()
	if err != nil {
		return nil, err
	}
	opener, info, err := openerFromFlags()
	if err != nil {
		return nil, err
	}
	session, err := transport.NewSession(opener, cfg)
	if err != nil {
		return nil, err
	}
	sinks, closers, err := sinksFromFlags()
	if err != nil {
		session.Close()
		return nil, err
	}

	var opts []motion.Option
	if sinks.Len() > 0 {
		opts = append(opts, motion.WithSink(sinks))
	}
	ctrl := motion.NewController(stepper.NewBuilder(table), session, opts...)

	return &connection{
		ctrl:    ctrl,
		session: session,
		info:    fmt.Sprintf("%s | %s", info, describeChannels(table)),
		closers: closers,
	}, nil
}

// describeChannels renders "X=COM3 Y=COM3 Z=-".
func describeChannels(table stepper.AxisTable) string {
	parts := make([]string, 0, len(stepper.Axes))
	for _, a := range stepper.Axes {
		ch := table[a].Channel
		if ch == "" {
			ch = "-"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", a, ch))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
