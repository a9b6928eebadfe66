// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// SerialChannel wraps a serial port
type SerialChannel struct {
	port serial.Port
	name string
}

func (s *SerialChannel) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialChannel) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialChannel) SetReadTimeout(t time.Duration) error {
	return s.port.SetReadTimeout(t)
}

// ResetInputBuffer drops bytes received but not yet read.
func (s *SerialChannel) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

func (s *SerialChannel) Close() error {
	return s.port.Close()
}

// Name returns the port device name.
func (s *SerialChannel) Name() string {
	return s.name
}

// SerialOpener opens serial ports as 8N1 at the configured baud rate.
type SerialOpener struct{}

// Open opens a serial port channel
func (SerialOpener) Open(name string, cfg Config) (Channel, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	// drop anything left over from an earlier, abandoned exchange
	if err := port.ResetInputBuffer(); err != nil {
		log.WithField("channel", name).Debugf("reset input buffer: %v", err)
	}

	log.WithField("channel", name).Debugf("opened at %d baud", cfg.BaudRate)
	return &SerialChannel{port: port, name: name}, nil
}
