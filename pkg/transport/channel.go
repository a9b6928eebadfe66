// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport runs half-duplex command exchanges with the stepper
// controller over serial ports or a serial-to-WebSocket bridge.
package transport

import (
	"io"
	"time"
)

// Channel is a bidirectional byte stream to one controller.
//
// Read must return (0, nil) when the read timeout elapses with no data,
// matching go.bug.st/serial semantics.
type Channel interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadTimeout(t time.Duration) error
}

// InputResetter is implemented by channels that can discard input which
// arrived outside an exchange, such as the tail of a reply that was longer
// than the minimum response length.
type InputResetter interface {
	ResetInputBuffer() error
}

// Opener opens a Channel by name.
type Opener interface {
	Open(name string, cfg Config) (Channel, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(name string, cfg Config) (Channel, error)

// Open calls f(name, cfg).
func (f OpenerFunc) Open(name string, cfg Config) (Channel, error) {
	return f(name, cfg)
}
