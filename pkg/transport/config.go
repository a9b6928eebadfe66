// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"time"

	"github.com/Thermoquad/gantry/pkg/stepper"
)

// Default session settings
const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// Config is the single set of link parameters a Session is built with.
type Config struct {
	BaudRate         int
	Timeout          time.Duration // per exchange, measured from the end of the write
	MinResponseBytes int
	PollInterval     time.Duration // upper bound on a single blocking read
	KeepOpen         bool          // reuse channels across exchanges
}

// DefaultConfig returns 115200 baud, 10s timeout, 4-byte minimum response.
func DefaultConfig() Config {
	return Config{
		BaudRate:         stepper.DefaultBaudRate,
		Timeout:          DefaultTimeout,
		MinResponseBytes: stepper.DefaultMinResponseBytes,
		PollInterval:     DefaultPollInterval,
	}
}

// Validate checks that every field is usable.
func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.BaudRate)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %v", c.Timeout)
	}
	if c.MinResponseBytes < 1 {
		return fmt.Errorf("invalid minimum response length %d", c.MinResponseBytes)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %v", c.PollInterval)
	}
	return nil
}

// exchangeOptions are the per-call overrides of Config.
type exchangeOptions struct {
	timeout          time.Duration
	minResponseBytes int
}

// Option overrides a Config value for a single exchange.
type Option func(*exchangeOptions)

// WithTimeout overrides the response timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *exchangeOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMinResponse overrides the minimum response length.
func WithMinResponse(n int) Option {
	return func(o *exchangeOptions) {
		if n > 0 {
			o.minResponseBytes = n
		}
	}
}
