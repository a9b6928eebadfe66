// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package journal

import (
	"github.com/Thermoquad/gantry/pkg/stepper"
	log "github.com/sirupsen/logrus"
)

// LogSink emits each entry as a structured log line.
type LogSink struct {
	Logger log.FieldLogger
}

// NewLogSink logs through logger, or the standard logger when nil.
func NewLogSink(logger log.FieldLogger) *LogSink {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogSink{Logger: logger}
}

// Record logs e at Info, or Warn when the exchange failed.
func (s *LogSink) Record(e Entry) error {
	fields := log.Fields{
		"channel": e.Channel,
		"command": e.Command,
		"outcome": e.Outcome,
		"sent":    stepper.FormatHex(e.Sent),
		"recv":    stepper.FormatHex(e.Received),
		"elapsed": e.Elapsed,
	}
	if e.Axis != "" {
		fields["axis"] = e.Axis
	}
	entry := s.Logger.WithFields(fields)
	if e.Error != "" {
		entry.Warn(e.Error)
		return nil
	}
	entry.Info("exchange")
	return nil
}
