// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package journal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Thermoquad/gantry/pkg/stepper"
)

// TextSink appends human-readable exchange blocks to a writer.
type TextSink struct {
	w      io.Writer
	closer io.Closer
}

// NewTextSink writes to w. The caller keeps ownership of w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// OpenTextFile opens path for appending, creating it if needed.
func OpenTextFile(path string) (*TextSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return &TextSink{w: f, closer: f}, nil
}

// Record writes one block per entry.
func (s *TextSink) Record(e Entry) error {
	block := stepper.FormatExchange(e.Response())
	if e.Error != "" {
		block = strings.TrimSuffix(block, stepper.ExchangeSeparator) +
			fmt.Sprintf("Error: %s\n", e.Error) + stepper.ExchangeSeparator
	}
	_, err := io.WriteString(s.w, block)
	return err
}

// Close closes the underlying file when the sink opened it.
func (s *TextSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
