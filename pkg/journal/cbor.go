// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package journal

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode keeps sub-second timestamps, which the default Unix
// integer encoding would drop.
var cborEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor enc mode: %v", err))
	}
	return em
}()

// CBORSink appends entries as a stream of CBOR maps, one per exchange.
type CBORSink struct {
	enc    *cbor.Encoder
	closer io.Closer
}

// NewCBORSink writes to w. The caller keeps ownership of w.
func NewCBORSink(w io.Writer) *CBORSink {
	return &CBORSink{enc: cborEncMode.NewEncoder(w)}
}

// OpenCBORFile opens path for appending, creating it if needed.
func OpenCBORFile(path string) (*CBORSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	return &CBORSink{enc: cborEncMode.NewEncoder(f), closer: f}, nil
}

// Record encodes e.
func (s *CBORSink) Record(e Entry) error {
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}
	return nil
}

// Close closes the underlying file when the sink opened it.
func (s *CBORSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ReadCBOR decodes every entry of a journal stream.
func ReadCBOR(r io.Reader) ([]Entry, error) {
	dec := cbor.NewDecoder(r)
	var entries []Entry
	for {
		var e Entry
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return entries, fmt.Errorf("journal entry %d: %w", len(entries), err)
		}
		entries = append(entries, e)
	}
}
