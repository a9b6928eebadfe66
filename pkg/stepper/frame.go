// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"errors"
	"fmt"
)

// Frame is a complete wire-format command: STX <payload> CR LF.
type Frame []byte

var errMalformedFrame = errors.New("malformed frame")

// NewFrame encodes payload and wraps it with STX and CR LF.
func NewFrame(payload string) (Frame, error) {
	body, err := Encode(payload)
	if err != nil {
		return nil, err
	}

	frame := make(Frame, 0, len(body)+FrameOverhead)
	frame = append(frame, STX)
	frame = append(frame, body...)
	frame = append(frame, CR, LF)
	return frame, nil
}

// ParseFrame validates framing and decodes the payload text.
func ParseFrame(data []byte) (string, error) {
	if len(data) < FrameOverhead {
		return "", fmt.Errorf("%w: %d bytes", errMalformedFrame, len(data))
	}
	if data[0] != STX {
		return "", fmt.Errorf("%w: first byte 0x%02X, want STX", errMalformedFrame, data[0])
	}
	n := len(data)
	if data[n-2] != CR || data[n-1] != LF {
		return "", fmt.Errorf("%w: missing CR LF terminator", errMalformedFrame)
	}
	return Decode(data[1 : n-2])
}

// Payload returns the ASCII payload between the framing bytes.
func (f Frame) Payload() (string, error) {
	return ParseFrame(f)
}

// Hex renders the frame as space-separated uppercase hex pairs.
func (f Frame) Hex() string {
	return FormatHex(f)
}

func (f Frame) String() string {
	p, err := f.Payload()
	if err != nil {
		return f.Hex()
	}
	return p
}
