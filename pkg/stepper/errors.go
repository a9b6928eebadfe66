// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is against these; the typed errors below
// match the relevant sentinel through their Is methods.
var (
	ErrUnsupportedCharacter = errors.New("unsupported character")
	ErrInvalidAxis          = errors.New("invalid axis")
	ErrOutOfBounds          = errors.New("position out of bounds")
	ErrChannelUnavailable   = errors.New("channel unavailable")
	ErrTransport            = errors.New("transport error")
	ErrTimeout              = errors.New("timeout waiting for response")
	ErrShortResponse        = errors.New("short response")
)

// UnsupportedCharacterError is returned when text contains a character
// outside the symbol table, or a control code name is unknown.
type UnsupportedCharacterError struct {
	Char     rune
	Position int
	Name     string // set for unknown control code names
}

func (e *UnsupportedCharacterError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unsupported control code %q", e.Name)
	}
	return fmt.Sprintf("unsupported character %q at position %d", e.Char, e.Position)
}

func (e *UnsupportedCharacterError) Is(target error) bool {
	return target == ErrUnsupportedCharacter
}

// UnsupportedCodeError is returned by Decode for bytes with no symbol.
type UnsupportedCodeError struct {
	Code     byte
	Position int
}

func (e *UnsupportedCodeError) Error() string {
	return fmt.Sprintf("unsupported code 0x%02X at position %d", e.Code, e.Position)
}

// InvalidAxisError wraps ErrInvalidAxis with the offending value.
type InvalidAxisError struct {
	Axis Axis
	Name string
}

func (e *InvalidAxisError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid axis %q", e.Name)
	}
	return fmt.Sprintf("invalid axis %d", int(e.Axis))
}

func (e *InvalidAxisError) Is(target error) bool {
	return target == ErrInvalidAxis
}

// OutOfBoundsError is returned when a Move target falls outside the axis bound.
type OutOfBoundsError struct {
	Axis  Axis
	Value int
	Bound Bound
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("position %d for axis %s is out of bounds, allowed range %d - %d",
		e.Value, e.Axis, e.Bound.Min, e.Bound.Max)
}

func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// ChannelUnavailableError is returned when a channel cannot be opened or
// acquired. Nothing has been written when this is returned.
type ChannelUnavailableError struct {
	Channel string
	Err     error
}

func (e *ChannelUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("channel %q unavailable", e.Channel)
	}
	return fmt.Sprintf("channel %q unavailable: %v", e.Channel, e.Err)
}

func (e *ChannelUnavailableError) Unwrap() error { return e.Err }

func (e *ChannelUnavailableError) Is(target error) bool {
	return target == ErrChannelUnavailable
}

// TransportError is an I/O failure in the middle of an exchange.
type TransportError struct {
	Channel string
	Op      string // "write" or "read"
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on channel %q failed: %v", e.Op, e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ShortResponseError reports a deadline reached with fewer bytes than
// expected but more than zero. It matches both ErrShortResponse and ErrTimeout.
type ShortResponseError struct {
	Got  int
	Want int
}

func (e *ShortResponseError) Error() string {
	return fmt.Sprintf("short response: got %d bytes, want at least %d", e.Got, e.Want)
}

func (e *ShortResponseError) Is(target error) bool {
	return target == ErrShortResponse || target == ErrTimeout
}

// IsCallerError reports whether err was detected before any I/O.
// These must never be retried.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrUnsupportedCharacter) ||
		errors.Is(err, ErrInvalidAxis) ||
		errors.Is(err, ErrOutOfBounds)
}

// IsRetryable reports whether a caller may rebuild and resend after err.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrChannelUnavailable) ||
		errors.Is(err, ErrTransport)
}
