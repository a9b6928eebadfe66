// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package journal records command/response exchanges.
//
// Sinks are consumers only: the protocol layer never depends on what a sink
// does with an entry, and a failing sink never changes an exchange result.
package journal

import (
	"errors"
	"sync"
	"time"

	"github.com/Thermoquad/gantry/pkg/stepper"
)

// Entry is one recorded exchange.
type Entry struct {
	Time     time.Time     `cbor:"1,keyasint" json:"time"`
	Channel  string        `cbor:"2,keyasint" json:"channel"`
	Axis     string        `cbor:"3,keyasint,omitempty" json:"axis,omitempty"`
	Command  string        `cbor:"4,keyasint" json:"command"`
	Sent     []byte        `cbor:"5,keyasint" json:"sent"`
	Received []byte        `cbor:"6,keyasint" json:"received"`
	Outcome  string        `cbor:"7,keyasint" json:"outcome"`
	Error    string        `cbor:"8,keyasint,omitempty" json:"error,omitempty"`
	Elapsed  time.Duration `cbor:"9,keyasint" json:"elapsed"`
}

// NewEntry builds an Entry from an exchange result.
func NewEntry(axis stepper.Axis, resp *stepper.Response, err error) Entry {
	e := Entry{Time: time.Now()}
	if axis.Valid() {
		e.Axis = axis.String()
	}
	if resp != nil {
		e.Time = resp.Started
		e.Channel = resp.Channel
		e.Command = resp.Sent.String()
		e.Sent = append([]byte(nil), resp.Sent...)
		e.Received = append([]byte(nil), resp.Data...)
		e.Outcome = resp.Outcome.String()
		e.Elapsed = resp.Elapsed
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Response rebuilds the stepper.Response view of the entry.
func (e Entry) Response() *stepper.Response {
	r := &stepper.Response{
		Channel: e.Channel,
		Sent:    stepper.Frame(e.Sent),
		Data:    e.Received,
		Started: e.Time,
		Elapsed: e.Elapsed,
	}
	switch e.Outcome {
	case stepper.OutcomeComplete.String():
		r.Outcome = stepper.OutcomeComplete
	case stepper.OutcomeTimeout.String():
		r.Outcome = stepper.OutcomeTimeout
	case stepper.OutcomeTransportError.String():
		r.Outcome = stepper.OutcomeTransportError
	}
	return r
}

// Sink consumes exchange entries.
type Sink interface {
	Record(e Entry) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(e Entry) error

// Record calls f(e).
func (f SinkFunc) Record(e Entry) error {
	return f(e)
}

// Multi fans an entry out to several sinks, serialising calls so sinks
// need not be safe for concurrent use.
type Multi struct {
	mu    sync.Mutex
	sinks []Sink
}

// NewMulti creates a fan-out sink. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add appends a sink.
func (m *Multi) Add(s Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sinks)
}

// Record delivers e to every sink and joins their errors.
func (m *Multi) Record(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, s := range m.sinks {
		if err := s.Record(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
