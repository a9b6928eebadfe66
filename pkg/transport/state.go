// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import "fmt"

// State is a step of a single exchange.
type State uint8

// Exchange states
const (
	StateIdle State = iota
	StateWriting
	StateAwaitingResponse
	StateComplete
	StateTimeout
	StateTransportError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateWriting:
		return "WRITING"
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateComplete:
		return "COMPLETE"
	case StateTimeout:
		return "TIMEOUT"
	case StateTransportError:
		return "TRANSPORT_ERROR"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// transitions lists the legal successor states. Once AwaitingResponse is
// entered there is no path back to Writing.
var transitions = map[State][]State{
	StateIdle:             {StateWriting, StateClosed},
	StateWriting:          {StateAwaitingResponse, StateTransportError},
	StateAwaitingResponse: {StateComplete, StateTimeout, StateTransportError},
	StateComplete:         {StateClosed},
	StateTimeout:          {StateClosed},
	StateTransportError:   {StateClosed},
}

// TransitionFunc observes state changes of an exchange.
type TransitionFunc func(channel string, from, to State)

type exchangeState struct {
	channel string
	state   State
	observe TransitionFunc
}

func (e *exchangeState) to(next State) {
	for _, s := range transitions[e.state] {
		if s == next {
			prev := e.state
			e.state = next
			if e.observe != nil {
				e.observe(e.channel, prev, next)
			}
			return
		}
	}
	panic(fmt.Sprintf("transport: illegal exchange transition %s -> %s", e.state, next))
}
