// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"strings"
	"time"
)

const timeRounding = time.Millisecond

// Outcome tags how an exchange ended.
type Outcome uint8

// Exchange outcomes
const (
	OutcomeComplete Outcome = iota + 1
	OutcomeTimeout
	OutcomeTransportError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "COMPLETE"
	case OutcomeTimeout:
		return "TIMEOUT"
	case OutcomeTransportError:
		return "TRANSPORT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Response holds the raw bytes collected during one exchange.
// Data may be shorter than the expected minimum only when Outcome is not
// OutcomeComplete.
type Response struct {
	Channel string
	Sent    Frame
	Data    []byte
	Outcome Outcome
	Started time.Time
	Elapsed time.Duration
}

// Complete reports whether the minimum response length was reached.
func (r *Response) Complete() bool {
	return r != nil && r.Outcome == OutcomeComplete
}

// Text returns the response as trimmed ASCII with framing bytes removed.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.Trim(string(r.Data), "\x02\r\n\t ")
}
