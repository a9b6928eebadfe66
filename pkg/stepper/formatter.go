// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"fmt"
	"strings"
)

// ExchangeSeparator terminates every FormatExchange block.
const ExchangeSeparator = "----------------------------------------\n"

// FormatHex renders bytes as space-separated uppercase hex pairs.
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// FormatASCII renders bytes as text, escaping control and non-ASCII bytes.
func FormatASCII(data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		switch {
		case b == CR:
			sb.WriteString(`\r`)
		case b == LF:
			sb.WriteString(`\n`)
		case b == Tab:
			sb.WriteString(`\t`)
		case b == STX:
			sb.WriteString("<STX>")
		case b >= 0x20 && b < 0x7F:
			sb.WriteByte(b)
		default:
			fmt.Fprintf(&sb, `\x%02X`, b)
		}
	}
	return sb.String()
}

// FormatResponse formats a response into a single human-readable line.
func FormatResponse(r *Response) string {
	if r == nil {
		return "<no response>"
	}
	timestamp := r.Started.Format("15:04:05.000")
	return fmt.Sprintf("[%s] %s %s sent=%q recv=[%s] %q (%v)",
		timestamp,
		r.Channel,
		r.Outcome,
		r.Sent.String(),
		FormatHex(r.Data),
		FormatASCII(r.Data),
		r.Elapsed.Round(timeRounding))
}

// FormatExchange formats a response as a multi-line log block.
func FormatExchange(r *Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Time: %s\n", r.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Channel: %s\n", r.Channel)
	fmt.Fprintf(&sb, "Command Sent (hex): %s\n", FormatHex(r.Sent))
	fmt.Fprintf(&sb, "Command Sent (ASCII): %s\n", FormatASCII(r.Sent))
	fmt.Fprintf(&sb, "Response Received (hex): %s\n", FormatHex(r.Data))
	fmt.Fprintf(&sb, "Response Received (ASCII): %s\n", FormatASCII(r.Data))
	fmt.Fprintf(&sb, "Outcome: %s\n", r.Outcome)
	sb.WriteString(ExchangeSeparator)
	return sb.String()
}
