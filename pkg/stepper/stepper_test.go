// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in   string
		want Axis
	}{
		{"x", AxisX},
		{"X", AxisX},
		{" y ", AxisY},
		{"Z", AxisZ},
	}
	for _, tt := range tests {
		got, err := ParseAxis(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseAxis("w")
	assert.True(t, errors.Is(err, ErrInvalidAxis))
	assert.Contains(t, err.Error(), `"w"`)
}

func TestAxisTable_Channels(t *testing.T) {
	table := testTable()
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, table.Channels())
	assert.Equal(t, []Axis{AxisX, AxisY}, table.AxesOn("/dev/ttyUSB0"))
	assert.Equal(t, []Axis{AxisZ}, table.AxesOn("/dev/ttyUSB1"))
	assert.Empty(t, DefaultAxisTable().Channels())
}

func TestParseChannelMap(t *testing.T) {
	m, err := ParseChannelMap(map[string]string{"x": "COM3", "Z": "COM4"})
	require.NoError(t, err)
	assert.Equal(t, map[Axis]string{AxisX: "COM3", AxisZ: "COM4"}, m)

	_, err = ParseChannelMap(map[string]string{"q": "COM3"})
	assert.True(t, errors.Is(err, ErrInvalidAxis))

	_, err = ParseChannelMap(map[string]string{"x": ""})
	assert.Error(t, err)
}

func TestParseFrame(t *testing.T) {
	payload, err := ParseFrame([]byte{0x02, 0x52, 0x53, 0x54, 0x0D, 0x0A})
	require.NoError(t, err)
	assert.Equal(t, "RST", payload)

	bad := [][]byte{
		nil,
		{0x02, 0x0D},
		{0x41, 0x0D, 0x0A},
		{0x02, 0x41, 0x0A, 0x0D},
	}
	for _, b := range bad {
		_, err := ParseFrame(b)
		assert.Error(t, err, "% x", b)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		caller    bool
		retryable bool
	}{
		{"unsupported", &UnsupportedCharacterError{Char: 'a'}, true, false},
		{"invalid axis", &InvalidAxisError{Axis: 9}, true, false},
		{"out of bounds", &OutOfBoundsError{Axis: AxisX, Value: 2000}, true, false},
		{"unavailable", &ChannelUnavailableError{Channel: "COM3", Err: io.EOF}, false, true},
		{"transport", &TransportError{Channel: "COM3", Op: "read", Err: io.ErrUnexpectedEOF}, false, true},
		{"timeout", ErrTimeout, false, true},
		{"short", &ShortResponseError{Got: 2, Want: 4}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.caller, IsCallerError(tt.err))
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}

	short := &ShortResponseError{Got: 1, Want: 4}
	assert.True(t, errors.Is(short, ErrTimeout))
	assert.True(t, errors.Is(short, ErrShortResponse))

	te := &TransportError{Channel: "COM3", Op: "write", Err: io.ErrShortWrite}
	assert.True(t, errors.Is(te, io.ErrShortWrite))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "", FormatHex(nil))
	assert.Equal(t, "02 0D 0A", FormatHex([]byte{0x02, 0x0D, 0x0A}))
	assert.Equal(t, `<STX>RST\r\n`, FormatASCII([]byte{0x02, 'R', 'S', 'T', 0x0D, 0x0A}))
	assert.Equal(t, `\xFF`, FormatASCII([]byte{0xFF}))

	frame, err := NewFrame("RDP1")
	require.NoError(t, err)

	resp := &Response{
		Channel: "COM3",
		Sent:    frame,
		Data:    []byte("OK\r\n"),
		Outcome: OutcomeComplete,
		Started: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Elapsed: 12 * time.Millisecond,
	}

	block := FormatExchange(resp)
	assert.Contains(t, block, "Time: 2025-01-02 03:04:05\n")
	assert.Contains(t, block, "Command Sent (hex): 02 52 44 50 31 0D 0A\n")
	assert.Contains(t, block, `Response Received (ASCII): OK\r\n`)
	assert.True(t, strings.HasSuffix(block, strings.Repeat("-", 40)+"\n"))
	assert.Equal(t, strings.Repeat("-", 40)+"\n", ExchangeSeparator)

	line := FormatResponse(resp)
	assert.Contains(t, line, "COMPLETE")
	assert.Contains(t, line, `sent="RDP1"`)
	assert.Equal(t, "OK", resp.Text())
}

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()
	sent := Frame{0x02, 0x52, 0x53, 0x54, 0x0D, 0x0A}

	s.Update(&Response{Sent: sent, Data: []byte("ACK\n"), Outcome: OutcomeComplete}, nil)
	s.Update(&Response{Sent: sent, Data: []byte("A"), Outcome: OutcomeTimeout}, &ShortResponseError{Got: 1, Want: 4})
	s.Update(&Response{Sent: sent, Outcome: OutcomeTimeout}, ErrTimeout)
	s.Update(nil, &ChannelUnavailableError{Channel: "COM9"})
	s.Update(&Response{Sent: sent, Outcome: OutcomeTransportError}, &TransportError{Op: "read", Err: io.EOF})
	s.Update(nil, &OutOfBoundsError{Axis: AxisX, Value: -1})

	snap := s.Snapshot()
	assert.Equal(t, uint64(5), snap.TotalExchanges)
	assert.Equal(t, uint64(1), snap.Completed)
	assert.Equal(t, uint64(2), snap.Timeouts)
	assert.Equal(t, uint64(1), snap.ShortResponses)
	assert.Equal(t, uint64(1), snap.Unavailable)
	assert.Equal(t, uint64(1), snap.TransportErrors)
	assert.Equal(t, uint64(1), snap.CallerErrors)
	assert.Equal(t, uint64(4*len(sent)), snap.BytesSent)
	assert.Equal(t, uint64(5), snap.BytesReceived)

	out := s.String()
	assert.Contains(t, out, "Short Response")
	assert.Contains(t, out, "Rejected Cmds")

	s.Reset()
	assert.Zero(t, s.Snapshot().TotalExchanges)
}

func TestStatistics_WriteFailureSendsNothing(t *testing.T) {
	s := NewStatistics()
	sent := Frame{0x02, 0x52, 0x53, 0x54, 0x0D, 0x0A}

	s.Update(&Response{Sent: sent, Outcome: OutcomeTransportError}, &TransportError{Op: "write", Err: io.ErrShortWrite})
	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.TransportErrors)
	assert.Zero(t, snap.BytesSent)

	// a read failure happens after the frame went out
	s.Update(&Response{Sent: sent, Outcome: OutcomeTransportError}, &TransportError{Op: "read", Err: io.EOF})
	assert.Equal(t, uint64(len(sent)), s.Snapshot().BytesSent)
}
