// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Statistics tracks exchange counts and rates. It is safe for concurrent use.
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalExchanges  uint64
	Completed       uint64
	Timeouts        uint64
	ShortResponses  uint64
	TransportErrors uint64
	Unavailable     uint64
	CallerErrors    uint64
	BytesSent       uint64
	BytesReceived   uint64

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	ErrorRate    float64 // errors/sec
}

// StatisticsSnapshot is a lock-free copy of the counters.
type StatisticsSnapshot struct {
	StartTime       time.Time `json:"start_time"`
	TotalExchanges  uint64    `json:"total_exchanges"`
	Completed       uint64    `json:"completed"`
	Timeouts        uint64    `json:"timeouts"`
	ShortResponses  uint64    `json:"short_responses"`
	TransportErrors uint64    `json:"transport_errors"`
	Unavailable     uint64    `json:"unavailable"`
	CallerErrors    uint64    `json:"caller_errors"`
	BytesSent       uint64    `json:"bytes_sent"`
	BytesReceived   uint64    `json:"bytes_received"`
	ExchangeRate    float64   `json:"exchange_rate"`
	ErrorRate       float64   `json:"error_rate"`
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records the result of one command. resp may be nil when the
// command failed before reaching a channel.
func (s *Statistics) Update(resp *Response, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil && IsCallerError(err) {
		s.CallerErrors++
		s.LastUpdateTime = time.Now()
		return
	}

	s.TotalExchanges++
	if resp != nil {
		// a failed write leaves no reliable count of bytes on the wire
		if resp.Outcome != OutcomeTransportError || !isWriteError(err) {
			s.BytesSent += uint64(len(resp.Sent))
		}
		s.BytesReceived += uint64(len(resp.Data))
	}

	switch {
	case err == nil:
		s.Completed++
	case errors.Is(err, ErrShortResponse):
		s.ShortResponses++
		s.Timeouts++
	case errors.Is(err, ErrTimeout):
		s.Timeouts++
	case errors.Is(err, ErrChannelUnavailable):
		s.Unavailable++
	default:
		s.TransportErrors++
	}

	s.LastUpdateTime = time.Now()
}

func isWriteError(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Op == "write"
}

// CalculateRates calculates exchange and error rates
func (s *Statistics) CalculateRates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.TotalExchanges) / elapsed
		errorCount := s.Timeouts + s.TransportErrors + s.Unavailable
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// Snapshot returns a consistent copy of the counters with fresh rates.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calculateRates()
	return StatisticsSnapshot{
		StartTime:       s.StartTime,
		TotalExchanges:  s.TotalExchanges,
		Completed:       s.Completed,
		Timeouts:        s.Timeouts,
		ShortResponses:  s.ShortResponses,
		TransportErrors: s.TransportErrors,
		Unavailable:     s.Unavailable,
		CallerErrors:    s.CallerErrors,
		BytesSent:       s.BytesSent,
		BytesReceived:   s.BytesReceived,
		ExchangeRate:    s.ExchangeRate,
		ErrorRate:       s.ErrorRate,
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var completePercent, timeoutPercent float64
	if snap.TotalExchanges > 0 {
		completePercent = float64(snap.Completed) * 100.0 / float64(snap.TotalExchanges)
		timeoutPercent = float64(snap.Timeouts) * 100.0 / float64(snap.TotalExchanges)
	}

	elapsed := time.Since(snap.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Exchanges:       %8d\n", snap.TotalExchanges)
	result += fmt.Sprintf("Completed:       %8d (%.1f%%)\n", snap.Completed, completePercent)

	if snap.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d (%.1f%%)\n", snap.Timeouts, timeoutPercent)
		if snap.ShortResponses > 0 {
			result += fmt.Sprintf("  Short Response:   %5d\n", snap.ShortResponses)
		}
	}
	if snap.TransportErrors > 0 {
		result += fmt.Sprintf("Transport Errors:%8d\n", snap.TransportErrors)
	}
	if snap.Unavailable > 0 {
		result += fmt.Sprintf("Unavailable:     %8d\n", snap.Unavailable)
	}
	if snap.CallerErrors > 0 {
		result += fmt.Sprintf("Rejected Cmds:   %8d\n", snap.CallerErrors)
	}

	result += fmt.Sprintf("Bytes Sent:      %8d\n", snap.BytesSent)
	result += fmt.Sprintf("Bytes Received:  %8d\n", snap.BytesReceived)
	result += fmt.Sprintf("Exchange Rate:   %8.1f xchg/sec\n", snap.ExchangeRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalExchanges = 0
	s.Completed = 0
	s.Timeouts = 0
	s.ShortResponses = 0
	s.TransportErrors = 0
	s.Unavailable = 0
	s.CallerErrors = 0
	s.BytesSent = 0
	s.BytesReceived = 0
	s.ExchangeRate = 0
	s.ErrorRate = 0
}
