// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/gantry/pkg/stepper"
	log "github.com/sirupsen/logrus"
)

// Session performs request/response exchanges on named channels.
//
// Each channel is owned by at most one exchange at a time; exchanges on
// distinct channels run concurrently without sharing any mutable state
// besides the slot table.
type Session struct {
	cfg    Config
	opener Opener

	// OnTransition, if set, is called for every exchange state change.
	OnTransition TransitionFunc

	mu     sync.Mutex
	slots  map[string]chan struct{}
	open   map[string]Channel
	closed bool
}

// ErrSessionClosed is wrapped by exchanges attempted after Close.
var ErrSessionClosed = errors.New("session closed")

// NewSession creates a Session. cfg is validated here so that exchanges
// never run with a zero timeout.
func NewSession(opener Opener, cfg Config) (*Session, error) {
	if opener == nil {
		return nil, fmt.Errorf("nil opener")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		cfg:    cfg,
		opener: opener,
		slots:  make(map[string]chan struct{}),
		open:   make(map[string]Channel),
	}, nil
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// slot returns the single-token semaphore guarding channel.
func (s *Session) slot(channel string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[channel]
	if !ok {
		sl = make(chan struct{}, 1)
		s.slots[channel] = sl
	}
	return sl
}

func (s *Session) acquire(ctx context.Context, channel string) (release func(), err error) {
	sl := s.slot(channel)
	select {
	case sl <- struct{}{}:
		return func() { <-sl }, nil
	case <-ctx.Done():
		return nil, &stepper.ChannelUnavailableError{Channel: channel, Err: ctx.Err()}
	}
}

// channelFor returns a cached channel or opens a new one. Caller holds the slot.
func (s *Session) channelFor(channel string) (Channel, error) {
	if s.cfg.KeepOpen {
		s.mu.Lock()
		ch, ok := s.open[channel]
		s.mu.Unlock()
		if ok {
			return ch, nil
		}
	}

	ch, err := s.opener.Open(channel, s.cfg)
	if err != nil {
		return nil, &stepper.ChannelUnavailableError{Channel: channel, Err: err}
	}

	if s.cfg.KeepOpen {
		s.mu.Lock()
		s.open[channel] = ch
		s.mu.Unlock()
	}
	return ch, nil
}

// releaseChannel closes ch unless it is being kept open and healthy.
func (s *Session) releaseChannel(channel string, ch Channel, failed bool) {
	if s.cfg.KeepOpen && !failed {
		return
	}
	if s.cfg.KeepOpen {
		s.mu.Lock()
		delete(s.open, channel)
		s.mu.Unlock()
	}
	if err := ch.Close(); err != nil {
		log.WithField("channel", channel).Warnf("close failed: %v", err)
	}
}

// Exchange writes frame to channel and collects the response.
//
// The returned Response is non-nil whenever the frame was written, including
// on timeout, where it carries whatever bytes arrived. Errors are
// *stepper.ChannelUnavailableError, *stepper.TransportError,
// stepper.ErrTimeout or *stepper.ShortResponseError.
func (s *Session) Exchange(ctx context.Context, channel string, frame stepper.Frame, opts ...Option) (*stepper.Response, error) {
	o := exchangeOptions{
		timeout:          s.cfg.Timeout,
		minResponseBytes: s.cfg.MinResponseBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.WithField("channel", channel)
	st := &exchangeState{channel: channel, state: StateIdle, observe: s.OnTransition}

	release, err := s.acquire(ctx, channel)
	if err != nil {
		st.to(StateClosed)
		return nil, err
	}
	defer release()

	if s.isClosed() {
		st.to(StateClosed)
		return nil, &stepper.ChannelUnavailableError{Channel: channel, Err: ErrSessionClosed}
	}

	ch, err := s.channelFor(channel)
	if err != nil {
		logger.Errorf("open failed: %v", err)
		st.to(StateClosed)
		return nil, err
	}

	failed := true
	defer func() {
		s.releaseChannel(channel, ch, failed)
		st.to(StateClosed)
	}()

	resp := &stepper.Response{
		Channel: channel,
		Sent:    frame,
		Started: time.Now(),
	}

	// a kept-open channel may still hold the tail of the previous reply
	if r, ok := ch.(InputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			logger.Warnf("reset input buffer: %v", err)
		}
	}

	st.to(StateWriting)
	if err := writeFull(ch, frame); err != nil {
		st.to(StateTransportError)
		resp.Outcome = stepper.OutcomeTransportError
		resp.Elapsed = time.Since(resp.Started)
		logger.Errorf("write failed: %v", err)
		return resp, &stepper.TransportError{Channel: channel, Op: "write", Err: err}
	}
	logger.Debugf("Write b='% x'", []byte(frame))

	st.to(StateAwaitingResponse)
	data, err := s.collect(ctx, ch, o)
	resp.Data = data
	resp.Elapsed = time.Since(resp.Started)

	switch {
	case err == nil:
		st.to(StateComplete)
		resp.Outcome = stepper.OutcomeComplete
		failed = false
		logger.Debugf("Read b='% x', n=%v", data, len(data))
		return resp, nil

	case err == errDeadline:
		st.to(StateTimeout)
		resp.Outcome = stepper.OutcomeTimeout
		// a late reply would be misread as the next response
		failed = true
		logger.Warnf("timeout after %v with %d/%d bytes", resp.Elapsed.Round(time.Millisecond), len(data), o.minResponseBytes)
		if len(data) == 0 {
			return resp, stepper.ErrTimeout
		}
		return resp, &stepper.ShortResponseError{Got: len(data), Want: o.minResponseBytes}

	case ctx.Err() != nil && err == ctx.Err():
		st.to(StateTimeout)
		resp.Outcome = stepper.OutcomeTimeout
		logger.Warnf("exchange cancelled: %v", err)
		return resp, fmt.Errorf("exchange on %q cancelled: %w (%w)", channel, err, stepper.ErrTimeout)

	default:
		st.to(StateTransportError)
		resp.Outcome = stepper.OutcomeTransportError
		logger.Errorf("read failed: %v", err)
		return resp, &stepper.TransportError{Channel: channel, Op: "read", Err: err}
	}
}

var errDeadline = errors.New("deadline reached")

// collect reads until minResponseBytes have arrived or the timeout elapses.
// Every read blocks for at most PollInterval and the deadline is checked
// before each one, so the loop never spins and never overruns the timeout
// by more than one poll interval.
func (s *Session) collect(ctx context.Context, ch Channel, o exchangeOptions) ([]byte, error) {
	deadline := time.Now().Add(o.timeout)
	buf := make([]byte, 256)
	var data []byte

	for len(data) < o.minResponseBytes {
		if err := ctx.Err(); err != nil {
			return data, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return data, errDeadline
		}
		wait := remaining
		if wait > s.cfg.PollInterval {
			wait = s.cfg.PollInterval
		}
		if err := ch.SetReadTimeout(wait); err != nil {
			return data, err
		}

		n, err := ch.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}
		if err != nil {
			if err == io.EOF && n > 0 {
				continue
			}
			return data, err
		}
	}
	return data, nil
}

func writeFull(w io.Writer, frame []byte) error {
	written := 0
	for written < len(frame) {
		n, err := w.Write(frame[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		written += n
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close closes every channel held open by the session. An exchange in
// flight on a kept-open channel finishes before its channel is closed;
// exchanges started afterwards fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	// every slot, not just cached channels: an exchange may be opening one
	names := make([]string, 0, len(s.slots))
	for name := range s.slots {
		names = append(names, name)
	}
	s.mu.Unlock()

	var firstErr error
	for _, name := range names {
		sl := s.slot(name)
		sl <- struct{}{}

		s.mu.Lock()
		ch, ok := s.open[name]
		delete(s.open, name)
		s.mu.Unlock()

		if ok {
			if err := ch.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		<-sl
	}
	return firstErr
}
