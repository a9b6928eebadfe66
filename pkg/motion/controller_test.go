// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package motion

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Thermoquad/gantry/pkg/journal"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/Thermoquad/gantry/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	channel string
	payload string
}

// fakeExchanger answers every frame with "OK\r\n" unless failOn matches.
type fakeExchanger struct {
	mu     sync.Mutex
	calls  []call
	failOn map[string]error
}

func (f *fakeExchanger) Exchange(ctx context.Context, channel string, frame stepper.Frame, opts ...transport.Option) (*stepper.Response, error) {
	payload, err := frame.Payload()
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{channel, payload})
	f.mu.Unlock()

	resp := &stepper.Response{Channel: channel, Sent: frame, Started: time.Now()}
	if err := f.failOn[payload]; err != nil {
		resp.Outcome = stepper.OutcomeTimeout
		return resp, err
	}
	resp.Data = []byte("OK\r\n")
	resp.Outcome = stepper.OutcomeComplete
	return resp, nil
}

func (f *fakeExchanger) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func testBuilder() *stepper.Builder {
	return stepper.NewBuilder(stepper.DefaultAxisTable().WithChannels(map[stepper.Axis]string{
		stepper.AxisX: "COM3",
		stepper.AxisY: "COM3",
		stepper.AxisZ: "COM4",
	}))
}

func TestController_SingleOperations(t *testing.T) {
	ctx := context.Background()
	ex := &fakeExchanger{}
	c := NewController(testBuilder(), ex)

	tests := []struct {
		name string
		run  func() (*stepper.Response, error)
		want call
	}{
		{"move", func() (*stepper.Response, error) { return c.Move(ctx, stepper.AxisX, 4, 500) }, call{"COM3", "APS2/4/500/0"}},
		{"origin", func() (*stepper.Response, error) { return c.InitializeOrigin(ctx, stepper.AxisZ) }, call{"COM4", "ORG1/4/0"}},
		{"read position", func() (*stepper.Response, error) { return c.ReadPosition(ctx, stepper.AxisY) }, call{"COM3", "RDP1"}},
		{"read setting", func() (*stepper.Response, error) { return c.ReadSystemSetting(ctx, stepper.AxisX, 66) }, call{"COM3", "RSY2/66"}},
		{"write setting", func() (*stepper.Response, error) { return c.WriteSystemSetting(ctx, stepper.AxisZ, 7, 1) }, call{"COM4", "WSY1/7/1"}},
		{"microstep", func() (*stepper.Response, error) { return c.WriteMicrostep(ctx, stepper.AxisZ, 16) }, call{"COM4", "WSY1/66/16"}},
		{"origin mode", func() (*stepper.Response, error) { return c.SetOriginMode(ctx, stepper.AxisX) }, call{"COM3", "WSY2/2/4"}},
		{"reset", func() (*stepper.Response, error) { return c.Reset(ctx, stepper.AxisZ) }, call{"COM4", "RST"}},
		{"identify", func() (*stepper.Response, error) { return c.Identify(ctx, stepper.AxisX) }, call{"COM3", "IDN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(ex.Calls())
			resp, err := tt.run()
			require.NoError(t, err)
			assert.True(t, resp.Complete())

			calls := ex.Calls()
			require.Len(t, calls, before+1)
			assert.Equal(t, tt.want, calls[len(calls)-1])
		})
	}

	assert.Equal(t, uint64(len(tests)), c.Statistics().Snapshot().Completed)
}

func TestController_OutOfBoundsNeverReachesChannel(t *testing.T) {
	var opens, writes int32
	opener := transport.OpenerFunc(func(name string, cfg transport.Config) (transport.Channel, error) {
		atomic.AddInt32(&opens, 1)
		return &countingChannel{writes: &writes}, nil
	})
	session, err := transport.NewSession(opener, transport.DefaultConfig())
	require.NoError(t, err)

	var recorded int32
	sink := journal.SinkFunc(func(e journal.Entry) error {
		atomic.AddInt32(&recorded, 1)
		return nil
	})
	c := NewController(testBuilder(), session, WithSink(sink))

	for _, pos := range []int{-4000, -1, 1001, 20000} {
		resp, err := c.Move(context.Background(), stepper.AxisX, 4, pos)
		assert.Nil(t, resp)
		assert.True(t, errors.Is(err, stepper.ErrOutOfBounds))
	}

	assert.Zero(t, atomic.LoadInt32(&opens))
	assert.Zero(t, atomic.LoadInt32(&writes))
	assert.Zero(t, atomic.LoadInt32(&recorded))
	assert.Equal(t, uint64(4), c.Statistics().Snapshot().CallerErrors)
}

func TestController_InvalidAxis(t *testing.T) {
	ex := &fakeExchanger{}
	c := NewController(testBuilder(), ex)

	_, err := c.ReadPosition(context.Background(), stepper.Axis(0))
	assert.True(t, errors.Is(err, stepper.ErrInvalidAxis))
	assert.Empty(t, ex.Calls())
}

func TestController_UnconfiguredChannel(t *testing.T) {
	ex := &fakeExchanger{}
	c := NewController(stepper.NewBuilder(stepper.DefaultAxisTable()), ex)

	_, err := c.ReadPosition(context.Background(), stepper.AxisX)
	assert.True(t, errors.Is(err, stepper.ErrChannelUnavailable))
	assert.Empty(t, ex.Calls())
}

func TestController_HomeAll(t *testing.T) {
	ex := &fakeExchanger{}
	c := NewController(testBuilder(), ex)

	results := c.HomeAll(context.Background(), stepper.DefaultOriginSpeed)
	require.NoError(t, results.Err())
	require.Len(t, results, 3)

	assert.Equal(t, []call{
		{"COM3", "APS2/4/0/0"},
		{"COM3", "APS1/4/0/0"},
		{"COM4", "APS1/4/0/0"},
	}, ex.Calls())
	assert.Equal(t, stepper.AxisZ, results[2].Axis)
	assert.Equal(t, "COM4", results[2].Channel)
}

func TestController_BroadcastContinuesAfterFailure(t *testing.T) {
	ex := &fakeExchanger{failOn: map[string]error{"RSY2/66": stepper.ErrTimeout}}
	c := NewController(testBuilder(), ex)

	results := c.ReadSystemSettingAll(context.Background(), 66)
	require.Len(t, results, 3)
	assert.True(t, errors.Is(results[0].Err, stepper.ErrTimeout))
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.True(t, errors.Is(results.Err(), stepper.ErrTimeout))
	assert.Len(t, ex.Calls(), 3)
}

func TestController_ResetAllOncePerChannel(t *testing.T) {
	ex := &fakeExchanger{}
	c := NewController(testBuilder(), ex)

	results := c.ResetAll(context.Background())
	require.NoError(t, results.Err())
	require.Len(t, results, 2)

	calls := ex.Calls()
	sort.Slice(calls, func(i, j int) bool { return calls[i].channel < calls[j].channel })
	assert.Equal(t, []call{{"COM3", "RST"}, {"COM4", "RST"}}, calls)

	// results follow sorted channel order
	assert.Equal(t, "COM3", results[0].Channel)
	assert.Equal(t, stepper.AxisX, results[0].Axis)
	assert.Equal(t, stepper.AxisZ, results[1].Axis)
}

func TestController_OtherBroadcasts(t *testing.T) {
	ex := &fakeExchanger{}
	c := NewController(testBuilder(), ex)
	ctx := context.Background()

	require.NoError(t, c.WriteMicrostepAll(ctx, 8).Err())
	require.NoError(t, c.InitializeOriginAll(ctx).Err())
	require.NoError(t, c.SetOriginModeAll(ctx).Err())
	require.NoError(t, c.ReadPositionAll(ctx).Err())
	require.NoError(t, c.IdentifyAll(ctx).Err())

	var payloads []string
	for _, cl := range ex.Calls() {
		payloads = append(payloads, cl.payload)
	}
	assert.Subset(t, payloads, []string{
		"WSY2/66/8", "WSY1/66/8",
		"ORG2/4/0", "ORG1/4/0",
		"WSY2/2/4", "WSY1/2/4",
		"RDP2", "RDP1",
		"IDN",
	})
	assert.Len(t, payloads, 3*4+2)
}

func TestController_SinkFailureDoesNotChangeResult(t *testing.T) {
	ex := &fakeExchanger{failOn: map[string]error{"RDP1": &stepper.ShortResponseError{Got: 2, Want: 4}}}

	var entries []journal.Entry
	record := journal.SinkFunc(func(e journal.Entry) error {
		entries = append(entries, e)
		return nil
	})
	broken := journal.SinkFunc(func(e journal.Entry) error { return errors.New("disk full") })
	c := NewController(testBuilder(), ex, WithSink(journal.NewMulti(record, broken)))

	resp, err := c.ReadPosition(context.Background(), stepper.AxisX)
	require.NoError(t, err)
	assert.True(t, resp.Complete())

	resp, err = c.ReadPosition(context.Background(), stepper.AxisZ)
	assert.True(t, errors.Is(err, stepper.ErrShortResponse))
	require.NotNil(t, resp)

	require.Len(t, entries, 2)
	assert.Equal(t, "RDP2", entries[0].Command)
	assert.Equal(t, "Z", entries[1].Axis)
	assert.Contains(t, entries[1].Error, "short response")
}

func TestController_SharedStatistics(t *testing.T) {
	stats := stepper.NewStatistics()
	ex := &fakeExchanger{failOn: map[string]error{"RST": stepper.ErrTimeout}}
	c := NewController(testBuilder(), ex, WithStatistics(stats))

	c.ReadPosition(context.Background(), stepper.AxisX)
	c.Reset(context.Background(), stepper.AxisX)

	snap := stats.Snapshot()
	assert.Same(t, stats, c.Statistics())
	assert.Equal(t, uint64(2), snap.TotalExchanges)
	assert.Equal(t, uint64(1), snap.Timeouts)
}

// countingChannel counts writes; it never answers.
type countingChannel struct {
	writes *int32
}

func (c *countingChannel) Read(p []byte) (int, error) {
	return 0, nil
}

func (c *countingChannel) Write(p []byte) (int, error) {
	atomic.AddInt32(c.writes, 1)
	return len(p), nil
}

func (c *countingChannel) SetReadTimeout(time.Duration) error { return nil }

func (c *countingChannel) Close() error { return nil }
