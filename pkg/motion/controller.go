// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package motion exposes the controller's command surface keyed by axis.
//
// Every call builds a fresh frame, validates it, sends it through the
// transport session on the axis' channel and reports the raw response.
// Nothing is retried here; retry policy belongs to the caller.
package motion

import (
	"context"
	"errors"
	"sync"

	"github.com/Thermoquad/gantry/pkg/journal"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/Thermoquad/gantry/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// Exchanger sends one frame on a channel and returns the response.
// *transport.Session implements it.
type Exchanger interface {
	Exchange(ctx context.Context, channel string, frame stepper.Frame, opts ...transport.Option) (*stepper.Response, error)
}

// Controller drives the three axes through one Exchanger.
type Controller struct {
	builder *stepper.Builder
	link    Exchanger
	sink    journal.Sink
	stats   *stepper.Statistics
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink records every exchange to s.
func WithSink(s journal.Sink) Option {
	return func(c *Controller) { c.sink = s }
}

// WithStatistics accumulates exchange counters into s.
func WithStatistics(s *stepper.Statistics) Option {
	return func(c *Controller) { c.stats = s }
}

// NewController creates a Controller.
func NewController(builder *stepper.Builder, link Exchanger, opts ...Option) *Controller {
	c := &Controller{
		builder: builder,
		link:    link,
		stats:   stepper.NewStatistics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Statistics returns the controller's exchange counters.
func (c *Controller) Statistics() *stepper.Statistics {
	return c.stats
}

// Axes returns the controller's axis table.
func (c *Controller) Axes() stepper.AxisTable {
	return c.builder.Axes()
}

// Do builds cmd, sends it and records the result. Build and channel
// lookup failures return before the Exchanger is touched.
func (c *Controller) Do(ctx context.Context, cmd stepper.Command, opts ...transport.Option) (*stepper.Response, error) {
	logger := log.WithFields(log.Fields{"axis": cmd.Axis, "op": cmd.Op})

	frame, err := c.builder.Build(cmd)
	if err != nil {
		c.stats.Update(nil, err)
		logger.Warnf("rejected: %v", err)
		return nil, err
	}

	channel, err := c.builder.Channel(cmd)
	if err != nil {
		c.stats.Update(nil, err)
		logger.Errorf("no channel: %v", err)
		return nil, err
	}

	resp, err := c.link.Exchange(ctx, channel, frame, opts...)
	c.stats.Update(resp, err)

	if c.sink != nil && resp != nil {
		if serr := c.sink.Record(journal.NewEntry(cmd.Axis, resp, err)); serr != nil {
			logger.Warnf("journal: %v", serr)
		}
	}

	if err != nil {
		return resp, err
	}
	logger.WithField("channel", channel).Infof("%s -> %q", frame, stepper.FormatASCII(resp.Data))
	return resp, nil
}

// Move drives axis to position at speed.
func (c *Controller) Move(ctx context.Context, axis stepper.Axis, speed, position int) (*stepper.Response, error) {
	return c.Do(ctx, stepper.Move(axis, speed, position))
}

// InitializeOrigin runs the origin-return sequence on axis.
func (c *Controller) InitializeOrigin(ctx context.Context, axis stepper.Axis) (*stepper.Response, error) {
	return c.Do(ctx, stepper.InitializeOrigin(axis))
}

// ReadPosition queries the position of axis.
func (c *Controller) ReadPosition(ctx context.Context, axis stepper.Axis) (*stepper.Response, error) {
	return c.Do(ctx, stepper.ReadPosition(axis))
}

// ReadSystemSetting reads system setting id of axis.
func (c *Controller) ReadSystemSetting(ctx context.Context, axis stepper.Axis, id int) (*stepper.Response, error) {
	return c.Do(ctx, stepper.ReadSystemSetting(axis, id))
}

// WriteSystemSetting writes value to system setting id of axis.
func (c *Controller) WriteSystemSetting(ctx context.Context, axis stepper.Axis, id, value int) (*stepper.Response, error) {
	return c.Do(ctx, stepper.WriteSystemSetting(axis, id, value))
}

// WriteMicrostep sets the microstep division of axis.
func (c *Controller) WriteMicrostep(ctx context.Context, axis stepper.Axis, value int) (*stepper.Response, error) {
	return c.Do(ctx, stepper.WriteMicrostep(axis, value))
}

// SetOriginMode selects the origin-return mode of axis.
func (c *Controller) SetOriginMode(ctx context.Context, axis stepper.Axis) (*stepper.Response, error) {
	return c.Do(ctx, stepper.SetOriginMode(axis))
}

// Reset restarts the controller serving axis.
func (c *Controller) Reset(ctx context.Context, axis stepper.Axis) (*stepper.Response, error) {
	return c.Do(ctx, stepper.Reset(axis))
}

// Identify requests the identification string of the controller serving axis.
func (c *Controller) Identify(ctx context.Context, axis stepper.Axis) (*stepper.Response, error) {
	return c.Do(ctx, stepper.Identify(axis))
}

// Result is the outcome of one command within a broadcast.
type Result struct {
	Axis     stepper.Axis
	Channel  string
	Response *stepper.Response
	Err      error
}

// Results is the ordered outcome of a broadcast.
type Results []Result

// Err joins the errors of all failed results.
func (r Results) Err() error {
	var errs []error
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// forEachAxis runs build for X, Y, Z in order. A failure on one axis does
// not stop the others.
func (c *Controller) forEachAxis(ctx context.Context, build func(stepper.Axis) stepper.Command) Results {
	table := c.builder.Axes()
	results := make(Results, 0, len(stepper.Axes))
	for _, axis := range stepper.Axes {
		resp, err := c.Do(ctx, build(axis))
		results = append(results, Result{Axis: axis, Channel: table[axis].Channel, Response: resp, Err: err})
	}
	return results
}

// forEachChannel sends one command per distinct channel, concurrently.
// The command is addressed to the first axis bound to each channel.
func (c *Controller) forEachChannel(ctx context.Context, build func(stepper.Axis) stepper.Command) Results {
	table := c.builder.Axes()
	channels := table.Channels()
	results := make(Results, len(channels))

	var wg sync.WaitGroup
	for i, ch := range channels {
		axis := table.AxesOn(ch)[0]
		wg.Add(1)
		go func(i int, ch string, axis stepper.Axis) {
			defer wg.Done()
			resp, err := c.Do(ctx, build(axis))
			results[i] = Result{Axis: axis, Channel: ch, Response: resp, Err: err}
		}(i, ch, axis)
	}
	wg.Wait()
	return results
}

// HomeAll moves every axis to position 0 at speed.
func (c *Controller) HomeAll(ctx context.Context, speed int) Results {
	return c.forEachAxis(ctx, func(a stepper.Axis) stepper.Command {
		return stepper.Move(a, speed, 0)
	})
}

// InitializeOriginAll runs origin return on every axis.
func (c *Controller) InitializeOriginAll(ctx context.Context) Results {
	return c.forEachAxis(ctx, stepper.InitializeOrigin)
}

// SetOriginModeAll selects the origin-return mode on every axis.
func (c *Controller) SetOriginModeAll(ctx context.Context) Results {
	return c.forEachAxis(ctx, stepper.SetOriginMode)
}

// ReadPositionAll queries every axis.
func (c *Controller) ReadPositionAll(ctx context.Context) Results {
	return c.forEachAxis(ctx, stepper.ReadPosition)
}

// ReadSystemSettingAll reads setting id on every axis.
func (c *Controller) ReadSystemSettingAll(ctx context.Context, id int) Results {
	return c.forEachAxis(ctx, func(a stepper.Axis) stepper.Command {
		return stepper.ReadSystemSetting(a, id)
	})
}

// WriteMicrostepAll sets the microstep division on every axis.
func (c *Controller) WriteMicrostepAll(ctx context.Context, value int) Results {
	return c.forEachAxis(ctx, func(a stepper.Axis) stepper.Command {
		return stepper.WriteMicrostep(a, value)
	})
}

// ResetAll sends one reset per configured channel, so every axis is
// covered exactly once.
func (c *Controller) ResetAll(ctx context.Context) Results {
	return c.forEachChannel(ctx, stepper.Reset)
}

// IdentifyAll requests identification once per configured channel.
func (c *Controller) IdentifyAll(ctx context.Context) Results {
	return c.forEachChannel(ctx, stepper.Identify)
}
