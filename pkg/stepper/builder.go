// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"fmt"
	"strconv"
	"strings"
)

// Builder renders Commands to Frames using a fixed axis table.
// Build has no side effects and is safe for concurrent use.
type Builder struct {
	axes AxisTable
}

// NewBuilder creates a Builder over a private copy of axes.
func NewBuilder(axes AxisTable) *Builder {
	return &Builder{axes: axes.Clone()}
}

// Axes returns a copy of the builder's axis table.
func (b *Builder) Axes() AxisTable {
	return b.axes.Clone()
}

// Build validates cmd and renders it to a Frame.
// Axis and bound checks happen here, so an invalid command never produces
// bytes that could reach a channel.
func (b *Builder) Build(cmd Command) (Frame, error) {
	payload, err := b.Render(cmd)
	if err != nil {
		return nil, err
	}
	return NewFrame(payload)
}

// Render validates cmd and returns its ASCII payload without framing.
func (b *Builder) Render(cmd Command) (string, error) {
	binding, err := b.axes.Binding(cmd.Axis)
	if err != nil {
		return "", err
	}

	switch cmd.Op {
	case OpMove:
		if !binding.Bound.Contains(cmd.Position) {
			return "", &OutOfBoundsError{Axis: cmd.Axis, Value: cmd.Position, Bound: binding.Bound}
		}
		return join(MnemonicMove+itoa(binding.Index), itoa(cmd.Speed), itoa(cmd.Position), "0"), nil

	case OpInitializeOrigin:
		if binding.Origin == "" {
			return join(MnemonicOrigin+itoa(binding.Index), itoa(DefaultOriginSpeed), "0"), nil
		}
		return binding.Origin, nil

	case OpReadPosition:
		return MnemonicReadPosition + itoa(binding.Index), nil

	case OpReadSetting:
		return join(MnemonicReadSetting+itoa(binding.Index), itoa(cmd.Setting)), nil

	case OpWriteSetting:
		return join(MnemonicWriteSetting+itoa(binding.Index), itoa(cmd.Setting), itoa(cmd.Value)), nil

	case OpReset:
		return MnemonicReset, nil

	case OpIdentify:
		return MnemonicIdentify, nil
	}

	return "", fmt.Errorf("unknown command op %d", uint8(cmd.Op))
}

// Channel returns the channel cmd must be sent on.
func (b *Builder) Channel(cmd Command) (string, error) {
	binding, err := b.axes.Binding(cmd.Axis)
	if err != nil {
		return "", err
	}
	if binding.Channel == "" {
		return "", &ChannelUnavailableError{
			Channel: cmd.Axis.String(),
			Err:     fmt.Errorf("no channel configured for axis %s", cmd.Axis),
		}
	}
	return binding.Channel, nil
}

func join(fields ...string) string {
	return strings.Join(fields, CommandFieldSeparator)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
