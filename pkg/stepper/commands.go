// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

// Command constructors create Command values ready for Builder.Build.
// A Command carries no state beyond its fields and is rendered to exactly
// one Frame.

// Op identifies the kind of request a Command makes.
type Op uint8

// Command operations
const (
	OpMove Op = iota + 1
	OpInitializeOrigin
	OpReadPosition
	OpReadSetting
	OpWriteSetting
	OpReset
	OpIdentify
)

func (o Op) String() string {
	switch o {
	case OpMove:
		return "MOVE"
	case OpInitializeOrigin:
		return "INITIALIZE_ORIGIN"
	case OpReadPosition:
		return "READ_POSITION"
	case OpReadSetting:
		return "READ_SETTING"
	case OpWriteSetting:
		return "WRITE_SETTING"
	case OpReset:
		return "RESET"
	case OpIdentify:
		return "IDENTIFY"
	default:
		return "UNKNOWN"
	}
}

// Command is a logical request addressed to one axis.
type Command struct {
	Op       Op
	Axis     Axis
	Speed    int
	Position int
	Setting  int
	Value    int
}

// Move drives axis to an absolute position at the given speed.
func Move(axis Axis, speed, position int) Command {
	return Command{Op: OpMove, Axis: axis, Speed: speed, Position: position}
}

// InitializeOrigin sends the axis' origin-return command.
func InitializeOrigin(axis Axis) Command {
	return Command{Op: OpInitializeOrigin, Axis: axis}
}

// ReadPosition requests the current position of axis.
func ReadPosition(axis Axis) Command {
	return Command{Op: OpReadPosition, Axis: axis}
}

// ReadSystemSetting requests system setting id.
func ReadSystemSetting(axis Axis, id int) Command {
	return Command{Op: OpReadSetting, Axis: axis, Setting: id}
}

// WriteSystemSetting writes value to system setting id.
func WriteSystemSetting(axis Axis, id, value int) Command {
	return Command{Op: OpWriteSetting, Axis: axis, Setting: id, Value: value}
}

// WriteMicrostep sets the microstep division (system setting 66).
func WriteMicrostep(axis Axis, value int) Command {
	return WriteSystemSetting(axis, SettingMicrostep, value)
}

// SetOriginMode selects the origin-return mode used by InitializeOrigin.
func SetOriginMode(axis Axis) Command {
	return WriteSystemSetting(axis, SettingOriginMode, OriginModeValue)
}

// Reset restarts the controller on axis' channel. The payload carries no
// axis index; the axis only selects the channel.
func Reset(axis Axis) Command {
	return Command{Op: OpReset, Axis: axis}
}

// Identify requests the controller identification string.
func Identify(axis Axis) Command {
	return Command{Op: OpIdentify, Axis: axis}
}
