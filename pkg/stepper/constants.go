// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package stepper implements the command protocol of the three-axis stepper
// motor controller.
//
// Commands are ASCII strings drawn from a restricted alphabet. Each character
// is mapped through the symbol table to a one-byte code and the result is
// framed as STX <payload> CR LF. Responses are opaque: the controller answers
// with a short byte sequence that is only checked for a minimum length.
package stepper

// Protocol framing bytes
const (
	STX = 0x02
	Tab = 0x09
	LF  = 0x0A
	CR  = 0x0D
)

// Frame layout
const (
	FrameOverhead = 3 // STX + CR + LF
)

// Protocol defaults
const (
	DefaultBaudRate         = 115200
	DefaultMinResponseBytes = 4
	DefaultOriginSpeed      = 4
)

// Command mnemonics
const (
	MnemonicMove          = "APS"
	MnemonicOrigin        = "ORG"
	MnemonicReadPosition  = "RDP"
	MnemonicReadSetting   = "RSY"
	MnemonicWriteSetting  = "WSY"
	MnemonicReset         = "RST"
	MnemonicIdentify      = "IDN"
	CommandFieldSeparator = "/"
)

// System setting identifiers
const (
	SettingOriginMode = 2
	SettingMicrostep  = 66
)

// Origin return mode written by SetOriginMode
const OriginModeValue = 4

// Position bound applied to every axis unless overridden
const (
	DefaultPositionMin = 0
	DefaultPositionMax = 1000
)
