// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import "sort"

// Control code names accepted by EncodeControl
const (
	ControlSTX = "STX"
	ControlTab = "Tab"
	ControlLF  = "LF"
	ControlCR  = "CR"
)

// symbolTable maps every printable character the controller accepts to its
// wire code. Lowercase letters and space are deliberately absent.
var symbolTable = map[rune]byte{
	'0': 0x30, '1': 0x31, '2': 0x32, '3': 0x33, '4': 0x34,
	'5': 0x35, '6': 0x36, '7': 0x37, '8': 0x38, '9': 0x39,

	'A': 0x41, 'B': 0x42, 'C': 0x43, 'D': 0x44, 'E': 0x45, 'F': 0x46,
	'G': 0x47, 'H': 0x48, 'I': 0x49, 'J': 0x4A, 'K': 0x4B, 'L': 0x4C,
	'M': 0x4D, 'N': 0x4E, 'O': 0x4F, 'P': 0x50, 'Q': 0x51, 'R': 0x52,
	'S': 0x53, 'T': 0x54, 'U': 0x55, 'V': 0x56, 'W': 0x57, 'X': 0x58,
	'Y': 0x59, 'Z': 0x5A,

	'+': 0x2B, '-': 0x2D, '.': 0x2E, '/': 0x2F, '?': 0x3F,
}

var controlTable = map[string]byte{
	ControlSTX: STX,
	ControlTab: Tab,
	ControlLF:  LF,
	ControlCR:  CR,
}

// reverse lookup, built once from symbolTable
var codeTable = func() map[byte]rune {
	m := make(map[byte]rune, len(symbolTable))
	for r, b := range symbolTable {
		m[b] = r
	}
	return m
}()

// Lookup returns the wire code for a single character.
func Lookup(r rune) (byte, bool) {
	b, ok := symbolTable[r]
	return b, ok
}

// Supported reports whether every character of text is in the symbol table.
func Supported(text string) bool {
	for _, r := range text {
		if _, ok := symbolTable[r]; !ok {
			return false
		}
	}
	return true
}

// Alphabet returns the printable characters of the symbol table in code order.
func Alphabet() []rune {
	runes := make([]rune, 0, len(symbolTable))
	for r := range symbolTable {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool {
		return symbolTable[runes[i]] < symbolTable[runes[j]]
	})
	return runes
}

// Encode converts text to wire codes.
// Encoding is all-or-nothing: the first unmapped character aborts with an
// *UnsupportedCharacterError and no bytes are returned.
func Encode(text string) ([]byte, error) {
	out := make([]byte, 0, len(text))
	pos := 0
	for _, r := range text {
		b, ok := symbolTable[r]
		if !ok {
			return nil, &UnsupportedCharacterError{Char: r, Position: pos}
		}
		out = append(out, b)
		pos++
	}
	return out, nil
}

// EncodeControl returns the byte for a named control code (STX, Tab, LF, CR).
func EncodeControl(name string) (byte, error) {
	b, ok := controlTable[name]
	if !ok {
		return 0, &UnsupportedCharacterError{Name: name}
	}
	return b, nil
}

// Decode is the inverse of Encode over the printable alphabet.
func Decode(data []byte) (string, error) {
	runes := make([]rune, 0, len(data))
	for i, b := range data {
		r, ok := codeTable[b]
		if !ok {
			return "", &UnsupportedCodeError{Code: b, Position: i}
		}
		runes = append(runes, r)
	}
	return string(runes), nil
}
