// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package stepper

import (
	"fmt"
	"sort"
	"strings"
)

// Axis identifies one logical axis of the stage.
type Axis uint8

// Axis values. The zero value is not a valid axis.
const (
	AxisX Axis = iota + 1
	AxisY
	AxisZ
)

// Axes lists every valid axis in the order commands are broadcast.
var Axes = []Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", uint8(a))
	}
}

// Valid reports whether a is one of X, Y, Z.
func (a Axis) Valid() bool {
	return a >= AxisX && a <= AxisZ
}

// ParseAxis accepts "x", "y", "z" in either case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return AxisX, nil
	case "Y":
		return AxisY, nil
	case "Z":
		return AxisZ, nil
	}
	return 0, &InvalidAxisError{Name: s}
}

// Bound is an inclusive position range in device units.
type Bound struct {
	Min int
	Max int
}

// Contains reports whether v lies within the bound, endpoints included.
func (b Bound) Contains(v int) bool {
	return v >= b.Min && v <= b.Max
}

// AxisBinding ties an axis to its physical channel and to the index the
// controller uses for it inside command payloads.
type AxisBinding struct {
	Channel string
	Index   int
	Origin  string // literal origin-return command payload
	Bound   Bound
}

// AxisTable is the fixed axis lookup. It is treated as immutable once
// handed to a Builder; the With* methods return modified copies.
type AxisTable map[Axis]AxisBinding

// DefaultAxisTable returns the controller's axis indices and origin
// literals. Channel names are left empty: which port serves which axis
// depends on the installation and has to be configured explicitly.
func DefaultAxisTable() AxisTable {
	bound := Bound{Min: DefaultPositionMin, Max: DefaultPositionMax}
	return AxisTable{
		AxisX: {Index: 2, Origin: "ORG2/4/0", Bound: bound},
		AxisY: {Index: 1, Origin: "ORG1/4/0", Bound: bound},
		AxisZ: {Index: 1, Origin: "ORG1/4/0", Bound: bound},
	}
}

// Binding returns the binding for a.
func (t AxisTable) Binding(a Axis) (AxisBinding, error) {
	if !a.Valid() {
		return AxisBinding{}, &InvalidAxisError{Axis: a}
	}
	b, ok := t[a]
	if !ok {
		return AxisBinding{}, &InvalidAxisError{Axis: a}
	}
	return b, nil
}

// Clone returns an independent copy of the table.
func (t AxisTable) Clone() AxisTable {
	c := make(AxisTable, len(t))
	for a, b := range t {
		c[a] = b
	}
	return c
}

// WithChannels returns a copy of t with the given channel assignments.
func (t AxisTable) WithChannels(channels map[Axis]string) AxisTable {
	c := t.Clone()
	for a, ch := range channels {
		b := c[a]
		b.Channel = ch
		c[a] = b
	}
	return c
}

// WithBound returns a copy of t with a replaced position bound for a.
func (t AxisTable) WithBound(a Axis, bound Bound) AxisTable {
	c := t.Clone()
	b := c[a]
	b.Bound = bound
	c[a] = b
	return c
}

// Channels returns the distinct configured channel names, sorted.
func (t AxisTable) Channels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range Axes {
		ch := t[a].Channel
		if ch == "" || seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// AxesOn returns the axes bound to channel, in broadcast order.
func (t AxisTable) AxesOn(channel string) []Axis {
	var out []Axis
	for _, a := range Axes {
		if t[a].Channel == channel {
			out = append(out, a)
		}
	}
	return out
}

// ParseChannelMap parses "x=/dev/ttyUSB0" style assignments as produced by
// a string-to-string flag.
func ParseChannelMap(m map[string]string) (map[Axis]string, error) {
	out := make(map[Axis]string, len(m))
	for k, v := range m {
		a, err := ParseAxis(k)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, fmt.Errorf("empty channel for axis %s", a)
		}
		out[a] = v
	}
	return out, nil
}
