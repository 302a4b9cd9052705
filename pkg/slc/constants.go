// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

// Package slc drives Mightex SLC-series LED controllers over their RS232
// ASCII line protocol.
//
// The package is layered: Transport owns the serial connection and the
// command/response framing, Protocol builds commands and parses typed
// responses, and Controller composes protocol calls into the multi-step
// sequences the device requires (enable, trigger-follower programming).
//
// See the SLC-SA/AA series command reference for the wire protocol
// (9600 baud 8N1, LF+CR terminated commands, CR terminated responses).
package slc

import "time"

// Protocol limits enforced before any command is sent.
const (
	MinChannel    = 1
	MaxChannel    = 4
	MaxStep       = 127
	MaxDurationUS = 99_999_999

	// NORMAL-mode commands accept lower currents than pulsed
	// (STROBE/TRIGGER) commands.
	MaxCurrentNormalMA = 1000
	MaxCurrentPulsedMA = 3500
)

// FollowerDurationUS is the magic step duration that switches a trigger
// profile step from a timed pulse to "follow the trigger input level".
// It is a device sentinel, not a real duration.
const FollowerDurationUS = 9999

// Connection defaults.
const (
	DefaultBaudRate = 9600
	DefaultTimeout  = time.Second
)

// Command/response framing.
const (
	cmdTerminator  = "\n\r" // appended to every outgoing command (LF CR)
	respTerminator = '\r'   // the device ends responses with CR
)

// Mode is a channel's operating mode.
type Mode int

// Channel operating modes.
const (
	ModeDisable Mode = 0
	ModeNormal  Mode = 1
	ModeStrobe  Mode = 2
	ModeTrigger Mode = 3
)

// String returns the device-documentation name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeDisable:
		return "DISABLE"
	case ModeNormal:
		return "NORMAL"
	case ModeStrobe:
		return "STROBE"
	case ModeTrigger:
		return "TRIGGER"
	}
	return "UNKNOWN"
}

// ParseMode converts a raw device mode value into a Mode.
func ParseMode(v int) (Mode, bool) {
	m := Mode(v)
	switch m {
	case ModeDisable, ModeNormal, ModeStrobe, ModeTrigger:
		return m, true
	}
	return 0, false
}

// TriggerPolarity selects which trigger edge activates output in TRIGGER mode.
type TriggerPolarity int

// Trigger edge polarities.
const (
	PolarityRising  TriggerPolarity = 0
	PolarityFalling TriggerPolarity = 1
)

// String returns the configuration-file spelling of the polarity.
func (p TriggerPolarity) String() string {
	if p == PolarityFalling {
		return "falling"
	}
	return "rising"
}

// ParsePolarity converts a configuration string ("rising" or "falling")
// into a TriggerPolarity.
func ParsePolarity(s string) (TriggerPolarity, bool) {
	switch s {
	case "rising":
		return PolarityRising, true
	case "falling":
		return PolarityFalling, true
	}
	return 0, false
}
