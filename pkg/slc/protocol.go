// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package slc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DeviceInfo is parsed from the free-form DEVICEINFO status line.
type DeviceInfo struct {
	FirmwareVersion string
	ModuleNumber    string
	SerialNumber    string
}

// ParseDeviceInfo extracts firmware, module and serial numbers from a
// DEVICEINFO response. Parsing is best-effort: any marker not found
// leaves that field as "Unknown". It never fails.
//
// Expected shape:
//
//	Mightex LED Driver:<fw> Device Module No.:<model> Device Serial No.:<sn>
func ParseDeviceInfo(response string) DeviceInfo {
	return DeviceInfo{
		FirmwareVersion: infoField(response, "Driver:"),
		ModuleNumber:    infoField(response, "Module No.:"),
		SerialNumber:    infoField(response, "Serial No.:"),
	}
}

func infoField(response, marker string) string {
	i := strings.Index(response, marker)
	if i < 0 {
		return "Unknown"
	}
	fields := strings.Fields(response[i+len(marker):])
	if len(fields) == 0 {
		return "Unknown"
	}
	return fields[0]
}

// -- Validation -------------------------------------------------------------

func validateChannel(channel int) error {
	if channel < MinChannel || channel > MaxChannel {
		return validationf("channel must be %d-%d, got %d", MinChannel, MaxChannel, channel)
	}
	return nil
}

func validateCurrent(currentMA, maxMA int, label string) error {
	if currentMA < 0 || currentMA > maxMA {
		return validationf("%s must be 0-%d mA, got %d", label, maxMA, currentMA)
	}
	return nil
}

func validateMode(mode Mode) error {
	if _, ok := ParseMode(int(mode)); !ok {
		return validationf("invalid mode %d; expected 0 (DISABLE), 1 (NORMAL), 2 (STROBE) or 3 (TRIGGER)", int(mode))
	}
	return nil
}

func validateStep(step int) error {
	if step < 0 || step > MaxStep {
		return validationf("step must be 0-%d, got %d", MaxStep, step)
	}
	return nil
}

func validateDuration(durationUS int) error {
	if durationUS < 0 || durationUS > MaxDurationUS {
		return validationf("duration must be 0-%d us, got %d", MaxDurationUS, durationUS)
	}
	return nil
}

func validateRepeat(repeat int) error {
	if repeat < 0 {
		return validationf("repeat must be >= 0, got %d", repeat)
	}
	return nil
}

// -- Ack checking -----------------------------------------------------------

// checkAck inspects a response for the controller's error markers and
// returns the response unmodified if none is present.
func checkAck(response, cmd string) (string, error) {
	if strings.HasPrefix(response, "#!") {
		return "", &CommandError{Command: cmd, Response: response, Reason: "controller error"}
	}
	if strings.HasPrefix(response, "#?") {
		return "", &CommandError{Command: cmd, Response: response, Reason: "invalid argument"}
	}
	if strings.Contains(response, "is not defined") {
		return "", &CommandError{Command: cmd, Response: response, Reason: "unknown command"}
	}
	return response, nil
}

func expectAck(response, cmd string) error {
	if _, err := checkAck(response, cmd); err != nil {
		return err
	}
	if !strings.Contains(response, "##") {
		return &CommandError{Command: cmd, Response: response, Reason: "expected '##' acknowledgement"}
	}
	return nil
}

// -- Response parsing -------------------------------------------------------

func parseMode(response string, channel int, cmd string) (Mode, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(response, "#", ""))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &CommandError{Command: cmd, Response: response,
			Reason: fmt.Sprintf("unexpected mode response for channel %d", channel)}
	}
	mode, ok := ParseMode(v)
	if !ok {
		return 0, &CommandError{Command: cmd, Response: response,
			Reason: fmt.Sprintf("unexpected mode response for channel %d", channel)}
	}
	return mode, nil
}

// parseNormalParams extracts (Imax, Iset) from a ?CURRENT response. The
// response carries calibration values first; the last two integers are
// the ones we want.
func parseNormalParams(response, cmd string) (maxMA, setMA int, err error) {
	parts := strings.Fields(strings.ReplaceAll(response, "#", ""))
	if len(parts) < 2 {
		return 0, 0, &CommandError{Command: cmd, Response: response, Reason: "cannot parse normal params"}
	}
	maxMA, err1 := strconv.Atoi(parts[len(parts)-2])
	setMA, err2 := strconv.Atoi(parts[len(parts)-1])
	if err1 != nil || err2 != nil {
		return 0, 0, &CommandError{Command: cmd, Response: response, Reason: "cannot parse normal params"}
	}
	return maxMA, setMA, nil
}

// parseLoadVoltage extracts millivolts from a "#<channel>:<mv>" response.
func parseLoadVoltage(response, cmd string) (int, error) {
	parts := strings.Split(response, ":")
	if len(parts) < 2 {
		return 0, &CommandError{Command: cmd, Response: response, Reason: "cannot parse load voltage"}
	}
	mv, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, &CommandError{Command: cmd, Response: response, Reason: "cannot parse load voltage"}
	}
	return mv, nil
}

// -- Protocol ---------------------------------------------------------------

// Protocol builds commands, sends them through a Transport, and parses
// responses. It borrows the transport; connection lifecycle belongs to
// the Controller.
type Protocol struct {
	tx *Transport
}

// NewProtocol wraps an open Transport.
func NewProtocol(tx *Transport) *Protocol {
	return &Protocol{tx: tx}
}

// Query sends a raw command line, checks the response for controller
// error markers, and returns it verbatim. It is the deliberate escape
// hatch for queries the typed surface does not cover (verification uses
// it for ?TRIGGER and ?TRIGP).
func (p *Protocol) Query(cmd string) (string, error) {
	response, err := p.tx.Send(cmd)
	if err != nil {
		return "", err
	}
	return checkAck(response, cmd)
}

// queryAck sends cmd and asserts the controller returned the ##
// success marker.
func (p *Protocol) queryAck(cmd string) error {
	response, err := p.tx.Send(cmd)
	if err != nil {
		return err
	}
	return expectAck(response, cmd)
}

// DeviceInfo queries model, firmware version, and serial number.
func (p *Protocol) DeviceInfo() (DeviceInfo, error) {
	response, err := p.Query("DEVICEINFO")
	if err != nil {
		return DeviceInfo{}, err
	}
	return ParseDeviceInfo(response), nil
}

// GetMode returns the operating mode of channel.
func (p *Protocol) GetMode(channel int) (Mode, error) {
	if err := validateChannel(channel); err != nil {
		return 0, err
	}
	cmd := fmt.Sprintf("?MODE %d", channel)
	response, err := p.Query(cmd)
	if err != nil {
		return 0, err
	}
	return parseMode(response, channel, cmd)
}

// SetMode switches channel to mode.
func (p *Protocol) SetMode(channel int, mode Mode) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	if err := validateMode(mode); err != nil {
		return err
	}
	return p.queryAck(fmt.Sprintf("MODE %d %d", channel, int(mode)))
}

// SetNormalParams configures NORMAL-mode max and working currents for
// channel. Both are validated against the 1000 mA NORMAL ceiling, and
// the working current must not exceed the max.
func (p *Protocol) SetNormalParams(channel, maxCurrentMA, setCurrentMA int) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	if err := validateCurrent(maxCurrentMA, MaxCurrentNormalMA, "max current"); err != nil {
		return err
	}
	if err := validateCurrent(setCurrentMA, MaxCurrentNormalMA, "set current"); err != nil {
		return err
	}
	if setCurrentMA > maxCurrentMA {
		return validationf("set current (%d mA) cannot exceed max current (%d mA)",
			setCurrentMA, maxCurrentMA)
	}
	return p.queryAck(fmt.Sprintf("NORMAL %d %d %d", channel, maxCurrentMA, setCurrentMA))
}

// SetCurrent quick-sets the working current; the channel must already be
// in NORMAL mode.
func (p *Protocol) SetCurrent(channel, currentMA int) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	if err := validateCurrent(currentMA, MaxCurrentNormalMA, "current"); err != nil {
		return err
	}
	return p.queryAck(fmt.Sprintf("CURRENT %d %d", channel, currentMA))
}

// NormalParams returns (Imax, Iset) in mA for channel.
func (p *Protocol) NormalParams(channel int) (maxMA, setMA int, err error) {
	if err := validateChannel(channel); err != nil {
		return 0, 0, err
	}
	cmd := fmt.Sprintf("?CURRENT %d", channel)
	response, err := p.Query(cmd)
	if err != nil {
		return 0, 0, err
	}
	return parseNormalParams(response, cmd)
}

// LoadVoltage returns the LED load voltage for channel in millivolts.
func (p *Protocol) LoadVoltage(channel int) (int, error) {
	if err := validateChannel(channel); err != nil {
		return 0, err
	}
	cmd := fmt.Sprintf("LoadVoltage %d", channel)
	response, err := p.Query(cmd)
	if err != nil {
		return 0, err
	}
	return parseLoadVoltage(response, cmd)
}

// SetStrobeParams configures strobe mode for channel. The max current is
// validated against the 3500 mA pulsed ceiling; repeat 0 means continuous.
func (p *Protocol) SetStrobeParams(channel, maxCurrentMA, repeat int) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	if err := validateCurrent(maxCurrentMA, MaxCurrentPulsedMA, "max current"); err != nil {
		return err
	}
	if err := validateRepeat(repeat); err != nil {
		return err
	}
	return p.queryAck(fmt.Sprintf("STROBE %d %d %d", channel, maxCurrentMA, repeat))
}

// SetStrobeStep writes one strobe profile step. A (0, 0) step terminates
// the profile.
func (p *Protocol) SetStrobeStep(channel, step, currentMA, durationUS int) error {
	if err := validateProfileStep(channel, step, currentMA, durationUS); err != nil {
		return err
	}
	return p.queryAck(fmt.Sprintf("STRP %d %d %d %d", channel, step, currentMA, durationUS))
}

// SetTriggerParams configures trigger mode for channel.
func (p *Protocol) SetTriggerParams(channel, maxCurrentMA int, polarity TriggerPolarity) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	if err := validateCurrent(maxCurrentMA, MaxCurrentPulsedMA, "max current"); err != nil {
		return err
	}
	return p.queryAck(fmt.Sprintf("TRIGGER %d %d %d", channel, maxCurrentMA, int(polarity)))
}

// SetTriggerStep writes one trigger profile step. A (0, 0) step
// terminates the profile; FollowerDurationUS makes the step follow the
// trigger input level.
func (p *Protocol) SetTriggerStep(channel, step, currentMA, durationUS int) error {
	if err := validateProfileStep(channel, step, currentMA, durationUS); err != nil {
		return err
	}
	return p.queryAck(fmt.Sprintf("TRIGP %d %d %d %d", channel, step, currentMA, durationUS))
}

func validateProfileStep(channel, step, currentMA, durationUS int) error {
	if err := validateChannel(channel); err != nil {
		return err
	}
	if err := validateStep(step); err != nil {
		return err
	}
	if err := validateCurrent(currentMA, MaxCurrentPulsedMA, "current"); err != nil {
		return err
	}
	return validateDuration(durationUS)
}

// StoreSettings saves the current settings to non-volatile memory.
func (p *Protocol) StoreSettings() error { return p.queryAck("STORE") }

// Reset performs a soft reset.
func (p *Protocol) Reset() error { return p.queryAck("RESET") }

// RestoreDefaults restores factory defaults.
func (p *Protocol) RestoreDefaults() error { return p.queryAck("RESTOREDEF") }

// EchoOff disables command echo. The controller does not acknowledge
// ECHOOFF, so this bypasses ack checking, and an empty response (echo
// was already off) is not an error.
func (p *Protocol) EchoOff() error {
	_, err := p.tx.Send("ECHOOFF")
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return nil
	}
	return err
}
