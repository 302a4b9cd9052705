// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package slc

import "fmt"

// Controller is the public surface for driving one SLC controller on one
// serial port. It owns the Transport/Protocol pair, created on Connect
// and destroyed on Disconnect, and composes protocol calls into the
// multi-step sequences the device requires.
//
// All I/O is synchronous request/response with a single outstanding
// command; a Controller must not be shared between goroutines.
type Controller struct {
	portName string
	cfg      config
	tx       *Transport
	proto    *Protocol
}

// New creates a controller for the named serial port. No I/O happens
// until Connect.
//
// Example:
//
//	led := slc.New("/dev/ttyUSB0", slc.WithTimeout(2*time.Second))
//	if err := led.Connect(); err != nil { ... }
//	defer led.Disconnect()
func New(portName string, opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Controller{portName: portName, cfg: cfg}
}

// Connect opens the transport and disables command echo. Echo must be
// off for programmatic use, otherwise the device copies every command
// back into its response. Calling Connect while connected is a no-op.
func (c *Controller) Connect() error {
	if c.Connected() {
		return nil
	}
	tx := newTransport(c.portName, c.cfg)
	if err := tx.Open(); err != nil {
		return err
	}
	proto := NewProtocol(tx)
	if err := proto.EchoOff(); err != nil {
		tx.Close()
		return err
	}
	c.tx = tx
	c.proto = proto
	return nil
}

// Disconnect closes the transport. Safe to call when not connected.
func (c *Controller) Disconnect() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Close()
	c.tx = nil
	c.proto = nil
	return err
}

// Connected reports whether the controller has an open connection.
func (c *Controller) Connected() bool {
	return c.tx != nil && c.tx.IsOpen()
}

// Session connects, runs fn, and disconnects on every exit path.
//
//	err := led.Session(func(led *slc.Controller) error {
//		return led.EnableChannel(1, 50, 0)
//	})
func (c *Controller) Session(fn func(*Controller) error) error {
	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Disconnect()
	return fn(c)
}

func (c *Controller) protocol() (*Protocol, error) {
	if !c.Connected() {
		return nil, &ConnectionError{Port: c.portName}
	}
	return c.proto, nil
}

// -- Information ------------------------------------------------------------

// DeviceInfo queries model, firmware version, and serial number.
func (c *Controller) DeviceInfo() (DeviceInfo, error) {
	p, err := c.protocol()
	if err != nil {
		return DeviceInfo{}, err
	}
	return p.DeviceInfo()
}

// GetMode returns the operating mode of channel.
func (c *Controller) GetMode(channel int) (Mode, error) {
	p, err := c.protocol()
	if err != nil {
		return 0, err
	}
	return p.GetMode(channel)
}

// NormalParams returns (Imax, Iset) in mA for channel.
func (c *Controller) NormalParams(channel int) (maxMA, setMA int, err error) {
	p, err := c.protocol()
	if err != nil {
		return 0, 0, err
	}
	return p.NormalParams(channel)
}

// LoadVoltage returns the LED load voltage for channel in millivolts.
func (c *Controller) LoadVoltage(channel int) (int, error) {
	p, err := c.protocol()
	if err != nil {
		return 0, err
	}
	return p.LoadVoltage(channel)
}

// Raw sends one raw command line and returns the error-checked response.
// Intended for diagnostics and verification queries (?TRIGGER, ?TRIGP).
func (c *Controller) Raw(cmd string) (string, error) {
	p, err := c.protocol()
	if err != nil {
		return "", err
	}
	return p.Query(cmd)
}

// -- Channel control --------------------------------------------------------

// SetMode switches channel to mode.
func (c *Controller) SetMode(channel int, mode Mode) error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.SetMode(channel, mode)
}

// SetCurrent quick-sets the working current of a channel already in
// NORMAL mode.
func (c *Controller) SetCurrent(channel, currentMA int) error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.SetCurrent(channel, currentMA)
}

// EnableChannel configures NORMAL-mode currents and then switches the
// channel into NORMAL mode. If the parameter write fails the mode switch
// is never attempted. maxCurrentMA <= 0 defaults to twice currentMA.
func (c *Controller) EnableChannel(channel, currentMA, maxCurrentMA int) error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	if maxCurrentMA <= 0 {
		maxCurrentMA = currentMA * 2
	}
	if err := p.SetNormalParams(channel, maxCurrentMA, currentMA); err != nil {
		return err
	}
	return p.SetMode(channel, ModeNormal)
}

// DisableChannel turns the LED off by switching the channel to DISABLE.
func (c *Controller) DisableChannel(channel int) error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.SetMode(channel, ModeDisable)
}

// SetStrobeParams configures strobe mode for channel.
func (c *Controller) SetStrobeParams(channel, maxCurrentMA, repeat int) error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.SetStrobeParams(channel, maxCurrentMA, repeat)
}

// SetStrobeStep writes one strobe profile step.
func (c *Controller) SetStrobeStep(channel, step, currentMA, durationUS int) error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.SetStrobeStep(channel, step, currentMA, durationUS)
}

// SetTriggerFollower programs channel so its output follows the trigger
// input level, executing the device's required sequence in order:
//
//  1. MODE ch 0: force a known state before reconfiguring
//  2. TRIGGER ch Imax p: trigger-mode envelope
//  3. TRIGP ch 0 Iset 9999: step 0 with the follower sentinel duration
//  4. TRIGP ch 1 0 0: end-of-profile terminator
//  5. MODE ch 3: arm TRIGGER only once the profile is complete
//
// Any step failing aborts the remainder. Arming last avoids the device
// triggering with a stale or partial profile. maxCurrentMA <= 0 defaults
// to currentMA.
func (c *Controller) SetTriggerFollower(channel, currentMA, maxCurrentMA int, polarity TriggerPolarity) error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	if maxCurrentMA <= 0 {
		maxCurrentMA = currentMA
	}
	if err := p.SetMode(channel, ModeDisable); err != nil {
		return fmt.Errorf("disable before programming: %w", err)
	}
	if err := p.SetTriggerParams(channel, maxCurrentMA, polarity); err != nil {
		return fmt.Errorf("trigger params: %w", err)
	}
	if err := p.SetTriggerStep(channel, 0, currentMA, FollowerDurationUS); err != nil {
		return fmt.Errorf("follower step: %w", err)
	}
	if err := p.SetTriggerStep(channel, 1, 0, 0); err != nil {
		return fmt.Errorf("profile terminator: %w", err)
	}
	if err := p.SetMode(channel, ModeTrigger); err != nil {
		return fmt.Errorf("arm trigger mode: %w", err)
	}
	return nil
}

// -- System -----------------------------------------------------------------

// StoreSettings saves the current settings to non-volatile memory.
func (c *Controller) StoreSettings() error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.StoreSettings()
}

// Reset performs a soft reset.
func (c *Controller) Reset() error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.Reset()
}

// RestoreDefaults restores factory defaults.
func (c *Controller) RestoreDefaults() error {
	p, err := c.protocol()
	if err != nil {
		return err
	}
	return p.RestoreDefaults()
}
