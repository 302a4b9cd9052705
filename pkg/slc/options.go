// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package slc

import "time"

// Logger receives transport and controller diagnostics. The zero
// configuration discards everything.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}

type config struct {
	baudRate int
	timeout  time.Duration
	dial     DialFunc
	logger   Logger
}

func defaultConfig() config {
	return config{
		baudRate: DefaultBaudRate,
		timeout:  DefaultTimeout,
		logger:   nopLogger{},
	}
}

// Option configures a Transport or Controller.
type Option func(*config)

// WithBaudRate overrides the default 9600 baud.
func WithBaudRate(baud int) Option {
	return func(c *config) {
		if baud > 0 {
			c.baudRate = baud
		}
	}
}

// WithTimeout sets the per-exchange response timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a logger for TX/RX and lifecycle diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer replaces the default serial dial, e.g. to drive the
// controller through a network serial bridge.
func WithDialer(dial DialFunc) Option {
	return func(c *config) {
		c.dial = dial
	}
}
