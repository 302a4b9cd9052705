// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package slc

import "fmt"

// ConnectionError indicates the serial port could not be opened, a write
// failed, or an operation was attempted while disconnected.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection to %s failed: %v", e.Port, e.Err)
	}
	return fmt.Sprintf("port %s not open", e.Port)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError indicates the controller did not respond within the
// configured window.
type TimeoutError struct {
	Command string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response from controller for %q", e.Command)
}

// CommandError indicates the controller signalled an error (#!, #?,
// unknown command), or a response could not be parsed into the expected
// shape. Command and Response carry the offending exchange for diagnosis.
type CommandError struct {
	Command  string
	Response string
	Reason   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s for %q: %q", e.Reason, e.Command, e.Response)
}

// ValidationError indicates an argument or configuration value failed a
// pre-send check. Validation failures never reach the wire.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
