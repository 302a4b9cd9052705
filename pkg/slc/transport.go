// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package slc

import (
	"bytes"
	"strings"
	"time"
	"unicode/utf8"

	"go.bug.st/serial"
)

// Conn is a byte stream to the controller. Serial ports from
// go.bug.st/serial satisfy it directly; cmd/connection.go also provides a
// WebSocket serial-bridge implementation.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Optional Conn capabilities, detected by type assertion. Serial ports
// implement both; stream bridges generally implement neither, in which
// case the corresponding buffer-hygiene step is skipped.
type inputFlusher interface{ ResetInputBuffer() error }
type outputDrainer interface{ Drain() error }

// DialFunc opens the underlying connection. The default dial opens the
// named serial port at the configured baud rate, 8N1.
type DialFunc func() (Conn, error)

const (
	// readPoll bounds a single blocking read on the serial port so the
	// response loop can enforce the overall timeout.
	readPoll = 50 * time.Millisecond

	// drainDelay is how long to wait before the post-terminator read that
	// picks up slow trailing bytes (typically the LF after the CR).
	drainDelay = 20 * time.Millisecond
)

// Transport owns the physical connection and the line framing: commands
// go out LF+CR terminated, responses are read until CR, bounded by the
// configured timeout. It knows nothing about what commands mean.
type Transport struct {
	portName string
	timeout  time.Duration
	dial     DialFunc
	log      Logger
	conn     Conn
}

// NewTransport creates a transport for the named serial port. The port is
// not opened until Open is called.
func NewTransport(portName string, opts ...Option) *Transport {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newTransport(portName, cfg)
}

func newTransport(portName string, cfg config) *Transport {
	t := &Transport{
		portName: portName,
		timeout:  cfg.timeout,
		dial:     cfg.dial,
		log:      cfg.logger,
	}
	if t.dial == nil {
		baud := cfg.baudRate
		t.dial = func() (Conn, error) { return openSerialPort(portName, baud) }
	}
	return t
}

func openSerialPort(portName string, baudRate int) (Conn, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readPoll); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// Open acquires the connection. Calling Open on an already-open
// transport is a no-op.
func (t *Transport) Open() error {
	if t.conn != nil {
		return nil
	}
	t.log.Infof("opening %s", t.portName)
	conn, err := t.dial()
	if err != nil {
		return &ConnectionError{Port: t.portName, Err: err}
	}
	t.conn = conn
	return nil
}

// Close releases the connection. Safe to call when already closed or
// never opened.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.log.Infof("closed %s", t.portName)
	return err
}

// IsOpen reports whether the connection is currently open.
func (t *Transport) IsOpen() bool { return t.conn != nil }

// Send writes cmd with LF+CR termination and returns the decoded,
// whitespace-stripped response. Stale input is discarded first, and one
// short best-effort read after the CR terminator picks up trailing bytes
// so they don't pollute the next exchange.
func (t *Transport) Send(cmd string) (string, error) {
	if t.conn == nil {
		return "", &ConnectionError{Port: t.portName}
	}
	t.log.Debugf("TX: %s", cmd)

	if f, ok := t.conn.(inputFlusher); ok {
		_ = f.ResetInputBuffer()
	}

	if _, err := t.conn.Write([]byte(cmd + cmdTerminator)); err != nil {
		return "", &ConnectionError{Port: t.portName, Err: err}
	}
	if d, ok := t.conn.(outputDrainer); ok {
		_ = d.Drain()
	}

	raw := t.readResponse()
	response := strings.TrimSpace(decodeASCII(raw))
	t.log.Debugf("RX: %s", response)

	if response == "" {
		return "", &TimeoutError{Command: cmd}
	}
	return response, nil
}

// readResponse reads until the CR terminator or the configured timeout.
// Individual reads are bounded by the port's poll timeout so the loop
// can check the overall deadline between reads.
func (t *Transport) readResponse() []byte {
	var buf []byte
	tmp := make([]byte, 64)
	deadline := time.Now().Add(t.timeout)

	for {
		n, err := t.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			if bytes.IndexByte(buf, respTerminator) >= 0 {
				break
			}
		}
		if err != nil || !time.Now().Before(deadline) {
			return buf
		}
	}

	// Best-effort drain for bytes trailing the terminator (usually an LF
	// right behind the CR). Only done on connections with real input
	// buffers; this is hygiene, not part of the protocol contract.
	if _, ok := t.conn.(inputFlusher); ok {
		time.Sleep(drainDelay)
		if n, _ := t.conn.Read(tmp); n > 0 {
			buf = append(buf, tmp[:n]...)
		}
	}
	return buf
}

// decodeASCII decodes raw bytes as ASCII, substituting the Unicode
// replacement rune for anything undecodable rather than failing.
func decodeASCII(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c < utf8.RuneSelf {
			b.WriteByte(c)
		} else {
			b.WriteRune(utf8.RuneError)
		}
	}
	return b.String()
}
