// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package slc

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Fake connection
// ============================================================

// fakeConn simulates the controller end of the serial line. Each Write
// records the command and arms the next scripted response (default is a
// "##\r\n" ack). Reads serve at most chunk bytes at a time so tests can
// exercise the terminator and drain logic.
type fakeConn struct {
	raw      [][]byte // raw writes, terminators included
	queue    [][]byte // scripted responses, consumed per command
	pending  []byte   // unread bytes of the current response
	chunk    int      // max bytes served per Read (0 = all)
	flushes  int      // ResetInputBuffer calls
	drains   int      // Drain calls
	writeErr error
	closed   bool
}

var fakeAck = []byte("##\r\n")

func newFakeConn() *fakeConn { return &fakeConn{} }

// script queues responses for the next commands, in order. Commands
// beyond the scripted ones get the default ack.
func (f *fakeConn) script(responses ...string) {
	for _, r := range responses {
		f.queue = append(f.queue, []byte(r))
	}
}

func (f *fakeConn) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.raw = append(f.raw, append([]byte(nil), p...))
	if len(f.queue) > 0 {
		f.pending = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		f.pending = fakeAck
	}
	return len(p), nil
}

func (f *fakeConn) Read(p []byte) (int, error) {
	if f.closed {
		return 0, errors.New("read on closed port")
	}
	if len(f.pending) == 0 {
		return 0, nil // behaves like a poll-timeout read
	}
	n := len(f.pending)
	if f.chunk > 0 && n > f.chunk {
		n = f.chunk
	}
	n = copy(p, f.pending[:n])
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func (f *fakeConn) ResetInputBuffer() error {
	f.flushes++
	f.pending = nil
	return nil
}

func (f *fakeConn) Drain() error {
	f.drains++
	return nil
}

// commands returns the written commands with framing stripped.
func (f *fakeConn) commands() []string {
	out := make([]string, len(f.raw))
	for i, w := range f.raw {
		out[i] = strings.TrimRight(string(w), "\n\r")
	}
	return out
}

func testTransport(t *testing.T, conn Conn) *Transport {
	t.Helper()
	tr := NewTransport("/dev/fake",
		WithDialer(func() (Conn, error) { return conn, nil }),
		WithTimeout(25*time.Millisecond),
	)
	if err := tr.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return tr
}

// ============================================================
// Transport tests
// ============================================================

func TestSend_FramesCommandWithLFCR(t *testing.T) {
	conn := newFakeConn()
	tr := testTransport(t, conn)

	if _, err := tr.Send("DEVICEINFO"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if len(conn.raw) != 1 {
		t.Fatalf("expected 1 write, got %d", len(conn.raw))
	}
	want := []byte("DEVICEINFO\n\r")
	if !bytes.Equal(conn.raw[0], want) {
		t.Errorf("wrote %q, want %q", conn.raw[0], want)
	}
}

func TestSend_FlushesStaleInputAndDrainsOutput(t *testing.T) {
	conn := newFakeConn()
	conn.pending = []byte("leftover from previous exchange\r")
	tr := testTransport(t, conn)

	resp, err := tr.Send("STORE")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp != "##" {
		t.Errorf("response = %q, want %q (stale bytes must be discarded)", resp, "##")
	}
	if conn.flushes != 1 {
		t.Errorf("ResetInputBuffer calls = %d, want 1", conn.flushes)
	}
	if conn.drains != 1 {
		t.Errorf("Drain calls = %d, want 1", conn.drains)
	}
}

func TestSend_ReadsTrailingLFAfterTerminator(t *testing.T) {
	conn := newFakeConn()
	conn.chunk = 3 // "##\r" first, the trailing "\n" only via the drain read
	tr := testTransport(t, conn)

	resp, err := tr.Send("STORE")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp != "##" {
		t.Errorf("response = %q, want %q", resp, "##")
	}
	if len(conn.pending) != 0 {
		t.Errorf("trailing bytes left unread: %q", conn.pending)
	}
}

func TestSend_EmptyResponseIsTimeout(t *testing.T) {
	conn := newFakeConn()
	conn.script("")
	tr := testTransport(t, conn)

	_, err := tr.Send("DEVICEINFO")
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeoutErr.Command != "DEVICEINFO" {
		t.Errorf("TimeoutError.Command = %q, want DEVICEINFO", timeoutErr.Command)
	}
}

func TestSend_ReplacesUndecodableBytes(t *testing.T) {
	conn := newFakeConn()
	conn.queue = [][]byte{{0xFF, '#', '#', '\r'}}
	tr := testTransport(t, conn)

	resp, err := tr.Send("STORE")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !strings.Contains(resp, "##") {
		t.Errorf("response %q should still contain the ack", resp)
	}
	if !strings.ContainsRune(resp, '�') {
		t.Errorf("response %q should carry a replacement rune for the bad byte", resp)
	}
}

func TestSend_NotOpen(t *testing.T) {
	tr := NewTransport("/dev/fake")
	_, err := tr.Send("STORE")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}

func TestSend_WriteFailure(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("device unplugged")
	tr := testTransport(t, conn)

	_, err := tr.Send("STORE")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if !errors.Is(err, conn.writeErr) {
		t.Errorf("ConnectionError should wrap the underlying write error")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dials := 0
	conn := newFakeConn()
	tr := NewTransport("/dev/fake", WithDialer(func() (Conn, error) {
		dials++
		return conn, nil
	}))

	if err := tr.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := tr.Open(); err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if dials != 1 {
		t.Errorf("dial count = %d, want 1", dials)
	}
	if !tr.IsOpen() {
		t.Error("IsOpen() = false after Open")
	}
}

func TestOpen_DialFailure(t *testing.T) {
	cause := errors.New("no such device")
	tr := NewTransport("/dev/ttyUSB9", WithDialer(func() (Conn, error) {
		return nil, cause
	}))

	err := tr.Open()
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Port != "/dev/ttyUSB9" {
		t.Errorf("ConnectionError.Port = %q", connErr.Port)
	}
	if !errors.Is(err, cause) {
		t.Error("ConnectionError should wrap the dial error")
	}
}

func TestClose_Idempotent(t *testing.T) {
	conn := newFakeConn()
	tr := testTransport(t, conn)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if tr.IsOpen() {
		t.Error("IsOpen() = true after Close")
	}
	if !conn.closed {
		t.Error("underlying connection not closed")
	}

	// Never-opened transport closes cleanly too.
	if err := NewTransport("/dev/fake").Close(); err != nil {
		t.Fatalf("Close on never-opened transport failed: %v", err)
	}
}
