// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package trigger

import (
	"fmt"
	"strings"
	"testing"

	"github.com/optoforge/slcctl/pkg/slc"
)

// fakeDevice simulates the controller end of the line, answering each
// command from a lookup table. Unknown commands get the "##" ack so
// happy-path sequences need no scripting.
type fakeDevice struct {
	responses map[string]string // command -> response (terminator included)
	sent      []string
	pending   []byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{responses: make(map[string]string)}
}

func (f *fakeDevice) respond(cmd, response string) {
	f.responses[cmd] = response
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	cmd := strings.TrimRight(string(p), "\n\r")
	f.sent = append(f.sent, cmd)
	if r, ok := f.responses[cmd]; ok {
		f.pending = []byte(r)
	} else {
		f.pending = []byte("##\r")
	}
	return len(p), nil
}

func (f *fakeDevice) Read(p []byte) (int, error) {
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeDevice) Close() error { return nil }

func testLED(t *testing.T, dev *fakeDevice) *slc.Controller {
	t.Helper()
	led := slc.New("/dev/fake", slc.WithDialer(func() (slc.Conn, error) { return dev, nil }))
	if err := led.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { led.Disconnect() })
	return led
}

func chConfig(channel, currentMA, maxMA int) ChannelConfig {
	return ChannelConfig{
		Channel:      channel,
		Name:         "LED",
		WavelengthNM: 850,
		CurrentMA:    currentMA,
		MaxCurrentMA: maxMA,
		Polarity:     slc.PolarityRising,
	}
}

// programmedDevice scripts the query responses of a correctly programmed
// channel so VerifyChannel passes.
func programmedDevice(ch ChannelConfig) *fakeDevice {
	dev := newFakeDevice()
	dev.respond(fmt.Sprintf("?MODE %d", ch.Channel), "#3\r")
	dev.respond(fmt.Sprintf("?TRIGGER %d", ch.Channel),
		fmt.Sprintf("#%d %d\r", ch.MaxCurrentMA, int(ch.Polarity)))
	dev.respond(fmt.Sprintf("?TRIGP %d", ch.Channel),
		fmt.Sprintf("#0:%d 9999\r", ch.CurrentMA))
	return dev
}

// ============================================================
// Programming
// ============================================================

func TestProgramChannel_Success(t *testing.T) {
	dev := newFakeDevice()
	led := testLED(t, dev)

	res := ProgramChannel(led, chConfig(2, 1000, 1000))
	if !res.OK {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if !strings.Contains(res.Message, "CH2") {
		t.Errorf("message %q should name the channel", res.Message)
	}

	want := []string{
		"ECHOOFF",
		"MODE 2 0",
		"TRIGGER 2 1000 0",
		"TRIGP 2 0 1000 9999",
		"TRIGP 2 1 0 0",
		"MODE 2 3",
	}
	if len(dev.sent) != len(want) {
		t.Fatalf("sent %v, want %v", dev.sent, want)
	}
	for i := range want {
		if dev.sent[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, dev.sent[i], want[i])
		}
	}
}

func TestProgramChannel_DeviceErrorBecomesResult(t *testing.T) {
	dev := newFakeDevice()
	dev.respond("TRIGGER 1 200 0", "#!\r")
	led := testLED(t, dev)

	res := ProgramChannel(led, chConfig(1, 100, 200))
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "FAILED") {
		t.Errorf("message %q should say FAILED", res.Message)
	}
	if !strings.Contains(res.Message, "controller error") {
		t.Errorf("message %q should carry the device error text", res.Message)
	}
}

func TestProgramAll_ContinuesPastFailures(t *testing.T) {
	dev := newFakeDevice()
	// Channel 2's sequence fails mid-way; channel 1 is untouched.
	dev.respond("TRIGP 2 0 500 9999", "#!\r")
	led := testLED(t, dev)

	cfg := &Config{
		Port:     "/dev/fake",
		Channels: []ChannelConfig{chConfig(1, 100, 200), chConfig(2, 500, 500)},
	}

	report := ProgramAll(led, cfg)
	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	if !report.Results[0].OK {
		t.Errorf("channel 1 should pass: %q", report.Results[0].Message)
	}
	if report.Results[1].OK {
		t.Error("channel 2 should fail")
	}
	if report.AllOK() {
		t.Error("AllOK() should be false")
	}
	if got := report.Summary(); got != "1/2 channels FAILED" {
		t.Errorf("Summary() = %q, want %q", got, "1/2 channels FAILED")
	}

	// The batch kept going: channel 2's sequence was attempted after
	// channel 1 completed.
	joined := strings.Join(dev.sent, "|")
	if !strings.Contains(joined, "MODE 1 3") || !strings.Contains(joined, "MODE 2 0") {
		t.Errorf("unexpected command trace: %v", dev.sent)
	}
}

func TestReport_AllOKSummary(t *testing.T) {
	report := &Report{Results: []Result{
		{OK: true}, {OK: true},
	}}
	if !report.AllOK() {
		t.Error("AllOK() should be true")
	}
	if got := report.Summary(); got != "2/2 channels OK" {
		t.Errorf("Summary() = %q, want %q", got, "2/2 channels OK")
	}
}

// ============================================================
// Verification
// ============================================================

func TestVerifyChannel_OK(t *testing.T) {
	ch := chConfig(1, 1000, 1000)
	led := testLED(t, programmedDevice(ch))

	res := VerifyChannel(led, ch)
	if !res.OK {
		t.Fatalf("expected pass, got %q", res.Message)
	}
	if !strings.Contains(res.Message, "verified OK") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestVerifyChannel_WrongMode(t *testing.T) {
	ch := chConfig(1, 1000, 1000)
	dev := programmedDevice(ch)
	dev.respond("?MODE 1", "#1\r") // NORMAL instead of TRIGGER
	led := testLED(t, dev)

	res := VerifyChannel(led, ch)
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "NORMAL") {
		t.Errorf("message %q should name the actual mode", res.Message)
	}
}

func TestVerifyChannel_AccumulatesAllMismatches(t *testing.T) {
	ch := chConfig(1, 1000, 1000)
	dev := programmedDevice(ch)
	dev.respond("?MODE 1", "#0\r")          // wrong mode
	dev.respond("?TRIGGER 1", "#500 1\r")   // wrong Imax and polarity
	dev.respond("?TRIGP 1", "#0:250 100\r") // wrong profile current
	led := testLED(t, dev)

	res := VerifyChannel(led, ch)
	if res.OK {
		t.Fatal("expected failure")
	}
	for _, want := range []string{"DISABLE", "Imax is 500", "polarity is 1", "profile"} {
		if !strings.Contains(res.Message, want) {
			t.Errorf("message %q should mention %q", res.Message, want)
		}
	}
	// All problems are joined into one message, not reported one at a time.
	if strings.Count(res.Message, ";") < 3 {
		t.Errorf("expected at least 4 accumulated problems in %q", res.Message)
	}
}

func TestVerifyChannel_QueryErrorAccumulated(t *testing.T) {
	ch := chConfig(1, 1000, 1000)
	dev := programmedDevice(ch)
	dev.respond("?TRIGGER 1", "#!\r") // envelope query fails outright
	led := testLED(t, dev)

	res := VerifyChannel(led, ch)
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "query failed") {
		t.Errorf("message %q should carry the query error", res.Message)
	}
	// The profile query still ran despite the envelope failure.
	joined := strings.Join(dev.sent, "|")
	if !strings.Contains(joined, "?TRIGP 1") {
		t.Errorf("verification should continue past a failed query: %v", dev.sent)
	}
}

func TestVerifyChannel_UnparseableEnvelope(t *testing.T) {
	ch := chConfig(1, 1000, 1000)
	dev := programmedDevice(ch)
	dev.respond("?TRIGGER 1", "#garbage\r")
	led := testLED(t, dev)

	res := VerifyChannel(led, ch)
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Message, "could not parse") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestVerifyAll_ContinuesPastFailures(t *testing.T) {
	ch1 := chConfig(1, 1000, 1000)
	ch2 := chConfig(2, 500, 500)

	dev := newFakeDevice()
	dev.respond("?MODE 1", "#3\r")
	dev.respond("?TRIGGER 1", "#1000 0\r")
	dev.respond("?TRIGP 1", "#0:1000 9999\r")
	dev.respond("?MODE 2", "#0\r") // channel 2 not armed
	dev.respond("?TRIGGER 2", "#500 0\r")
	dev.respond("?TRIGP 2", "#0:500 9999\r")
	led := testLED(t, dev)

	cfg := &Config{Port: "/dev/fake", Channels: []ChannelConfig{ch1, ch2}}
	report := VerifyAll(led, cfg)

	if !report.Results[0].OK {
		t.Errorf("channel 1 should verify: %q", report.Results[0].Message)
	}
	if report.Results[1].OK {
		t.Error("channel 2 should fail verification")
	}
	if got := report.Summary(); got != "1/2 channels FAILED" {
		t.Errorf("Summary() = %q", got)
	}
}
