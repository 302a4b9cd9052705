// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package trigger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/optoforge/slcctl/pkg/slc"
)

// Result is the outcome of a program or verify pass on one channel.
type Result struct {
	Config  ChannelConfig
	OK      bool
	Message string
}

// Report aggregates per-channel results of a batch operation.
type Report struct {
	Results []Result
}

// AllOK reports whether every channel passed.
func (r *Report) AllOK() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// Summary returns the "<passed>/<total> channels OK|FAILED" line.
func (r *Report) Summary() string {
	passed := 0
	for _, res := range r.Results {
		if res.OK {
			passed++
		}
	}
	status := "OK"
	if !r.AllOK() {
		status = "FAILED"
	}
	return fmt.Sprintf("%d/%d channels %s", passed, len(r.Results), status)
}

// ProgramChannel programs one channel into trigger-follower mode using
// the controller's safe 5-command sequence. Device-level errors are
// converted into a failed Result rather than returned, so batch callers
// can keep going.
func ProgramChannel(led *slc.Controller, ch ChannelConfig) Result {
	err := led.SetTriggerFollower(ch.Channel, ch.CurrentMA, ch.MaxCurrentMA, ch.Polarity)
	if err != nil {
		return Result{
			Config:  ch,
			Message: fmt.Sprintf("%s -> FAILED: %v", ch.Label(), err),
		}
	}
	return Result{
		Config:  ch,
		OK:      true,
		Message: fmt.Sprintf("%s -> TRIGGER follower, %d mA", ch.Label(), ch.CurrentMA),
	}
}

// ProgramAll programs every configured channel in order, continuing past
// individual failures.
func ProgramAll(led *slc.Controller, cfg *Config) *Report {
	report := &Report{}
	for _, ch := range cfg.Channels {
		report.Results = append(report.Results, ProgramChannel(led, ch))
	}
	return report
}

// VerifyChannel checks that a channel's actual mode, trigger envelope
// and trigger profile match the expected configuration. All mismatches
// found are accumulated into one message; a failed query becomes one
// more accumulated problem instead of aborting the channel.
func VerifyChannel(led *slc.Controller, ch ChannelConfig) Result {
	var problems []string

	mode, err := led.GetMode(ch.Channel)
	switch {
	case err != nil:
		problems = append(problems, fmt.Sprintf("mode query failed: %v", err))
	case mode != slc.ModeTrigger:
		problems = append(problems, fmt.Sprintf("mode is %s, expected TRIGGER", mode))
	}

	problems = append(problems, verifyEnvelope(led, ch)...)
	problems = append(problems, verifyProfile(led, ch)...)

	if len(problems) > 0 {
		return Result{
			Config:  ch,
			Message: fmt.Sprintf("%s -> VERIFY FAILED: %s", ch.Label(), strings.Join(problems, "; ")),
		}
	}
	return Result{
		Config:  ch,
		OK:      true,
		Message: fmt.Sprintf("%s -> verified OK", ch.Label()),
	}
}

// verifyEnvelope compares the device's trigger Imax and polarity
// (response shape: "#<Imax> <polarity>") against the expected config.
func verifyEnvelope(led *slc.Controller, ch ChannelConfig) []string {
	response, err := led.Raw(fmt.Sprintf("?TRIGGER %d", ch.Channel))
	if err != nil {
		return []string{fmt.Sprintf("trigger query failed: %v", err)}
	}

	parts := strings.Fields(strings.ReplaceAll(response, "#", ""))
	if len(parts) < 2 {
		return []string{fmt.Sprintf("could not parse ?TRIGGER response: %q", response)}
	}
	imax, err1 := strconv.Atoi(parts[0])
	polarity, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return []string{fmt.Sprintf("could not parse ?TRIGGER response: %q", response)}
	}

	var problems []string
	if imax != ch.MaxCurrentMA {
		problems = append(problems,
			fmt.Sprintf("Imax is %d mA, expected %d mA", imax, ch.MaxCurrentMA))
	}
	if polarity != int(ch.Polarity) {
		problems = append(problems,
			fmt.Sprintf("polarity is %d, expected %d (%s)", polarity, int(ch.Polarity), ch.Polarity))
	}
	return problems
}

// verifyProfile checks that the programmed trigger profile carries the
// expected working current. The exact ?TRIGP response layout varies by
// firmware, so this looks for the current value rather than a fixed shape.
func verifyProfile(led *slc.Controller, ch ChannelConfig) []string {
	response, err := led.Raw(fmt.Sprintf("?TRIGP %d", ch.Channel))
	if err != nil {
		return []string{fmt.Sprintf("profile query failed: %v", err)}
	}
	clean := strings.TrimSpace(strings.ReplaceAll(response, "#", ""))
	if !strings.Contains(clean, strconv.Itoa(ch.CurrentMA)) {
		return []string{fmt.Sprintf("trigger profile does not contain expected current (%d mA): %q",
			ch.CurrentMA, response)}
	}
	return nil
}

// VerifyAll verifies every configured channel, continuing past
// individual failures.
func VerifyAll(led *slc.Controller, cfg *Config) *Report {
	report := &Report{}
	for _, ch := range cfg.Channels {
		report.Results = append(report.Results, VerifyChannel(led, ch))
	}
	return report
}
