// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

// Package trigger turns a declarative multi-channel YAML configuration
// into programmed trigger-follower state on an SLC controller, and
// verifies the device afterwards.
//
// The workflow is batch-oriented: ProgramAll and VerifyAll walk every
// configured channel, continue past individual failures, and aggregate
// per-channel outcomes into a Report.
package trigger

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/optoforge/slcctl/pkg/slc"
)

// ChannelConfig is the validated configuration for a single channel.
// Instances are built once at load time and not mutated afterwards.
type ChannelConfig struct {
	Channel      int
	Name         string
	WavelengthNM int
	Band         string
	CurrentMA    int
	MaxCurrentMA int
	Polarity     slc.TriggerPolarity
}

// Label returns a human-readable channel label, e.g. "CH1 M850L3 (850 nm)".
func (c ChannelConfig) Label() string {
	return fmt.Sprintf("CH%d %s (%d nm)", c.Channel, c.Name, c.WavelengthNM)
}

// Config is a validated top-level trigger configuration. Channels are
// sorted ascending by channel number regardless of source order.
type Config struct {
	Port     string
	Store    bool
	Channels []ChannelConfig
}

// Raw YAML shapes. Pointer fields distinguish "missing" from zero values
// so validation can name the absent key.
type rawConfig struct {
	Port     string                `yaml:"port"`
	Store    *bool                 `yaml:"store"`
	Channels map[string]rawChannel `yaml:"channels"`
}

type rawChannel struct {
	Name         *string `yaml:"name"`
	WavelengthNM *int    `yaml:"wavelength_nm"`
	Band         *string `yaml:"band"`
	CurrentMA    *int    `yaml:"current_ma"`
	MaxCurrentMA *int    `yaml:"max_current_ma"`
	Polarity     *string `yaml:"polarity"`
}

// Load reads and validates a trigger configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse validates a trigger configuration document. All structural and
// value problems are reported as slc.ValidationError.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &slc.ValidationError{Message: fmt.Sprintf("invalid config: %v", err)}
	}

	if raw.Port == "" {
		return nil, &slc.ValidationError{Message: "config must specify a non-empty 'port' string"}
	}

	store := true
	if raw.Store != nil {
		store = *raw.Store
	}

	if len(raw.Channels) == 0 {
		return nil, &slc.ValidationError{Message: "config must contain a non-empty 'channels' mapping"}
	}

	channels := make([]ChannelConfig, 0, len(raw.Channels))
	seen := make(map[int]bool)
	for key, rc := range raw.Channels {
		ch, err := parseChannel(key, rc)
		if err != nil {
			return nil, err
		}
		if seen[ch.Channel] {
			return nil, &slc.ValidationError{
				Message: fmt.Sprintf("channel %d defined more than once", ch.Channel),
			}
		}
		seen[ch.Channel] = true
		channels = append(channels, ch)
	}

	sort.Slice(channels, func(i, j int) bool {
		return channels[i].Channel < channels[j].Channel
	})

	return &Config{Port: raw.Port, Store: store, Channels: channels}, nil
}

func parseChannel(key string, rc rawChannel) (ChannelConfig, error) {
	channel, err := strconv.Atoi(key)
	if err != nil {
		return ChannelConfig{}, &slc.ValidationError{
			Message: fmt.Sprintf("channel key must be an integer, got %q", key),
		}
	}
	if channel < slc.MinChannel || channel > slc.MaxChannel {
		return ChannelConfig{}, &slc.ValidationError{
			Message: fmt.Sprintf("channel must be %d-%d, got %d", slc.MinChannel, slc.MaxChannel, channel),
		}
	}

	fail := func(format string, args ...interface{}) (ChannelConfig, error) {
		msg := fmt.Sprintf(format, args...)
		return ChannelConfig{}, &slc.ValidationError{
			Message: fmt.Sprintf("channel %d: %s", channel, msg),
		}
	}

	if rc.Name == nil || *rc.Name == "" {
		return fail("'name' must be a non-empty string")
	}
	if rc.WavelengthNM == nil || *rc.WavelengthNM <= 0 {
		return fail("'wavelength_nm' must be a positive integer")
	}
	if rc.CurrentMA == nil || *rc.CurrentMA < 0 {
		return fail("'current_ma' must be a non-negative integer")
	}
	if rc.MaxCurrentMA == nil || *rc.MaxCurrentMA < 0 {
		return fail("'max_current_ma' must be a non-negative integer")
	}
	if *rc.CurrentMA > *rc.MaxCurrentMA {
		return fail("current_ma (%d) exceeds max_current_ma (%d)", *rc.CurrentMA, *rc.MaxCurrentMA)
	}
	if *rc.MaxCurrentMA > slc.MaxCurrentPulsedMA {
		return fail("max_current_ma (%d) exceeds pulsed-mode limit (%d mA)",
			*rc.MaxCurrentMA, slc.MaxCurrentPulsedMA)
	}

	band := ""
	if rc.Band != nil {
		band = *rc.Band
	}

	polarity := slc.PolarityRising
	if rc.Polarity != nil {
		p, ok := slc.ParsePolarity(*rc.Polarity)
		if !ok {
			return fail("polarity must be \"rising\" or \"falling\", got %q", *rc.Polarity)
		}
		polarity = p
	}

	return ChannelConfig{
		Channel:      channel,
		Name:         *rc.Name,
		WavelengthNM: *rc.WavelengthNM,
		Band:         band,
		CurrentMA:    *rc.CurrentMA,
		MaxCurrentMA: *rc.MaxCurrentMA,
		Polarity:     polarity,
	}, nil
}
