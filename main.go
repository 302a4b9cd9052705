// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments
//
// slcctl - Mightex SLC LED controller CLI
//
// A CLI tool for configuring and querying Mightex SLC series LED
// controllers over RS232 or a serial-over-WebSocket bridge.

package main

import (
	"os"

	"github.com/optoforge/slcctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
