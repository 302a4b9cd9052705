// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
)

var enableMaxCurrent int

var enableCmd = &cobra.Command{
	Use:   "enable <channel> <current-ma>",
	Short: "Enable a channel in NORMAL mode",
	Long: `Configure a channel's NORMAL-mode currents and switch it on.

The maximum current defaults to twice the working current unless
--max-current is given. Currents above 1000 mA are rejected before
anything is sent to the device.`,
	Args: cobra.ExactArgs(2),
	RunE: runEnable,
}

func init() {
	enableCmd.Flags().IntVar(&enableMaxCurrent, "max-current", 0, "Maximum current in mA (default: 2x working current)")
	rootCmd.AddCommand(enableCmd)
}

func runEnable(cmd *cobra.Command, args []string) error {
	channel, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("channel must be an integer, got %q", args[0])
	}
	currentMA, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("current must be an integer, got %q", args[1])
	}

	led, _, err := newController("")
	if err != nil {
		return err
	}

	return led.Session(func(led *slc.Controller) error {
		if err := led.EnableChannel(channel, currentMA, enableMaxCurrent); err != nil {
			return err
		}
		fmt.Printf("CH%d enabled at %d mA\n", channel, currentMA)
		return nil
	})
}
