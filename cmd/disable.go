// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
)

var disableCmd = &cobra.Command{
	Use:   "disable <channel>",
	Short: "Disable a channel (LED off)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisable,
}

func init() {
	rootCmd.AddCommand(disableCmd)
}

func runDisable(cmd *cobra.Command, args []string) error {
	channel, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("channel must be an integer, got %q", args[0])
	}

	led, _, err := newController("")
	if err != nil {
		return err
	}

	return led.Session(func(led *slc.Controller) error {
		if err := led.DisableChannel(channel); err != nil {
			return err
		}
		fmt.Printf("CH%d disabled\n", channel)
		return nil
	})
}
