// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
)

var currentCmd = &cobra.Command{
	Use:   "current <channel> <current-ma>",
	Short: "Quick-set the working current of a NORMAL-mode channel",
	Long: `Change the working current of a channel that is already running in
NORMAL mode, without touching its configured maximum.`,
	Args: cobra.ExactArgs(2),
	RunE: runCurrent,
}

func init() {
	rootCmd.AddCommand(currentCmd)
}

func runCurrent(cmd *cobra.Command, args []string) error {
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
		if err := led.SetCurrent(channel, currentMA); err != nil {
			return err
		}
		fmt.Printf("CH%d set to %d mA\n", channel, currentMA)
		return nil
	})
}
