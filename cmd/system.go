// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
)

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Device-level operations (store, reset, restoredef)",
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Save current settings to non-volatile memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSystem("Settings stored", (*slc.Controller).StoreSettings)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Soft-reset the controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSystem("Controller reset", (*slc.Controller).Reset)
	},
}

var restoreDefCmd = &cobra.Command{
	Use:   "restoredef",
	Short: "Restore factory defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSystem("Factory defaults restored", (*slc.Controller).RestoreDefaults)
	},
}

func init() {
	systemCmd.AddCommand(storeCmd, resetCmd, restoreDefCmd)
	rootCmd.AddCommand(systemCmd)
}

func runSystem(okMsg string, op func(*slc.Controller) error) error {
	led, _, err := newController("")
	if err != nil {
		return err
	}

	return led.Session(func(led *slc.Controller) error {
		if err := op(led); err != nil {
			return err
		}
		fmt.Println(okMsg)
		return nil
	})
}
