// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Query device model, firmware, and serial number",
	Long: `Query the controller's DEVICEINFO status line and print the parsed
firmware version, module number, and serial number.

Fields the device does not report show as "Unknown".`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	led, connInfo, err := newController("")
	if err != nil {
		return err
	}

	return led.Session(func(led *slc.Controller) error {
		info, err := led.DeviceInfo()
		if err != nil {
			return err
		}
		fmt.Printf("Connection: %s\n", connInfo)
		fmt.Printf("Firmware:   %s\n", info.FirmwareVersion)
		fmt.Printf("Module:     %s\n", info.ModuleNumber)
		fmt.Printf("Serial:     %s\n", info.SerialNumber)
		return nil
	})
}
