// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
)

var statusChannel int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-channel mode, currents, and load voltage",
	Long: `Query every channel (or just --channel) for its operating mode,
NORMAL-mode Imax/Iset, and LED load voltage.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusChannel, "channel", "c", 0, "Only query this channel (1-4)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	led, connInfo, err := newController("")
	if err != nil {
		return err
	}

	first, last := slc.MinChannel, slc.MaxChannel
	if statusChannel != 0 {
		first, last = statusChannel, statusChannel
	}

	return led.Session(func(led *slc.Controller) error {
		fmt.Printf("Connection: %s\n\n", connInfo)
		for ch := first; ch <= last; ch++ {
			mode, err := led.GetMode(ch)
			if err != nil {
				return err
			}
			maxMA, setMA, err := led.NormalParams(ch)
			if err != nil {
				return err
			}
			mv, err := led.LoadVoltage(ch)
			if err != nil {
				return err
			}
			fmt.Printf("CH%d  mode=%-7s  Imax=%4d mA  Iset=%4d mA  load=%5d mV\n",
				ch, mode, maxMA, setMA, mv)
		}
		return nil
	})
}
