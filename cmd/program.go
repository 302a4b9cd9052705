// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
	"github.com/optoforge/slcctl/pkg/trigger"
)

var (
	programConfig   string
	programNoVerify bool
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Program trigger-follower channels from a YAML config",
	Long: `Load a multi-channel trigger configuration, program every channel
into trigger-follower mode, verify the device state against the config,
and optionally persist the result to non-volatile memory (the config's
"store" flag, default true).

A channel failure does not stop the batch; the exit status reflects the
aggregate result. The serial port from the config file is used unless
--port overrides it.`,
	RunE: runProgram,
}

func init() {
	programCmd.Flags().StringVarP(&programConfig, "config", "f", "", "Trigger configuration YAML file (required)")
	programCmd.Flags().BoolVar(&programNoVerify, "no-verify", false, "Skip read-back verification")
	programCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(programCmd)
}

func runProgram(cmd *cobra.Command, args []string) error {
	cfg, err := trigger.Load(programConfig)
	if err != nil {
		return err
	}

	led, connInfo, err := newController(cfg.Port)
	if err != nil {
		return err
	}

	return led.Session(func(led *slc.Controller) error {
		fmt.Printf("Connection: %s\n", connInfo)
		fmt.Printf("Programming %d channel(s)...\n\n", len(cfg.Channels))

		report := trigger.ProgramAll(led, cfg)
		printReport(report)
		if !report.AllOK() {
			return fmt.Errorf("programming failed: %s", report.Summary())
		}

		if !programNoVerify {
			fmt.Printf("\nVerifying...\n\n")
			report = trigger.VerifyAll(led, cfg)
			printReport(report)
			if !report.AllOK() {
				return fmt.Errorf("verification failed: %s", report.Summary())
			}
		}

		if cfg.Store {
			if err := led.StoreSettings(); err != nil {
				return fmt.Errorf("store settings: %w", err)
			}
			fmt.Printf("\nSettings stored to non-volatile memory\n")
		}
		return nil
	})
}

func printReport(report *trigger.Report) {
	for _, res := range report.Results {
		marker := "ok  "
		if !res.OK {
			marker = "FAIL"
		}
		fmt.Printf("  [%s] %s\n", marker, res.Message)
	}
	fmt.Printf("\n%s\n", report.Summary())
}
