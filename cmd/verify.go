// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
	"github.com/optoforge/slcctl/pkg/trigger"
)

var verifyConfig string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify device state against a YAML config",
	Long: `Check every configured channel's mode, trigger envelope, and
trigger profile against the expected configuration without changing
anything on the device. All mismatches per channel are reported at once.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyConfig, "config", "f", "", "Trigger configuration YAML file (required)")
	verifyCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := trigger.Load(verifyConfig)
	if err != nil {
		return err
	}

	led, connInfo, err := newController(cfg.Port)
	if err != nil {
		return err
	}

	return led.Session(func(led *slc.Controller) error {
		fmt.Printf("Connection: %s\n\n", connInfo)
		report := trigger.VerifyAll(led, cfg)
		printReport(report)
		if !report.AllOK() {
			return fmt.Errorf("verification failed: %s", report.Summary())
		}
		return nil
	})
}
