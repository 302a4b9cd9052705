// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Optoforge Instruments

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/optoforge/slcctl/pkg/slc"
)

var rawCmd = &cobra.Command{
	Use:   "raw <command>...",
	Short: "Send one raw protocol command and print the response",
	Long: `Send a single command line exactly as given and print the decoded
response. The response is still checked for the controller's error
markers (#!, #?). Useful for poking at queries the typed commands do not
cover, e.g.:

  slcctl raw -p /dev/ttyUSB0 ?TRIGGER 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRaw,
}

func init() {
	rootCmd.AddCommand(rawCmd)
}

func runRaw(cmd *cobra.Command, args []string) error {
	led, _, err := newController("")
	if err != nil {
		return err
	}

	return led.Session(func(led *slc.Controller) error {
		response, err := led.Raw(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(response)
		return nil
	})
}
