package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fncs",
	Short: "fncs is a conversational session engine for USSD and SMS",
	Long: `fncs drives turn-by-turn conversations over stateless transports.
A gateway posts normalized inbound events; fncs loads the subscriber's
session, advances it one step through a decision tree or the crop price
flow, and replies with the next prompt.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
