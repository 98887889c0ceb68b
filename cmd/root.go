package cmd

import (
	"fmt"
	"os"

	"github.com/Sullygrrr/digger/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "digger",
	Short: "Digger is a swipe-driven music discovery service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
