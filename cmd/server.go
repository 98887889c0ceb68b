package cmd

import (
	"github.com/Sullygrrr/digger/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Digger HTTP server",
	Long:  `Start the Digger discovery service: the API for uploads, the swipe feed, likes and tag suggestions.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
