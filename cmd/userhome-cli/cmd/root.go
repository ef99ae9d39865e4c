package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "userhome-cli",
	Short: "Tools for the account dashboard",
	Long: `userhome-cli inspects the event topics of the dashboard and checks
fixtures for the development identity API.

Use "userhome-cli [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
