package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aromabot",
	Short: "Telegram assistant for essential oils",
	Long: `AromaBot answers questions about essential oils, suggests oils for a mood,
recommends music and sends daily aroma tips to subscribers.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
