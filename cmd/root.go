package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gearbox",
	Short: "Capability execution core for an automotive diagnosis assistant",
	Long: `Gearbox executes diagnostic capabilities on behalf of a conversational
assistant: it caches results by data classification, retries transient
failures, refines low-confidence answers with provider hints, and keeps
per-conversation context so established facts carry across calls.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".gearbox.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
