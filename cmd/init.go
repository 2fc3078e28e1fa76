package cmd

import (
	"github.com/spf13/cobra"

	"github.com/carwise/gearbox/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gearbox configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure gearbox and generates a .gearbox.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
