package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/config"
	"github.com/carwise/gearbox/internal/providers"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the bundled capabilities and their refinement policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		reg := capability.NewRegistry()
		if err := providers.Register(reg, cfg, providers.Options{}); err != nil {
			return fmt.Errorf("registering providers: %w", err)
		}

		fmt.Printf("%-20s %-15s %-10s %-9s %s\n", "NAME", "CLASSIFICATION", "THRESHOLD", "ATTEMPTS", "CACHEABLE")
		for _, d := range reg.List() {
			fmt.Printf("%-20s %-15s %-10d %-9d %t\n",
				d.Name, d.Classification, d.Threshold(), d.MaxAttempts(), d.Cacheable)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}
