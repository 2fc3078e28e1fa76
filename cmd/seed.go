package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/carwise/gearbox/internal/kb"
	"github.com/carwise/gearbox/internal/progress"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load repair procedures into the knowledge base",
	Long: `Reads a YAML file of repair procedures, embeds each one, and persists
the knowledge base to the data directory for procedure.lookup to search.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := seedFile
		if path == "" {
			path = cfg.ProceduresFile
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading procedures file: %w", err)
		}

		var procs []kb.Procedure
		if err := yaml.Unmarshal(raw, &procs); err != nil {
			return fmt.Errorf("parsing procedures file: %w", err)
		}
		if len(procs) == 0 {
			return fmt.Errorf("no procedures found in %s", path)
		}
		for i, p := range procs {
			if p.ID == "" || p.Title == "" {
				return fmt.Errorf("procedure %d is missing id or title", i)
			}
		}

		ef, err := embeddingFuncFromConfig(cfg)
		if err != nil {
			return err
		}
		store, err := kb.NewStore(ef)
		if err != nil {
			return fmt.Errorf("creating procedure store: %w", err)
		}

		ctx := context.Background()
		reporter := progress.NewReporter()
		reporter.Start(len(procs), "Seeding procedures")
		for i, p := range procs {
			if err := store.AddProcedures(ctx, []kb.Procedure{p}); err != nil {
				return fmt.Errorf("adding procedure %s: %w", p.ID, err)
			}
			reporter.Update(i+1, p.Title)
		}
		reporter.Finish()

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		if err := store.Persist(cfg.DataDir); err != nil {
			return fmt.Errorf("persisting procedure store: %w", err)
		}

		fmt.Printf("Seeded %d procedures into %s\n", store.Count(), cfg.DataDir)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "procedures YAML file (defaults to procedures_file from config)")
	rootCmd.AddCommand(seedCmd)
}
