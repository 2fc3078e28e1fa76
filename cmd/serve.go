package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/carwise/gearbox/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for assistant integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing capability execution tools for AI assistants.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		orch, database, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "gearbox MCP server started on stdio (capabilities=%d)\n",
			len(orch.Registry().Names()))

		srv := mcpserver.NewServer(orch)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
