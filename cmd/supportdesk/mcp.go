package main

import (
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/supportdesk/internal/config"
	"github.com/MikeSquared-Agency/supportdesk/internal/mcptools"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve operator tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			// stdout carries the MCP protocol
			setupLogging(cfg.LogLevel, os.Stderr)

			db, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			a, err := buildApp(cmd.Context(), cfg, db, nil, nil)
			if err != nil {
				return err
			}
			return server.ServeStdio(mcptools.NewServer(a.knowledge, a.conversations, a.livecalls))
		},
	}
}
