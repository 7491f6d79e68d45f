package main

import (
	"github.com/spf13/cobra"

	"github.com/DreamCats/tubeindex/cmd/tubeindex/internal"
	"github.com/DreamCats/tubeindex/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server",
	Long: `Runs an MCP stdio server exposing:
  - tubeindex_search
  - tubeindex_related
  - tubeindex_temporal
  - tubeindex_status

Logs go to stderr and the log file; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		return mcpserver.New(s.cfg, s.idx, internal.Version, s.logger).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
