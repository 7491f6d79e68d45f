package main

import (
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics about the index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		stats, err := s.idx.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if statsJSON {
			return printJSON(cmd, stats)
		}

		cmd.Println("Index Statistics")
		cmd.Println()
		cmd.Printf("Videos:          %8d\n", stats.VideoCount)
		cmd.Printf("Chunks:          %8d\n", stats.ChunkCount)
		cmd.Printf("Embedded chunks: %8d\n", stats.EmbeddedChunkCount)
		cmd.Printf("Edges:           %8d\n", stats.RelationshipCount)
		cmd.Printf("Temporal rows:   %8d\n", stats.TemporalCount)
		cmd.Printf("Text documents:  %8d\n", stats.TextDocuments)
		cmd.Printf("Database size:   %8.1f MB\n", float64(stats.SizeBytes)/(1<<20))
		if !stats.Embedding {
			cmd.Println()
			cmd.Println("Embedding service unavailable: search runs keyword-only.")
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}
