package main

import (
	"github.com/spf13/cobra"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embeddings for chunks that have none",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		stats, err := s.idx.EmbedMissing(cmd.Context())
		cmd.Printf("Embedded %d chunk(s) in %d batch(es)\n", stats.Embedded, stats.Batches)
		return err
	},
}

func init() {
	rootCmd.AddCommand(embedCmd)
}
