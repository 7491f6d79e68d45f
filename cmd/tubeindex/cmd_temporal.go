package main

import (
	"github.com/spf13/cobra"
)

var temporalJSON bool

var temporalCmd = &cobra.Command{
	Use:   "temporal",
	Short: "Extract and inspect version and release-date mentions",
}

var temporalExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract temporal metadata for chunks that have none",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		stats, err := s.idx.ExtractTemporal(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Scanned %d chunk(s), stored metadata for %d\n", stats.Scanned, stats.Created)
		return nil
	},
}

var temporalShowCmd = &cobra.Command{
	Use:   "show <chunkId>",
	Short: "Show the temporal metadata of a chunk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		meta, err := s.idx.TemporalMetadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if temporalJSON {
			return printJSON(cmd, meta)
		}

		cmd.Printf("Chunk:      %s\n", meta.ChunkID)
		if meta.VersionMention != nil {
			cmd.Printf("Versions:   %s\n", *meta.VersionMention)
		}
		if meta.ReleaseDateMention != nil {
			cmd.Printf("Dates:      %s\n", *meta.ReleaseDateMention)
		}
		cmd.Printf("Confidence: %.1f\n", meta.Confidence)
		return nil
	},
}

func init() {
	temporalShowCmd.Flags().BoolVar(&temporalJSON, "json", false, "output as JSON")
	temporalCmd.AddCommand(temporalExtractCmd, temporalShowCmd)
	rootCmd.AddCommand(temporalCmd)
}
