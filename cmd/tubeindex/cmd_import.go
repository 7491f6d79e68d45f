package main

import (
	"github.com/spf13/cobra"

	"github.com/DreamCats/tubeindex/internal/indexer"
)

var importJSON bool

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import videos and transcript chunks",
	Long: `Loads a JSON document of the form

  {"videos": [{"id": "...", "title": "...", "channel": "...", "published_at": "2024-01-02T00:00:00Z",
               "chunks": [{"id": "...", "content": "...", "start_time": 0, "end_time": 12.5}]}]}

into the database and the text index. Chunks without an id get a generated UUID.
Chunks may carry a precomputed "embedding" array.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		file, err := indexer.ReadImportFile(args[0])
		if err != nil {
			return err
		}
		stats, err := s.idx.Import(cmd.Context(), file)
		if err != nil {
			return err
		}

		if importJSON {
			return printJSON(cmd, stats)
		}
		cmd.Printf("Imported %d video(s), %d chunk(s), %d with embeddings\n", stats.Videos, stats.Chunks, stats.Embedded)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importJSON, "json", false, "output stats as JSON")
	rootCmd.AddCommand(importCmd)
}
