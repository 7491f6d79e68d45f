package main

import (
	"github.com/spf13/cobra"

	"github.com/DreamCats/tubeindex/internal/graph"
)

var (
	relatedLimit         int
	relatedMinSimilarity float64
	relatedWithin        bool
	relatedJSON          bool
)

var relatedCmd = &cobra.Command{
	Use:   "related <videoId>",
	Short: "List chunks from other videos similar to a video's chunks",
	Long: `Reads the precomputed similarity graph. Results are only as fresh as the last
"graph build" or "graph backfill" for the video.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		opts := graph.RelatedOptions{
			Limit:              s.cfg.Graph.RelatedLimit,
			MinSimilarity:      s.cfg.Graph.MinSimilarity,
			IncludeWithinVideo: relatedWithin,
		}
		if cmd.Flags().Changed("limit") {
			opts.Limit = relatedLimit
		}
		if cmd.Flags().Changed("min-similarity") {
			opts.MinSimilarity = relatedMinSimilarity
		}

		related, err := s.idx.Traverser().GetRelatedChunks(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}

		if relatedJSON {
			return printJSON(cmd, map[string]any{"video_id": args[0], "count": len(related), "related": related})
		}
		if len(related) == 0 {
			cmd.Println("No related chunks found")
			return nil
		}
		for i, r := range related {
			cmd.Printf("%d. %s (%.4f)\n", i+1, r.VideoTitle, r.Similarity)
			cmd.Printf("   from chunk %s -> %s\n", r.SourceChunkID, r.ChunkID)
			cmd.Printf("   %s\n\n", snippet(r.Content, 160))
		}
		return nil
	},
}

func init() {
	f := relatedCmd.Flags()
	f.IntVarP(&relatedLimit, "limit", "n", 10, "maximum number of chunks")
	f.Float64Var(&relatedMinSimilarity, "min-similarity", 0.75, "minimum edge similarity")
	f.BoolVar(&relatedWithin, "within-video", false, "include chunks of the same video")
	f.BoolVar(&relatedJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(relatedCmd)
}
