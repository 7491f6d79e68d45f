package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/DreamCats/tubeindex/internal/graph"
)

var (
	graphThreshold  float64
	graphNoProgress bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and maintain the chunk similarity graph",
}

var graphBuildCmd = &cobra.Command{
	Use:   "build <videoId>",
	Short: "Compute similarity edges for one video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		stats, err := s.idx.GraphBuilder().ComputeRelationships(cmd.Context(), args[0], threshold(cmd, s.cfg.Graph.Threshold))
		if err != nil {
			return err
		}
		cmd.Printf("Created %d edge(s), %d already present\n", stats.Created, stats.Skipped)
		return nil
	},
}

var graphBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Delete all edges and rebuild the graph for every video",
	Long: `Rebuilds the whole similarity graph. This compares every chunk with every other
chunk and can take a long time on large corpora. Interrupting stops after the
current video; the graph is then partial until the next backfill.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		progress := graph.NewBarProgress(!graphNoProgress && graph.DefaultProgressEnabled(), os.Stderr, "building graph")
		report, err := s.idx.GraphBuilder().Backfill(cmd.Context(), graph.BackfillOptions{
			Threshold: threshold(cmd, s.cfg.Graph.Threshold),
			Progress:  progress,
		})
		if err != nil {
			return err
		}

		cmd.Printf("Processed %d/%d video(s): %d edge(s) created, %d failed\n",
			report.Processed, report.Videos, report.Created, report.Failed)
		for _, f := range report.Failures {
			cmd.PrintErrf("  %s: %s\n", f.VideoID, f.Error)
		}
		if report.Cancelled {
			cmd.PrintErrln("Backfill interrupted; the graph is incomplete.")
		}
		return nil
	},
}

var graphPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove edges pointing at deleted or unembedded chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		n, err := s.idx.PruneEdges(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d dangling edge(s)\n", n)
		return nil
	},
}

func threshold(cmd *cobra.Command, fallback float64) float64 {
	if cmd.Flags().Changed("threshold") {
		return graphThreshold
	}
	return fallback
}

func init() {
	graphBuildCmd.Flags().Float64Var(&graphThreshold, "threshold", graph.DefaultThreshold, "similarity an edge must exceed")
	graphBackfillCmd.Flags().Float64Var(&graphThreshold, "threshold", graph.DefaultThreshold, "similarity an edge must exceed")
	graphBackfillCmd.Flags().BoolVar(&graphNoProgress, "no-progress", false, "disable the progress bar")

	graphCmd.AddCommand(graphBuildCmd, graphBackfillCmd, graphPruneCmd)
	rootCmd.AddCommand(graphCmd)
}
