package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DreamCats/tubeindex/internal/retrieval"
)

var (
	searchMode     string
	searchLimit    int
	searchByVideo  bool
	searchChannels []string
	searchDecay    bool
	searchHalfLife float64
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search transcript chunks",
	Long: `Runs vector, keyword or hybrid search over transcript chunks.

Hybrid search fuses both rankings with reciprocal rank fusion; the reported
score is the fused score, not a cosine similarity. When the query cannot be
embedded, results fall back to keyword ranking and are flagged as degraded.`,
	Example: `  tubeindex search "react server components"
  tubeindex search "goroutine leak" --mode keyword --limit 20
  tubeindex search "rust async" --by-video --channel "No Boilerplate"
  tubeindex search "python packaging" --decay --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchMode, "mode", "m", string(retrieval.ModeHybrid), "vector, keyword or hybrid")
	f.IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	f.BoolVar(&searchByVideo, "by-video", false, "group results by video")
	f.StringSliceVar(&searchChannels, "channel", nil, "only keep channels matching these glob patterns")
	f.BoolVar(&searchDecay, "decay", false, "down-weight older videos")
	f.Float64Var(&searchHalfLife, "half-life", 0, "decay half-life in days (default from config)")
	f.BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	synonyms, err := retrieval.LoadSynonymsFile(s.cfg.Search.SynonymsFile)
	if err != nil {
		s.logger.Warn("failed to load synonyms file", zap.Error(err))
	}

	opts := retrieval.SearchOptions{
		Mode:     retrieval.Mode(searchMode),
		Limit:    searchLimit,
		Channels: searchChannels,
	}
	if opts.Limit == 0 {
		opts.Limit = s.cfg.Search.DefaultLimit
	}
	if searchDecay {
		opts.DecayHalfLifeDays = s.cfg.Temporal.HalfLifeDays
		if searchHalfLife > 0 {
			opts.DecayHalfLifeDays = searchHalfLife
		}
	}

	resp, err := s.idx.Retriever(synonyms).Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchByVideo {
		videos := retrieval.AggregateByVideo(resp.Results, s.cfg.Search.MaxEvidence)
		if searchJSON {
			return printJSON(cmd, map[string]any{
				"query":           query,
				"mode":            resp.Mode,
				"degraded":        resp.Degraded,
				"degraded_reason": resp.DegradedReason,
				"videos":          videos,
			})
		}
		printDegraded(cmd, resp)
		printVideos(cmd, query, videos)
		return nil
	}

	if searchJSON {
		return printJSON(cmd, map[string]any{
			"query":           query,
			"mode":            resp.Mode,
			"degraded":        resp.Degraded,
			"degraded_reason": resp.DegradedReason,
			"count":           len(resp.Results),
			"results":         resp.Results,
		})
	}
	printDegraded(cmd, resp)
	printResults(cmd, query, resp.Results)
	return nil
}

func printDegraded(cmd *cobra.Command, resp *retrieval.SearchResponse) {
	if resp.Degraded {
		cmd.PrintErrf("Note: keyword-only results (%s)\n\n", resp.DegradedReason)
	}
}

func printResults(cmd *cobra.Command, query string, results []retrieval.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found")
		return
	}

	cmd.Printf("Found %d result(s) for: %s\n\n", len(results), query)
	for i, r := range results {
		cmd.Printf("%d. %s\n", i+1, r.VideoTitle)
		if r.Channel != nil {
			cmd.Printf("   Channel: %s\n", *r.Channel)
		}
		if r.StartTime != nil {
			cmd.Printf("   At:      %s\n", formatTimestamp(*r.StartTime))
		}
		cmd.Printf("   Score:   %.4f\n", r.Similarity)
		cmd.Printf("   %s\n\n", snippet(r.Content, 160))
	}
}

func printVideos(cmd *cobra.Command, query string, videos []retrieval.VideoResult) {
	if len(videos) == 0 {
		cmd.Println("No results found")
		return
	}

	cmd.Printf("Found %d video(s) for: %s\n\n", len(videos), query)
	for i, v := range videos {
		cmd.Printf("%d. %s (%.4f, %d match(es))\n", i+1, v.VideoTitle, v.Score, v.MatchCount)
		for _, e := range v.Evidence {
			at := ""
			if e.StartTime != nil {
				at = "[" + formatTimestamp(*e.StartTime) + "] "
			}
			cmd.Printf("   - %s%s\n", at, snippet(e.Content, 120))
		}
		cmd.Println()
	}
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
