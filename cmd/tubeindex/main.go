package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DreamCats/tubeindex/cmd/tubeindex/internal"
	"github.com/DreamCats/tubeindex/internal/config"
	"github.com/DreamCats/tubeindex/internal/indexer"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tubeindex",
	Short: "Hybrid search and similarity graph over video transcripts",
	Long: `tubeindex indexes video transcript chunks into SQLite and a bleve text index,
answers free-text queries with fused vector and keyword rankings, and links
chunks across videos through a precomputed similarity graph.`,
	Version:       internal.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ~/.tubeindex/config/tubeindex.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides database.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if config.IsConfigNotFound(err) {
			fmt.Fprintln(os.Stderr)
			internal.PrintConfigHint(os.Stderr)
		}
		stop()
		os.Exit(1)
	}
}

// session is what every data command works with.
type session struct {
	cfg    *config.Config
	idx    *indexer.Indexer
	logger *zap.Logger
	close  func()
}

// openSession loads config, sets up logging and opens the index.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := internal.LoadConfig(cfgFile, dbPath)
	if err != nil {
		return nil, err
	}

	logger, flush, err := internal.SetupLogger(cmd.Name(), cfg.Log, verbose)
	if err != nil {
		return nil, err
	}

	idx, err := indexer.NewIndexer(cfg, logger)
	if err != nil {
		flush()
		return nil, err
	}

	return &session{
		cfg:    cfg,
		idx:    idx,
		logger: logger,
		close: func() {
			if err := idx.Close(); err != nil {
				logger.Warn("close index", zap.Error(err))
			}
			flush()
		},
	}, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
