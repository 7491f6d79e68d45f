package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/DreamCats/tubeindex/internal/config"
	"github.com/DreamCats/tubeindex/internal/graph"
	"github.com/DreamCats/tubeindex/internal/indexer"
	"github.com/DreamCats/tubeindex/internal/retrieval"
	"github.com/DreamCats/tubeindex/internal/store"
)

// Server exposes tubeindex search and graph traversal via MCP stdio.
type Server struct {
	cfg      *config.Config
	idx      *indexer.Indexer
	synonyms *retrieval.SynonymsExpander
	version  string
	logger   *zap.Logger
}

// New creates a new MCP server wrapper. The index stays open for the
// lifetime of the server and is owned by the caller.
func New(cfg *config.Config, idx *indexer.Indexer, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	synonyms, err := retrieval.LoadSynonymsFile(cfg.Search.SynonymsFile)
	if err != nil {
		logger.Warn("failed to load synonyms file", zap.Error(err))
	}
	return &Server{
		cfg:      cfg,
		idx:      idx,
		synonyms: synonyms,
		version:  version,
		logger:   logger,
	}
}

// Run starts the MCP stdio server and blocks until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tubeindex",
		Title:   "TubeIndex",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "tubeindex_search",
		Description: `Search video transcript chunks.

Modes:
- hybrid (default): fuses vector and keyword rankings; score is the fused score
- vector: score is cosine similarity
- keyword: score is the full-text relevance score

If the query cannot be embedded the results are keyword-only and flagged as degraded.
Set by_video to group chunks under their video.`,
	}, s.searchTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "tubeindex_related",
		Description: `Find chunks in other videos that are similar to the chunks of a video.

Reads the precomputed similarity graph; run "tubeindex graph backfill" to refresh it.`,
	}, s.relatedTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tubeindex_temporal",
		Description: "Return the version and release-date mentions extracted from a chunk.",
	}, s.temporalTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tubeindex_status",
		Description: "Report index statistics: videos, chunks, embeddings, graph edges and temporal metadata.",
	}, s.statusTool)

	s.logger.Info("mcp server starting", zap.String("version", s.version))
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) searchTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}

	opts := s.searchOptions(input)
	resp, err := s.idx.Retriever(s.synonyms).Search(ctx, query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:          query,
		Mode:           string(resp.Mode),
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}
	if input.ByVideo {
		output.Videos = retrieval.AggregateByVideo(resp.Results, s.cfg.Search.MaxEvidence)
		output.Count = len(output.Videos)
	} else {
		output.Results = resp.Results
		output.Count = len(resp.Results)
	}
	return nil, output, nil
}

func (s *Server) searchOptions(input SearchInput) retrieval.SearchOptions {
	opts := retrieval.SearchOptions{
		Mode:     retrieval.Mode(input.Mode),
		Limit:    input.Limit,
		Channels: input.Channels,
	}
	if opts.Mode == "" {
		opts.Mode = retrieval.ModeHybrid
	}
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.Search.DefaultLimit
	}
	if input.Decay {
		opts.DecayHalfLifeDays = s.cfg.Temporal.HalfLifeDays
		if input.HalfLifeDays > 0 {
			opts.DecayHalfLifeDays = input.HalfLifeDays
		}
	}
	return opts
}

func (s *Server) relatedTool(ctx context.Context, _ *mcp.CallToolRequest, input RelatedInput) (*mcp.CallToolResult, RelatedOutput, error) {
	if input.VideoID == "" {
		return nil, RelatedOutput{}, fmt.Errorf("video_id is required")
	}

	opts := s.relatedOptions(input)
	related, err := s.idx.Traverser().GetRelatedChunks(ctx, input.VideoID, opts)
	if err != nil {
		return nil, RelatedOutput{}, err
	}
	return nil, RelatedOutput{VideoID: input.VideoID, Count: len(related), Related: related}, nil
}

func (s *Server) relatedOptions(input RelatedInput) graph.RelatedOptions {
	opts := graph.RelatedOptions{
		Limit:         s.cfg.Graph.RelatedLimit,
		MinSimilarity: s.cfg.Graph.MinSimilarity,
	}
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	if input.MinSimilarity != 0 {
		opts.MinSimilarity = input.MinSimilarity
	}
	opts.IncludeWithinVideo = input.IncludeWithinVideo
	return opts
}

func (s *Server) temporalTool(ctx context.Context, _ *mcp.CallToolRequest, input TemporalInput) (*mcp.CallToolResult, TemporalOutput, error) {
	if input.ChunkID == "" {
		return nil, TemporalOutput{}, fmt.Errorf("chunk_id is required")
	}
	meta, err := s.idx.TemporalMetadata(ctx, input.ChunkID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, TemporalOutput{Found: false}, nil
	}
	if err != nil {
		return nil, TemporalOutput{}, err
	}
	return nil, TemporalOutput{Found: true, Metadata: meta}, nil
}

func (s *Server) statusTool(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	stats, err := s.idx.Stats(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Videos:           stats.VideoCount,
		Chunks:           stats.ChunkCount,
		Embedded:         stats.EmbeddedChunkCount,
		Relationships:    stats.RelationshipCount,
		TemporalMetadata: stats.TemporalCount,
		TextDocuments:    stats.TextDocuments,
		Embedding:        stats.Embedding,
	}, nil
}
