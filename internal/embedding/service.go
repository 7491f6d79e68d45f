package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/DreamCats/tubeindex/internal/cache"
	"github.com/DreamCats/tubeindex/internal/config"
)

// ErrDimensionMismatch is returned when the provider answers with a vector of
// the wrong length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Service provides embedding generation functionality
type Service struct {
	cfg        config.EmbeddingConfig
	client     Client
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Option customises a Service.
type Option func(*Service)

// WithCache caches single-text embeddings (query embeddings) for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBackOff overrides the retry policy for provider calls.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Service) {
		s.newBackOff = newBackOff
	}
}

// NewService creates a new embedding service for the configured provider
func NewService(cfg config.EmbeddingConfig, opts ...Option) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "openai", "":
		client, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return NewServiceWithClient(client, cfg, opts...), nil
}

// NewServiceWithClient wraps an existing client.
func NewServiceWithClient(client Client, cfg config.EmbeddingConfig, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		client: client,
		cache:  cache.Nop{},
		logger: zap.NewNop(),
	}
	s.newBackOff = s.defaultBackOff
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	retries := s.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(bo, uint64(retries))
}

// Embed generates an embedding for a single text, consulting the cache first.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	key := s.cacheKey(text)
	if blob, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("embedding cache get failed", zap.Error(err))
	} else if ok {
		if vec, err := DecodeVector(blob); err == nil && s.validDims(vec) {
			return vec, nil
		}
		_ = s.cache.Delete(ctx, key)
	}

	var vec []float32
	err := s.retry(ctx, func() error {
		var err error
		vec, err = s.client.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !s.validDims(vec) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.cfg.Dimensions)
	}

	if err := s.cache.Set(ctx, key, EncodeVector(vec), s.cacheTTL); err != nil {
		s.logger.Warn("embedding cache set failed", zap.Error(err))
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts. Empty texts get a nil
// vector at their index.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	validTexts := make([]string, 0, len(texts))
	validIndices := make([]int, 0, len(texts))
	for i, text := range texts {
		if text != "" {
			validTexts = append(validTexts, text)
			validIndices = append(validIndices, i)
		}
	}

	if len(validTexts) == 0 {
		return nil, fmt.Errorf("no valid texts to embed")
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	results := make([][]float32, len(texts))

	for i := 0; i < len(validTexts); i += batchSize {
		end := min(i+batchSize, len(validTexts))

		batch := validTexts[i:end]
		var embeddings [][]float32
		err := s.retry(ctx, func() error {
			var err error
			embeddings, err = s.client.EmbedBatch(ctx, batch)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("batch %d-%d: expected %d embeddings, got %d", i, end, len(batch), len(embeddings))
		}

		for j, emb := range embeddings {
			if !s.validDims(emb) {
				return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), s.cfg.Dimensions)
			}
			results[validIndices[i+j]] = emb
		}

		s.logger.Debug("embedded batch", zap.Int("from", i), zap.Int("to", end))
	}

	return results, nil
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	if s.cfg.Dimensions > 0 {
		return s.cfg.Dimensions
	}
	return s.client.Dimensions()
}

func (s *Service) validDims(vec []float32) bool {
	if len(vec) == 0 {
		return false
	}
	return s.cfg.Dimensions <= 0 || len(vec) == s.cfg.Dimensions
}

// retry runs fn under the configured backoff. Only errors marked retryable
// by the client are retried.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		s.logger.Warn("embedding request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}
	return backoff.Retry(op, backoff.WithContext(s.newBackOff(), ctx))
}

func (s *Service) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.cfg.Model + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}
