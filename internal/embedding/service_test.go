package embedding

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DreamCats/tubeindex/internal/cache"
	"github.com/DreamCats/tubeindex/internal/config"
)

type fakeClient struct {
	mu        sync.Mutex
	calls     int
	batchSize []int
	failures  []error
	dims      int
}

func (f *fakeClient) next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return err
	}
	return nil
}

func (f *fakeClient) vector(text string) []float32 {
	v := make([]float32, f.dims)
	v[0] = float32(len(text))
	return v
}

func (f *fakeClient) Embed(_ context.Context, text string) ([]float32, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	return f.vector(text), nil
}

func (f *fakeClient) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if err := f.next(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.batchSize = append(f.batchSize, len(texts))
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeClient) Dimensions() int { return f.dims }

func noDelay() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
}

func newTestService(client *fakeClient, opts ...Option) *Service {
	cfg := config.EmbeddingConfig{Model: "test", Dimensions: client.dims, BatchSize: 2}
	return NewServiceWithClient(client, cfg, append([]Option{WithBackOff(noDelay)}, opts...)...)
}

func TestService_EmbedUsesCache(t *testing.T) {
	client := &fakeClient{dims: 3}
	svc := newTestService(client, WithCache(cache.NewMemory(8, time.Minute), time.Minute))
	ctx := context.Background()

	first, err := svc.Embed(ctx, "react hooks")
	require.NoError(t, err)
	second, err := svc.Embed(ctx, "react hooks")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls)
}

func TestService_EmbedRetriesTransientErrors(t *testing.T) {
	client := &fakeClient{
		dims: 3,
		failures: []error{
			&APIError{StatusCode: http.StatusTooManyRequests},
			&APIError{StatusCode: http.StatusBadGateway},
		},
	}
	svc := newTestService(client)

	vec, err := svc.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
	assert.Equal(t, 3, client.calls)
}

func TestService_EmbedDoesNotRetryPermanentErrors(t *testing.T) {
	client := &fakeClient{dims: 3, failures: []error{&APIError{StatusCode: http.StatusUnauthorized}}}
	svc := newTestService(client)

	_, err := svc.Embed(context.Background(), "query")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 1, client.calls)
}

func TestService_EmbedRejectsWrongDimensions(t *testing.T) {
	client := &fakeClient{dims: 3}
	svc := NewServiceWithClient(client, config.EmbeddingConfig{Dimensions: 4}, WithBackOff(noDelay))

	_, err := svc.Embed(context.Background(), "query")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestService_EmbedBatchSkipsEmptyAndBatches(t *testing.T) {
	client := &fakeClient{dims: 2}
	svc := newTestService(client)

	out, err := svc.EmbedBatch(context.Background(), []string{"a", "", "bbb", "cc", "d"})
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Nil(t, out[1])
	assert.Equal(t, float32(3), out[2][0])
	assert.Equal(t, []int{2, 2}, client.batchSize)
}

func TestService_EmbedEmptyText(t *testing.T) {
	svc := newTestService(&fakeClient{dims: 2})
	_, err := svc.Embed(context.Background(), "")
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 400}))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errTransport))
	assert.False(t, IsRetryable(errors.New("boom")))
}
