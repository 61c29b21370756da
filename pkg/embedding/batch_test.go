package embedding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a deterministic vector per text, optionally failing
// the first N calls.
type fakeProvider struct {
	calls     int
	failFirst int
	failWith  error
}

func (f *fakeProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	f.calls++
	if f.calls <= f.failFirst {
		return nil, f.failWith
	}
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{
			Values: []float32{float32(len(text)), 1, 0},
		},
	}, nil
}

func fastConfig() BatchConfig {
	return BatchConfig{
		BatchSize:  2,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
}

func TestEmbedBatch_OrderAndLengthPreserved(t *testing.T) {
	client := NewBatchClient(&fakeProvider{}, fastConfig())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := client.EmbedBatch(context.Background(), texts, TaskRetrievalDocument)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
}

func TestEmbedBatch_RetriesTransientThenSucceeds(t *testing.T) {
	provider := &fakeProvider{
		failFirst: 2,
		failWith:  &httpStatusError{Status: 429, Body: "rate limited"},
	}
	client := NewBatchClient(provider, fastConfig())

	vectors, err := client.EmbedBatch(context.Background(), []string{"x"}, TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
}

func TestEmbedBatch_ExhaustedRetriesReturnUnavailable(t *testing.T) {
	provider := &fakeProvider{
		failFirst: 100,
		failWith:  &httpStatusError{Status: 503, Body: "down"},
	}
	client := NewBatchClient(provider, fastConfig())

	_, err := client.EmbedBatch(context.Background(), []string{"x", "y", "z"}, TaskRetrievalDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEmbedBatch_PermanentErrorFailsFast(t *testing.T) {
	provider := &fakeProvider{
		failFirst: 100,
		failWith:  fmt.Errorf("bad request payload"),
	}
	client := NewBatchClient(provider, fastConfig())

	_, err := client.EmbedBatch(context.Background(), []string{"x"}, TaskRetrievalDocument)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	// one attempt, no retries for non-transient failures
	assert.Equal(t, 1, provider.calls)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", &httpStatusError{Status: 429}, true},
		{"server error", &httpStatusError{Status: 502}, true},
		{"client error", &httpStatusError{Status: 400}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
