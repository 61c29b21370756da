package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrUnavailable is returned after every retry for a batch is exhausted.
// The caller decides between retry-later and failing the request; partial
// batches are never returned, so the index stays consistent with its
// metadata.
var ErrUnavailable = errors.New("embedding: service unavailable")

// httpStatusError carries a non-200 provider reply so the retry loop can
// tell transient failures (rate limits, gateway errors) from permanent ones.
type httpStatusError struct {
	Status int
	Body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("embedding provider returned status %d: %s", e.Status, e.Body)
}

// BatchConfig tunes the batch client.
type BatchConfig struct {
	BatchSize  int           // texts per batch (bounds request volume)
	MaxRetries int           // attempts per batch beyond the first
	RetryDelay time.Duration // initial backoff delay
	MaxDelay   time.Duration // backoff cap
}

func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchSize:  100,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
	}
}

// BatchClient embeds batches of texts through an EmbeddingProvider with
// capped exponential backoff. A batch is all-or-nothing: output length and
// order always match input, or the whole batch fails.
type BatchClient struct {
	provider EmbeddingProvider
	config   BatchConfig
}

func NewBatchClient(provider EmbeddingProvider, config BatchConfig) *BatchClient {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchConfig().BatchSize
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultBatchConfig().RetryDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultBatchConfig().MaxDelay
	}
	return &BatchClient{provider: provider, config: config}
}

// EmbedBatch returns one vector per input text, in input order. It splits
// the input into provider batches of at most BatchSize and retries each
// batch on transient failures.
func (c *BatchClient) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.config.BatchSize {
		end := start + c.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedOne(ctx, texts[start:end], taskType)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *BatchClient) embedOne(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		batch, err := c.tryBatch(ctx, texts, taskType)
		if err == nil {
			return batch, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: retries exhausted: %v", ErrUnavailable, lastErr)
}

// tryBatch embeds every text of the batch once. Any single failure fails
// the whole batch so callers never see a partial result.
func (c *BatchClient) tryBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		res, err := c.provider.Generate(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		out[i] = res.Embedding.Values
	}
	return out, nil
}

func (c *BatchClient) backoff(attempt int) time.Duration {
	delay := c.config.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.config.MaxDelay {
			return c.config.MaxDelay
		}
	}
	if delay > c.config.MaxDelay {
		delay = c.config.MaxDelay
	}
	return delay
}

// isTransient classifies failures worth retrying: rate limits, server-side
// errors, and network-level problems.
func isTransient(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == http.StatusTooManyRequests ||
			statusErr.Status == http.StatusRequestTimeout ||
			statusErr.Status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
