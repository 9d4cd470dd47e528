// Package ratelimit wraps an embedding service with a token bucket so a
// scan cycle cannot flood a remote embedding provider.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
	"github.com/custodia-labs/ragindex/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	// DefaultBackoff applies after a 429 response.
	DefaultBackoff = 10 * time.Second

	// maxAttempts bounds retries of a throttled request.
	maxAttempts = 3
)

// EmbeddingService delegates to another service at a bounded request rate.
type EmbeddingService struct {
	next    driven.EmbeddingService
	limiter *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// Wrap limits next to requestsPerSecond with the given burst.
// A non-positive rate returns next unchanged.
func Wrap(next driven.EmbeddingService, requestsPerSecond float64, burst int) driven.EmbeddingService {
	if requestsPerSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &EmbeddingService{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		backoff: DefaultBackoff,
	}
}

// Embed waits for a token, then embeds text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := s.do(ctx, func() error {
		var err error
		out, err = s.next.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch waits for a token, then embeds texts in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := s.do(ctx, func() error {
		var err error
		out, err = s.next.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// do runs call under the limiter, backing off and retrying when the
// provider reports it is throttling.
func (s *EmbeddingService) do(ctx context.Context, call func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := s.wait(ctx); err != nil {
			return err
		}
		err = call()
		if err == nil || !isThrottled(err) {
			return err
		}
		logger.Warn("embedding provider throttled (attempt %d/%d), backing off %s", attempt, maxAttempts, s.backoff)
		s.mu.Lock()
		s.retryAt = time.Now().Add(s.backoff)
		s.mu.Unlock()
	}
	return err
}

func (s *EmbeddingService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return s.limiter.Wait(ctx)
}

// isThrottled recognises the status text the HTTP adapters put in their errors.
func isThrottled(err error) bool {
	return strings.Contains(err.Error(), "status 429")
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int { return s.next.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string { return s.next.ModelName() }

// Ping checks the wrapped service without consuming a token.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.next.Ping(ctx) }

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error { return s.next.Close() }
