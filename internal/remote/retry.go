// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package remote

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/sirseerhq/cf-tracker/internal/apierror"
	"github.com/sirseerhq/cf-tracker/internal/observability"
)

// RetryConfig configures the retry behavior for API calls
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Budget returns the longest a read can take when every attempt runs for
// attempt and every backoff is at its cap.
func (c *RetryConfig) Budget(attempt time.Duration) time.Duration {
	retries := time.Duration(max(c.MaxRetries, 0))
	return attempt*(retries+1) + c.MaxBackoff*retries
}

// RetryClient wraps a Client and repeats read requests that fail with a
// transient network or gateway error, using exponential backoff. Bookmark
// mutations are passed through unchanged since repeating them is not safe.
type RetryClient struct {
	Client
	config    *RetryConfig
	inspector apierror.Inspector
	logger    *slog.Logger
	metrics   *observability.RequestMetrics
	sleep     func(ctx context.Context, d time.Duration) error
}

// RetryOption configures a RetryClient.
type RetryOption func(*RetryClient)

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(l *slog.Logger) RetryOption {
	return func(r *RetryClient) { r.logger = l }
}

// WithRetryMetrics counts retries.
func WithRetryMetrics(m *observability.RequestMetrics) RetryOption {
	return func(r *RetryClient) { r.metrics = m }
}

// NewRetryClient creates a new RetryClient with the given configuration
func NewRetryClient(client Client, config *RetryConfig, opts ...RetryOption) *RetryClient {
	if config == nil {
		config = DefaultRetryConfig()
	}
	r := &RetryClient{
		Client:    client,
		config:    config,
		inspector: apierror.NewInspector(),
		logger:    slog.Default(),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetUser implements Client with retry logic.
func (r *RetryClient) GetUser(ctx context.Context, handle string) (*User, error) {
	return withRetry(ctx, r, "user", func(ctx context.Context) (*User, error) {
		return r.Client.GetUser(ctx, handle)
	})
}

// GetSolved implements Client with retry logic.
func (r *RetryClient) GetSolved(ctx context.Context, handle string) ([]ProblemKey, error) {
	return withRetry(ctx, r, "solved", func(ctx context.Context) ([]ProblemKey, error) {
		return r.Client.GetSolved(ctx, handle)
	})
}

// GetSubmissions implements Client with retry logic.
func (r *RetryClient) GetSubmissions(ctx context.Context, handle string) ([]Submission, error) {
	return withRetry(ctx, r, "submissions", func(ctx context.Context) ([]Submission, error) {
		return r.Client.GetSubmissions(ctx, handle)
	})
}

// GetTags implements Client with retry logic.
func (r *RetryClient) GetTags(ctx context.Context) ([]string, error) {
	return withRetry(ctx, r, EndpointTags, r.Client.GetTags)
}

// ListProblems implements Client with retry logic.
func (r *RetryClient) ListProblems(ctx context.Context, q ProblemQuery) ([]Problem, error) {
	return withRetry(ctx, r, EndpointProblems, func(ctx context.Context) ([]Problem, error) {
		return r.Client.ListProblems(ctx, q)
	})
}

// CountProblems implements Client with retry logic.
func (r *RetryClient) CountProblems(ctx context.Context, q ProblemQuery) (int, error) {
	return withRetry(ctx, r, EndpointProblemsCount, func(ctx context.Context) (int, error) {
		return r.Client.CountProblems(ctx, q)
	})
}

// ListBookmarks implements Client with retry logic.
func (r *RetryClient) ListBookmarks(ctx context.Context) ([]Bookmark, error) {
	return withRetry(ctx, r, EndpointBookmarks, r.Client.ListBookmarks)
}

// GetServerConfig implements Client with retry logic.
func (r *RetryClient) GetServerConfig(ctx context.Context) (*ServerConfig, error) {
	return withRetry(ctx, r, EndpointConfig, r.Client.GetServerConfig)
}

func withRetry[T any](ctx context.Context, r *RetryClient, op string, call func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !r.inspector.IsRetryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == r.config.MaxRetries {
			break
		}

		backoff := r.calculateBackoff(attempt)
		r.logger.Warn("transient failure, retrying",
			"op", op,
			"attempt", attempt+1,
			"max_retries", r.config.MaxRetries,
			"backoff", backoff,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.Retries.Inc()
		}

		if err := r.sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("failed after %d retries: %w", r.config.MaxRetries,
		apierror.WithRetryInfo(lastErr, r.config.MaxRetries+1, r.config.MaxRetries+1))
}

// calculateBackoff calculates the backoff duration for the given attempt
func (r *RetryClient) calculateBackoff(attempt int) time.Duration {
	backoff := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffMultiplier, float64(attempt))

	if backoff > float64(r.config.MaxBackoff) {
		backoff = float64(r.config.MaxBackoff)
	}

	// Add jitter (±10%) to prevent thundering herd
	jitter := backoff * 0.1 * (2*rand.Float64() - 1)
	backoff += jitter

	return time.Duration(backoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
