package query

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_retries_total",
		Help: "Total number of retry attempts by resource",
	}, []string{"resource"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "query_retry_backoff_seconds",
		Help:    "Backoff duration for retries by resource",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"resource"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "query_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by resource",
	}, []string{"resource"})
)

var (
	// ErrRetryExhausted wraps the last error once every attempt failed.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// Retries is the number of extra attempts after the first one.
	Retries int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// Jitter randomizes each backoff by ±20% when set.
	Jitter bool

	// ShouldRetry decides whether an error is worth another attempt.
	// nil retries every error.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig returns the default retry configuration: two retries
// with 1s, 2s, ... backoff capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Retries:           2,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// NoRetry returns a configuration that runs fn exactly once.
func NoRetry() RetryConfig {
	return RetryConfig{}
}

// Attempts returns the total number of attempts including the first.
func (c RetryConfig) Attempts() int {
	if c.Retries < 0 {
		return 1
	}
	return c.Retries + 1
}

// Retry executes fn with exponential backoff. It respects context
// cancellation between attempts. Errors rejected by ShouldRetry are returned
// unchanged; after the last attempt the error is wrapped in ErrRetryExhausted.
func Retry(ctx context.Context, cfg RetryConfig, resource string, logger zerolog.Logger, fn func(context.Context) error) error {
	attempts := cfg.Attempts()

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("resource", resource).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return err
		}

		if attempt >= attempts {
			break
		}

		retriesTotal.WithLabelValues(resource).Inc()

		wait := backoff
		if cfg.Jitter && wait > 0 {
			wait = time.Duration(float64(wait) * (0.8 + rand.Float64()*0.4))
		}
		retryBackoffSeconds.WithLabelValues(resource).Observe(wait.Seconds())

		logger.Debug().
			Err(err).
			Str("resource", resource).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Warn().
					Str("resource", resource).
					Int("attempt", attempt).
					Msg("Context cancelled during retry backoff")
				return fmt.Errorf("retry %s: %w", resource, ctx.Err())
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return fmt.Errorf("retry %s: %w", resource, ctx.Err())
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	if attempts == 1 {
		return lastErr
	}

	retryExhaustedTotal.WithLabelValues(resource).Inc()
	logger.Warn().
		Err(lastErr).
		Str("resource", resource).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}
