package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

var (
	inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokeapi_inflight_requests",
		Help: "Number of upstream requests currently in flight",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokeapi_rate_limit_wait_seconds",
		Help:    "Time spent waiting for an upstream request slot",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_rate_limit_blocks_total",
		Help: "Total number of times upstream back-pressure blocked new requests",
	})

	limiterSaturated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_limiter_saturated_total",
		Help: "Requests that found every upstream slot taken and had to queue",
	})
)

// Tracker caps concurrent upstream requests and tracks back-pressure.
type Tracker struct {
	sem      *semaphore.Weighted
	capacity int64
	inFlight atomic.Int64

	mu           sync.Mutex
	blockedUntil time.Time
	lastUpdate   time.Time

	logger zerolog.Logger
}

// NewTracker creates a tracker allowing maxConcurrency parallel requests.
func NewTracker(maxConcurrency int, logger zerolog.Logger) *Tracker {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Tracker{
		sem:      semaphore.NewWeighted(int64(maxConcurrency)),
		capacity: int64(maxConcurrency),
		logger:   logger,
	}
}

// Acquire waits for a request slot. It first waits out any active
// back-pressure window, then takes a slot. The returned release func must be
// called once the response has been consumed.
func (t *Tracker) Acquire(ctx context.Context) (func(), error) {
	start := time.Now()

	if wait := t.State().TimeUntilReset(); wait > 0 {
		t.logger.Debug().
			Dur("wait_duration", wait).
			Msg("Waiting for upstream back-pressure to clear")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("wait for rate limit reset: %w", ctx.Err())
		case <-timer.C:
		}
	}

	if t.State().IsSaturated() {
		limiterSaturated.Inc()
		t.logger.Debug().Int64("capacity", t.capacity).Msg("All request slots taken, queueing")
	}

	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire request slot: %w", err)
	}
	rateLimitWaitSeconds.Observe(time.Since(start).Seconds())

	t.inFlight.Add(1)
	inflightRequests.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.inFlight.Add(-1)
			inflightRequests.Dec()
			t.sem.Release(1)
		})
	}, nil
}

// UpdateFromResponse records upstream back-pressure. Only 429 and 503
// responses are considered; Retry-After may be delta-seconds or an HTTP date.
func (t *Tracker) UpdateFromResponse(statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests && statusCode != http.StatusServiceUnavailable {
		return nil
	}

	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" && statusCode == http.StatusServiceUnavailable {
		// Plain outage, nothing to wait for
		return nil
	}

	wait, err := parseRetryAfter(retryAfter)
	if err != nil {
		wait = DefaultBackoff
	}
	if wait > MaxBackoff {
		wait = MaxBackoff
	}

	now := time.Now()
	until := now.Add(wait)

	t.mu.Lock()
	if until.After(t.blockedUntil) {
		t.blockedUntil = until
	}
	t.lastUpdate = now
	t.mu.Unlock()

	rateLimitBlocksTotal.Inc()
	t.logger.Warn().
		Int("status", statusCode).
		Dur("wait_duration", wait).
		Time("blocked_until", until).
		Msg("Upstream back-pressure - new requests will wait")

	if err != nil {
		return fmt.Errorf("parse Retry-After header: %w", err)
	}
	return nil
}

// State returns a snapshot of the limiter.
func (t *Tracker) State() *RateLimitState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return &RateLimitState{
		InFlight:     t.inFlight.Load(),
		Capacity:     t.capacity,
		BlockedUntil: t.blockedUntil,
		LastUpdate:   t.lastUpdate,
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("empty value")
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative delay %d", seconds)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return 0, err
	}
	if d := time.Until(at); d > 0 {
		return d, nil
	}
	return 0, nil
}
