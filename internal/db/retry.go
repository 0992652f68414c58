package db

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backoff grows from 500ms and doubles per attempt up to 10s.
//
// attempt=0 => 500ms
// attempt=1 => 1s
// attempt=2 => 2s
func Backoff(attempt int) time.Duration {
	base := 500 * time.Millisecond
	capDelay := 10 * time.Second

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))

	if delay > capDelay || delay <= 0 {
		delay = capDelay
	}

	// small jitter (0-100ms) so replicas do not reconnect in lockstep
	delay += time.Duration(rand.Intn(100)) * time.Millisecond
	return delay
}

// ConnectWithRetry calls NewPool until it succeeds, attempts run out or ctx
// ends. Postgres often comes up after the API in compose setups.
func ConnectWithRetry(ctx context.Context, dbURL string, attempts int, log *slog.Logger) (*pgxpool.Pool, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		pool, err := NewPool(ctx, dbURL)
		if err == nil {
			return pool, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := Backoff(attempt)
		log.WarnContext(ctx, "database not reachable, retrying", "attempt", attempt+1, "retry_in_ms", delay.Milliseconds(), "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}
