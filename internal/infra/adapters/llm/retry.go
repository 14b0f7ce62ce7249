package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
	"yoyaktube/internal/infra/metrics"
)

const (
	maxAttempts    = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 10 * time.Second
)

// attemptFn performs one provider call. includeTemperature tells the
// adapter whether to put the sampling temperature on the wire.
type attemptFn func(ctx context.Context, includeTemperature bool) (adapter.ChatResponse, error)

// chatWithRetry implements the uniform retry policy:
//   - transient and rate-limited failures retry up to maxAttempts total,
//     exponential backoff from initialBackoff capped at maxBackoff;
//   - auth and malformed failures surface immediately;
//   - when a malformed failure names the temperature parameter and the
//     request still carried one, the call is repeated once, immediately,
//     without it; that repeat does not consume an attempt.
//
// sleep is injectable for tests; nil means real waiting that also honors
// ctx cancellation between attempts.
func chatWithRetry(ctx context.Context, provider, model string, includeTemperature bool, call attemptFn, sleep func(context.Context, time.Duration) error) (adapter.ChatResponse, error) {
	if sleep == nil {
		sleep = waitBackoff
	}
	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := call(ctx, includeTemperature)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var perr *domain.ProviderError
		if !errors.As(err, &perr) {
			return adapter.ChatResponse{}, err
		}
		if includeTemperature && perr.Kind == domain.FailureMalformed && mentionsTemperature(perr) {
			includeTemperature = false
			attempt-- // degradation retry is free
			continue
		}
		if !perr.Retryable() || attempt == maxAttempts-1 {
			return adapter.ChatResponse{}, err
		}
		metrics.IncChatRetry(provider, model)
		if err := sleep(ctx, backoff); err != nil {
			return adapter.ChatResponse{}, err
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return adapter.ChatResponse{}, lastErr
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// mentionsTemperature is the boundary stopgap for providers that return
// no structured parameter name: the error text itself is inspected.
func mentionsTemperature(perr *domain.ProviderError) bool {
	return perr.Err != nil && strings.Contains(strings.ToLower(perr.Err.Error()), "temperature")
}
