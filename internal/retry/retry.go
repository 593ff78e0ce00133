// Package retry implements the exponential-backoff execution wrapper used
// around probe runs, shared-store operations and outbound deliveries.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/WhyMan1/bot-reality/internal/common"
	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/projectdiscovery/gologger"
)

// Operation is one retryable unit of work
type Operation func(ctx context.Context) error

// Do executes the operation with exponential backoff per the given profile.
// Errors classified as permanent (validation, configuration, permission,
// not-found) are returned immediately without further attempts; the last
// failure is propagated unchanged when all attempts are exhausted.
func Do(ctx context.Context, cfg config.RetryConfig, op Operation) error {
	classifier := common.NewErrorClassifier()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !classifier.IsRetryableError(lastErr) {
			gologger.Debug().Msgf("Not retrying permanent error: %v", lastErr)
			return lastErr
		}

		if attempt == cfg.MaxAttempts-1 {
			gologger.Error().Msgf("All %d attempts failed. Last error: %v", cfg.MaxAttempts, lastErr)
			break
		}

		delay := backoffDelay(cfg, attempt)
		gologger.Warning().Msgf("Attempt %d/%d failed: %v. Retrying in %v", attempt+1, cfg.MaxAttempts, lastErr, delay.Round(10*time.Millisecond))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// backoffDelay computes min(base * multiplier^attempt, max), scaled by a
// uniform factor in [0.5, 1.0) when jitter is enabled
func backoffDelay(cfg config.RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if capped := float64(cfg.MaxDelay); delay > capped {
		delay = capped
	}

	if cfg.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}

	return time.Duration(delay)
}
