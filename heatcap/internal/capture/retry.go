package capture

import (
	"context"
	"log/slog"
	"time"
)

type shotFunc func(ctx context.Context, url, selector string, wait time.Duration) ([]byte, error)

// withRetry wraps a shot with exponential backoff. It respects context
// cancellation between attempts.
//
// Parameters:
//   - maxRetries: maximum number of retry attempts (0 = no retry)
//   - baseBackoff: initial wait between retries, doubled each attempt
//   - logger: used to log retry attempts (may be nil for silent retries)
func withRetry(maxRetries int, baseBackoff time.Duration, logger *slog.Logger) func(shotFunc) shotFunc {
	return func(next shotFunc) shotFunc {
		return func(ctx context.Context, url, selector string, wait time.Duration) ([]byte, error) {
			var lastErr error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				data, err := next(ctx, url, selector, wait)
				if err == nil {
					return data, nil
				}
				lastErr = err

				if ctx.Err() != nil {
					return nil, lastErr
				}

				if attempt < maxRetries {
					backoff := baseBackoff * (1 << uint(attempt))
					if logger != nil {
						logger.WarnContext(ctx, "capture: retrying shot",
							"url", url,
							"attempt", attempt+1,
							"max_retries", maxRetries,
							"backoff_ms", backoff.Milliseconds(),
							"error", err)
					}
					select {
					case <-ctx.Done():
						return nil, lastErr
					case <-time.After(backoff):
					}
				}
			}
			return nil, lastErr
		}
	}
}
