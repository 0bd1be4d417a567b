package generation

import (
	"context"
	"time"
)

// retryTransient runs call, retrying transient failures up to retries
// times with exponential backoff starting at baseDelay and doubling
// each attempt. Non-transient failures stop immediately. The sleep
// blocks only this logical task.
func retryTransient(ctx context.Context, retries int, baseDelay time.Duration, call func() (string, error)) (string, error) {
	var lastErr error
	delay := baseDelay

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		text, err := call()
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsTransient(err) {
			break
		}
	}

	return "", lastErr
}
