package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

const maxAttempts = 3

// baseDelay is the first backoff step; tests shrink it.
var baseDelay = time.Second

// withRetry runs fn up to maxAttempts times, backing off 1s then 2s between
// rate-limited attempts. Any other error surfaces immediately, and the final
// failure is returned without a trailing wait. The backoff waits respect ctx
// cancellation.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isRateLimited(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		delay := baseDelay << (attempt - 1)
		slog.WarnContext(ctx, "Sheets API rate limited, backing off",
			"op", op, "attempt", attempt, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: rate limited after %d attempts: %w", op, maxAttempts, err)
}

// isRateLimited reports whether err is a Sheets quota or rate limit
// rejection, the only class of error worth retrying.
func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		reason := strings.ToLower(item.Reason)
		if strings.Contains(reason, "ratelimit") || strings.Contains(reason, "quota") {
			return true
		}
	}
	msg := strings.ToLower(gerr.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}
