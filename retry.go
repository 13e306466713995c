package ideabase

import (
	"context"
	"strings"
	"time"

	"github.com/autom8ter/ideabase/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// RetryPolicy controls how transient failures are retried
type RetryPolicy struct {
	// Attempts is the total number of attempts, including the first
	Attempts int `json:"attempts" mapstructure:"attempts"`
	// Backoff is multiplied by the attempt number to get the delay before the next attempt
	Backoff time.Duration `json:"backoff" mapstructure:"backoff"`
}

// DefaultRetryPolicy makes two attempts with a 200ms delay between them
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 2,
	Backoff:  200 * time.Millisecond,
}

// Delay returns the delay after the given failed attempt
func (r RetryPolicy) Delay(attempt int) time.Duration {
	return r.Backoff * time.Duration(attempt)
}

var transientPatterns = []string{
	"server selection",
	"connection reset",
	"connection refused",
	"connection closed",
	"connection pool",
	"broken pipe",
	"tls",
	"ssl",
	"handshake",
	"socket",
	"i/o timeout",
	"topology is closed",
	"client is disconnected",
	"no reachable servers",
}

// permanentPatterns mark store errors that carry user data in their message and must never be retried
var permanentPatterns = []string{
	"e11000",
	"duplicate key",
}

// IsTransient reports whether the error is a connectivity failure worth retrying on a fresh connection.
// Validation and not found errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch errors.CodeOf(err) {
	case errors.Validation, errors.NotFound, errors.Forbidden, errors.Unauthorized:
		return false
	case errors.Unavailable:
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	// server errors echo document values, so only their labels are trusted
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) {
		if labeled.HasErrorLabel("RetryableWriteError") || labeled.HasErrorLabel("TransientTransactionError") {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range permanentPatterns {
		if strings.Contains(msg, pattern) {
			return false
		}
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or the policy's attempts are spent.
// The store connection is reset between attempts. The final error is returned unchanged.
func (a *Adapter) withRetry(ctx context.Context, tags map[string]any, fn func(ctx context.Context, attempt int) (*Result, error)) (*Result, error) {
	var (
		result *Result
		err    error
	)
	for attempt := 1; attempt <= a.retry.Attempts; attempt++ {
		result, err = fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if attempt == a.retry.Attempts || !IsTransient(err) {
			return nil, err
		}
		a.logger.Warn(ctx, "transient store failure, retrying", map[string]any{
			"collection": tags["collection"],
			"action":     tags["action"],
			"attempt":    attempt,
			"error":      err.Error(),
		})
		if rerr := a.store.Reset(ctx); rerr != nil {
			a.logger.Warn(ctx, "failed to reset store connection", map[string]any{"error": rerr.Error()})
		}
		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(a.retry.Delay(attempt)):
		}
	}
	return result, err
}
