package extract

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig bounds the backoff loop wrapping a single extractor call.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryConfig matches spec.md's MAX_RETRIES default of 3.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: 500 * time.Millisecond}
}

// WithRetry calls fn, retrying on transient failures (5xx status text,
// timeouts, or rate-limit responses) up to cfg.MaxRetries times with
// exponential backoff. Structural errors (anything not recognized as
// transient) fail immediately without consuming a retry.
func WithRetry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransient(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}
		delay := time.Duration(math.Pow(2, float64(attempt))) * cfg.BaseDelay
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "rate limit") {
		return true
	}
	for code := http.StatusInternalServerError; code < 600; code++ {
		if strings.Contains(msg, "status "+strconv.Itoa(code)) {
			return true
		}
	}
	if strings.Contains(msg, "status 429") {
		return true
	}
	return false
}
