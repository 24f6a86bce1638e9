package repository

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// retryConfig controls retries of writes that hit a transient SQLite lock.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// isTransientSQLiteErr reports busy and locked errors, which the busy_timeout
// pragma does not always absorb when the timer callbacks and HTTP handlers
// write at the same time.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// retryOp executes fn with exponential backoff and jitter for transient
// errors. It stops early when ctx is done.
func retryOp(ctx context.Context, cfg retryConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransientSQLiteErr(lastErr) {
			return lastErr
		}
		if attempt == cfg.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(backoffDelay(cfg, attempt)):
		}
	}
	return lastErr
}

// backoffDelay is baseDelay * 2^attempt capped at maxDelay, plus up to
// baseDelay of jitter.
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(cfg.baseDelay)))
}
