package services

import (
	"log"
	"math"
	"strings"
	"time"
)

const (
	maxStorageAttempts = 3
	backoffBase        = 2.0
	maxBackoff         = 2 * time.Second
)

// storageBackoff returns the delay before the given retry attempt,
// exponential and capped.
func storageBackoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(backoffBase, float64(attempt))*100) * time.Millisecond
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// isTransientStorageError reports whether a storage error is worth
// retrying. Driver errors don't share a type across Postgres and SQLite,
// so this matches the messages both emit under contention or brief
// unavailability.
func isTransientStorageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{
		"database is locked",
		"deadlock detected",
		"connection refused",
		"connection reset",
		"too many connections",
		"i/o timeout",
	} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// withStorageRetry runs op, retrying a bounded number of times on
// transient storage errors. Non-transient errors surface immediately.
func withStorageRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < maxStorageAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !isTransientStorageError(err) {
			return err
		}
		delay := storageBackoff(attempt)
		log.Printf("Transient storage error (attempt %d/%d), retrying in %v: %v",
			attempt+1, maxStorageAttempts, delay, err)
		time.Sleep(delay)
	}
	return err
}
