package service

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
)

// retryTransient wraps a Start attempt with exponential backoff, for hosts
// whose engine client experiences transient connection errors (Temporal
// server briefly unreachable, Redis failover) rather than a genuine command
// error. Permanent command errors (ErrAlreadyStarted and friends) are never
// retried: retryTransient wraps them in backoff.Permanent itself.
func retryTransient(ctx context.Context, fn func() (string, error)) (string, error) {
	return backoff.Retry(ctx, func() (string, error) {
		id, err := fn()
		if err != nil {
			if isCommandError(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return id, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
}

// isCommandError reports whether err is one of the service package's own
// sentinel command errors, which represent a caller mistake rather than a
// transient infrastructure fault and should never be retried.
func isCommandError(err error) bool {
	for _, sentinel := range []error{ErrAlreadyStarted, ErrNotFound, ErrNotPaused, ErrNoPendingApproval, ErrApprovalIDMismatch, ErrNotCompleted} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
