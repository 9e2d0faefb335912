// Package common defines shared sentinel errors used across the sync core.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Wire-level errors: a record or row that cannot be decoded into its
	// required shape. Malformed mutations are dropped, never retried.
	ErrMalformedRecord = errors.New("malformed record")

	// Engine gate errors. A blocked trigger is a no-op, not a failure.
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrSyncDisabled   = errors.New("sync disabled")
	ErrNotEntitled    = errors.New("backup unavailable")
	ErrOffline        = errors.New("network unreachable")

	// Cycle-level fault: the endpoint could not be reached at all.
	ErrEndpointUnreachable = errors.New("endpoint unreachable")
)
