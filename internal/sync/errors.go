package sync

import (
	"errors"
	"fmt"
)

// ErrUnboundUser means the owner has no remote binding configured.
// Not retryable: syncing requires user action first.
var ErrUnboundUser = errors.New("sync: user has no remote binding")

// ErrRecordNotFound is returned by record lookups that match no row.
var ErrRecordNotFound = errors.New("sync: record not found")

// StorageError wraps a local store I/O failure. Local state stays
// consistent; the same sync is safe to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("sync: storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a remote query or commit failure, including
// timeouts. Retryable: pull re-reads from the persisted cursor, push
// re-offers whatever is still dirty.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("sync: network: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// PartialPushError means one or more push batches failed after earlier
// batches committed. Records in the committed batches are already marked
// synced; the rest remain dirty and will be re-offered on the next pass.
type PartialPushError struct {
	Pushed    int // records committed and marked synced before the failure
	Remaining int // records still dirty
	Err       error
}

func (e *PartialPushError) Error() string {
	return fmt.Sprintf("sync: partial push: %d records synced, %d still dirty: %v", e.Pushed, e.Remaining, e.Err)
}

func (e *PartialPushError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a failed Sync is worth retrying without user
// action. Network failures and partial pushes are safe to retry thanks
// to cursor persistence and idempotent upserts; unbound users and
// storage corruption are not transient.
func Retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var partialErr *PartialPushError

	return errors.As(err, &partialErr)
}
