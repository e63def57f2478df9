// Package service implements the application operations on top of the
// ledger engine and the storage layer: group membership, expense
// lifecycle, settlement, and balance queries.
package service

import (
	"context"
	"errors"
	"time"

	"groupledger/internal/storage"
)

// defaultStoreTimeout bounds every store call so a stuck backend
// surfaces as a retriable storage.ErrTimeout instead of hanging the
// request.
const defaultStoreTimeout = 5 * time.Second

var (
	// ErrNotGroupMember is returned when the acting user, the payer, or a
	// split participant does not belong to the group.
	ErrNotGroupMember = errors.New("user is not a member of this group")

	// ErrPermissionDenied is returned when the acting user is a member but
	// lacks the role the operation requires.
	ErrPermissionDenied = errors.New("user may not perform this action")

	// ErrAlreadyMember is returned when adding a user who already belongs
	// to the group.
	ErrAlreadyMember = errors.New("user is already a member of this group")

	// ErrSplitRequired is returned when an expense update changes the
	// amount without supplying a new split.
	ErrSplitRequired = errors.New("changing the expense amount requires a new split")
)

// storeCtx derives a deadline-bounded context for a single store call.
func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

// storeErr translates a deadline expiry into the retriable timeout
// sentinel. All other errors pass through unchanged.
func storeErr(err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return storage.ErrTimeout
	}
	return err
}
