package domain

import "errors"

// Error taxonomy for the bidding engine. Callers match with errors.Is; the
// wrapped message carries the detail (including the exact minimum acceptable
// amount for pricing rejections).
var (
	// ErrNotFound: auction or user does not exist. Client error, no retry.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: wrong auction status or a self-bid. Retrying the same
	// request cannot succeed.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput: the amount fails the pricing rules.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotAuthorized: the caller is not the auction's seller.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrConflict: lost the per-auction admission race. Safe to retry
	// immediately with refreshed state.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists: a uniqueness constraint was hit (auction code,
	// participation code, or the one-winner-per-auction guarantee).
	ErrAlreadyExists = errors.New("already exists")

	// ErrDependencyFailure: a best-effort collaborator (history recording,
	// notification delivery) failed. Logged, never propagated as bid failure.
	ErrDependencyFailure = errors.New("dependency failure")
)
