package domain

import (
	"errors"
	"fmt"
)

// --- Domain Specific Errors ---

var (
	// ErrNotAuthenticated indicates that the caller has no valid identity.
	ErrNotAuthenticated = errors.New("authentication required")
	// ErrNotAuthorized indicates that the caller lacks rights over the target entity.
	ErrNotAuthorized = errors.New("action not authorized")
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("entity not found")
	// ErrInvalidInput indicates that the provided input data is invalid.
	ErrInvalidInput = errors.New("invalid input data")
	// ErrDuplicateReview indicates that the reviewer already reviewed the listing.
	ErrDuplicateReview = errors.New("review already exists for this listing")
	// ErrUnavailable indicates that the store could not be reached in time.
	ErrUnavailable = errors.New("service temporarily unavailable")
	// ErrUnknown is an unclassified store failure. Details stay in the logs.
	ErrUnknown = errors.New("unexpected error")

	// ErrConversationExists is returned by repositories when the canonical
	// (listing, pair) key is already taken. It never leaves the use case layer.
	ErrConversationExists = errors.New("conversation already exists")
)

// Kinds of ErrInvalidInput. errors.Is(err, ErrInvalidInput) holds for all of them.
var (
	ErrInvalidRating = fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidInput, MinRating, MaxRating)
	ErrEmptyMessage  = fmt.Errorf("%w: message body is empty", ErrInvalidInput)
	ErrUsernameTaken = fmt.Errorf("%w: username already taken", ErrInvalidInput)
)
