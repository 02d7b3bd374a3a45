package domain

import (
	"context"
)

// Repository interfaces operate on the clean domain entities. Implementations
// map "no row" to ErrNotFound, unique violations to the matching domain error
// and connectivity failures to ErrUnavailable.

// ProfileRepository persists profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*Profile, error)
	// Upsert creates or updates the profile; a taken username is ErrUsernameTaken.
	Upsert(ctx context.Context, p *Profile) error
	// EnsureExists creates an empty profile for id if there is none.
	EnsureExists(ctx context.Context, id, email string) error
}

// ListingRepository persists listings.
type ListingRepository interface {
	Create(ctx context.Context, l *Listing) error
	GetByID(ctx context.Context, id string) (*Listing, error)
	Search(ctx context.Context, filter ListingFilter) ([]*Listing, int64, error)
	// Update and Delete match on id AND owner AND not guest; no match is ErrNotFound.
	// Delete only marks the listing removed. A removed listing is invisible to
	// every other method, while its conversations, messages and reviews are kept.
	Update(ctx context.Context, l *Listing) error
	Delete(ctx context.Context, id, ownerID string) error
	AppendImage(ctx context.Context, id, ownerID, url string) error
}

// ConversationRepository persists conversations.
type ConversationRepository interface {
	// Create returns ErrConversationExists when (listing, a, b) is taken.
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id string) (*Conversation, error)
	// FindByPair expects a and b in canonical order.
	FindByPair(ctx context.Context, listingID, a, b string) (*Conversation, error)
	// ListSummaries returns the inbox of userID, most recent activity first.
	ListSummaries(ctx context.Context, userID string) ([]*ConversationSummary, error)
}

// MessageRepository persists the append-only message log.
type MessageRepository interface {
	// Append stores the message and sets its Seq.
	Append(ctx context.Context, m *Message) error
	// List returns messages in ascending Seq order.
	List(ctx context.Context, conversationID string, filter MessageFilter) ([]*Message, error)
}

// ReviewRepository persists listing reviews.
type ReviewRepository interface {
	// Create returns ErrDuplicateReview when (listing, reviewer) exists.
	Create(ctx context.Context, r *Review) error
	GetByID(ctx context.Context, id string) (*Review, error)
	ExistsForReviewer(ctx context.Context, listingID, reviewerID string) (bool, error)
	// UpdateByReviewer and DeleteByReviewer filter on id AND reviewer in a
	// single statement; no match is ErrNotFound.
	UpdateByReviewer(ctx context.Context, id, reviewerID string, patch ReviewPatch) (*Review, error)
	DeleteByReviewer(ctx context.Context, id, reviewerID string) (*Review, error)
	ListByListing(ctx context.Context, listingID string, page, limit int) ([]*Review, int64, error)
	// RatingStats returns the raw mean and count of the listing's ratings.
	RatingStats(ctx context.Context, listingID string) (mean float64, count int, err error)
}

// Store groups the repositories of one backend.
type Store struct {
	Profiles      ProfileRepository
	Listings      ListingRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Reviews       ReviewRepository
	Ping          func(ctx context.Context) error
	Close         func() error
}
