package usecase

import (
	"context"
	"fmt"

	"github.com/garala-cf/garala/internal/domain"
)

// EventPublisher emits domain events after successful mutations.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// ImageStorage stores an uploaded file and returns its public URL.
type ImageStorage interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

// Notifier tells a user that someone opened a conversation with them.
type Notifier interface {
	NotifyNewConversation(ctx context.Context, n ConversationNotice) error
}

// ConversationNotice is the content of a new-conversation notification.
type ConversationNotice struct {
	ToEmail        string
	ToName         string
	FromName       string
	ListingTitle   string
	ConversationID string
}

// PreferencesStore loads and saves settings objects.
// Load returns domain.ErrNotFound when the user never saved any.
type PreferencesStore interface {
	Load(ctx context.Context, userID string) (*domain.Preferences, error)
	Save(ctx context.Context, p *domain.Preferences) error
}

// Event subjects.
const (
	SubjectConversationCreated = "garala.conversation.created"
	SubjectMessageSent         = "garala.message.sent"
	SubjectReviewCreated       = "garala.review.created"
	SubjectReviewUpdated       = "garala.review.updated"
	SubjectReviewDeleted       = "garala.review.deleted"
	SubjectListingCreated      = "garala.listing.created"
	SubjectListingUpdated      = "garala.listing.updated"
	SubjectListingDeleted      = "garala.listing.deleted"
)

// ConversationMessagesSubject is the per-conversation subject the live feed
// listens on.
func ConversationMessagesSubject(conversationID string) string {
	return fmt.Sprintf("garala.conversations.%s.messages", conversationID)
}
