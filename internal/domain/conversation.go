package domain

import "time"

// Conversation is the single thread between two users about one listing.
// Participants are stored in canonical order: ParticipantA < ParticipantB.
type Conversation struct {
	ID           string
	ListingID    string
	ParticipantA string
	ParticipantB string
	CreatedAt    time.Time
}

// CanonicalPair orders two user ids so that the unordered pair {a, b}
// always maps to the same stored key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.ParticipantA == userID || c.ParticipantB == userID)
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// ListingPreview is the slice of a listing shown next to a conversation.
// Removed is set once the owner has deleted the listing; the conversation
// and its messages stay readable.
type ListingPreview struct {
	ID         string
	Title      string
	Price      int64
	Currency   string
	CoverImage string
	Removed    bool
}

// MessagePreview is the latest message of a conversation.
type MessagePreview struct {
	SenderID  string
	Body      string
	CreatedAt time.Time
}

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	Conversation Conversation
	Other        Profile
	Listing      ListingPreview
	LastMessage  *MessagePreview
}

// LastActivity is the last message time, or the creation time of an empty
// conversation.
func (s *ConversationSummary) LastActivity() time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.CreatedAt
	}
	return s.Conversation.CreatedAt
}
