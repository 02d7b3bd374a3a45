package domain

import "fmt"

// The functions below are the authorization gate. Each is pure: it looks at
// the caller and the already loaded target and returns nil or ErrNotAuthorized.

// CanEditListing allows listing edit, delete and image upload.
func CanEditListing(callerID string, l *Listing) error {
	if l.IsGuest || l.OwnerID == "" {
		return fmt.Errorf("%w: guest listings cannot be modified", ErrNotAuthorized)
	}
	if callerID == "" || callerID != l.OwnerID {
		return fmt.Errorf("%w: only the owner can modify this listing", ErrNotAuthorized)
	}
	return nil
}

// CanOpenConversation requires the caller to be one of the two users.
func CanOpenConversation(callerID, userA, userB string) error {
	if callerID == "" || (callerID != userA && callerID != userB) {
		return fmt.Errorf("%w: caller must be a participant", ErrNotAuthorized)
	}
	return nil
}

// CanAccessConversation covers sending, listing messages and the live feed.
func CanAccessConversation(callerID string, c *Conversation) error {
	if !c.HasParticipant(callerID) {
		return fmt.Errorf("%w: not a participant of this conversation", ErrNotAuthorized)
	}
	return nil
}

// CanReviewListing forbids owners from reviewing their own listing.
func CanReviewListing(callerID string, l *Listing) error {
	if l.OwnerID != "" && l.OwnerID == callerID {
		return fmt.Errorf("%w: owners cannot review their own listing", ErrNotAuthorized)
	}
	return nil
}

// CanModifyReview allows review update and delete.
func CanModifyReview(callerID string, r *Review) error {
	if callerID == "" || callerID != r.ReviewerID {
		return fmt.Errorf("%w: only the author can modify this review", ErrNotAuthorized)
	}
	return nil
}

// CanReadUserConversations lets a user list only their own inbox.
func CanReadUserConversations(callerID, userID string) error {
	if callerID == "" || callerID != userID {
		return fmt.Errorf("%w: cannot read another user's conversations", ErrNotAuthorized)
	}
	return nil
}
