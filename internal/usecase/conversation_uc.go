package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConversationUsecase resolves the single conversation between two users
// about a listing and builds inboxes.
type ConversationUsecase struct {
	conversations domain.ConversationRepository
	listings      domain.ListingRepository
	profiles      domain.ProfileRepository
	publisher     EventPublisher
	notifier      Notifier // optional
	guard         storeGuard
	logger        *logger.Logger
}

// NewConversationUsecase creates a new ConversationUsecase. notifier may be nil.
func NewConversationUsecase(store *domain.Store, publisher EventPublisher, notifier Notifier, storeTimeout time.Duration, log *logger.Logger) *ConversationUsecase {
	l := log.Named("ConversationUsecase")
	return &ConversationUsecase{
		conversations: store.Conversations,
		listings:      store.Listings,
		profiles:      store.Profiles,
		publisher:     publisher,
		notifier:      notifier,
		guard:         newStoreGuard(storeTimeout, l),
		logger:        l,
	}
}

// GetOrCreateConversation returns the conversation between userA and userB
// about listingID, creating it on first contact. created reports whether
// this call inserted it.
func (uc *ConversationUsecase) GetOrCreateConversation(ctx context.Context, caller domain.Identity, listingID, userA, userB string) (conv *domain.Conversation, created bool, err error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, false, err
	}
	listingID, userA, userB = strings.TrimSpace(listingID), strings.TrimSpace(userA), strings.TrimSpace(userB)

	if err := domain.CanOpenConversation(user.UserID, userA, userB); err != nil {
		uc.logger.Warn("Conversation open rejected", zap.String("caller", user.UserID), zap.String("user_a", userA), zap.String("user_b", userB))
		return nil, false, err
	}
	if userA == "" || userB == "" || listingID == "" {
		return nil, false, fmt.Errorf("%w: listing and both participants are required", domain.ErrInvalidInput)
	}
	if userA == userB {
		return nil, false, fmt.Errorf("%w: cannot open a conversation with yourself", domain.ErrInvalidInput)
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	// An existing conversation resolves even after its listing was removed.
	a, b := domain.CanonicalPair(userA, userB)
	existing, err := uc.conversations.FindByPair(sctx, listingID, a, b)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, uc.guard.fail("FindConversation", listingID, err)
	}

	listing, err := uc.listings.GetByID(sctx, listingID)
	if err != nil {
		return nil, false, uc.guard.fail("GetListing", listingID, err)
	}
	if err := uc.profiles.EnsureExists(sctx, user.UserID, user.Email); err != nil {
		return nil, false, uc.guard.fail("EnsureProfile", user.UserID, err)
	}
	otherID := userA
	if otherID == user.UserID {
		otherID = userB
	}
	other, err := uc.profiles.GetByID(sctx, otherID)
	if err != nil {
		return nil, false, uc.guard.fail("GetProfile", otherID, err)
	}

	conv = &domain.Conversation{
		ID:           uuid.NewString(),
		ListingID:    listingID,
		ParticipantA: a,
		ParticipantB: b,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.conversations.Create(sctx, conv); err != nil {
		if !errors.Is(err, domain.ErrConversationExists) {
			return nil, false, uc.guard.fail("CreateConversation", conv.ID, err)
		}
		// Lost the race against a concurrent first contact: the stored row wins.
		existing, err := uc.conversations.FindByPair(sctx, listingID, a, b)
		if err != nil {
			return nil, false, uc.guard.fail("FindConversation", listingID, err)
		}
		uc.logger.Debug("Concurrent conversation creation converged", zap.String("conversation_id", existing.ID))
		return existing, false, nil
	}

	uc.logger.Info("Conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("listing_id", listingID))

	publish(ctx, uc.publisher, uc.logger, SubjectConversationCreated, map[string]interface{}{
		"conversation_id": conv.ID,
		"listing_id":      conv.ListingID,
		"participant_a":   conv.ParticipantA,
		"participant_b":   conv.ParticipantB,
		"opened_by":       user.UserID,
		"created_at":      timestamp(conv.CreatedAt),
	})
	uc.notify(ctx, user, other, listing, conv)

	return conv, true, nil
}

func (uc *ConversationUsecase) notify(ctx context.Context, opener domain.Authenticated, other *domain.Profile, listing *domain.Listing, conv *domain.Conversation) {
	if uc.notifier == nil || other.Email == "" {
		return
	}
	fromName := "Un utilisateur Garala"
	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()
	if p, err := uc.profiles.GetByID(sctx, opener.UserID); err == nil {
		fromName = p.DisplayName()
	}

	notice := ConversationNotice{
		ToEmail:        other.Email,
		ToName:         other.DisplayName(),
		FromName:       fromName,
		ListingTitle:   listing.Title,
		ConversationID: conv.ID,
	}
	if err := uc.notifier.NotifyNewConversation(ctx, notice); err != nil {
		uc.logger.Warn("Failed to send new conversation notification", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
}

// GetConversation returns a conversation to one of its participants.
func (uc *ConversationUsecase) GetConversation(ctx context.Context, caller domain.Identity, conversationID string) (*domain.Conversation, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	conv, err := uc.conversations.GetByID(sctx, conversationID)
	if err != nil {
		return nil, uc.guard.fail("GetConversation", conversationID, err)
	}
	if err := domain.CanAccessConversation(user.UserID, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversationsForUser returns userID's inbox, most recent activity first.
func (uc *ConversationUsecase) ListConversationsForUser(ctx context.Context, caller domain.Identity, userID string) ([]*domain.ConversationSummary, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	if err := domain.CanReadUserConversations(user.UserID, userID); err != nil {
		return nil, err
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	summaries, err := uc.conversations.ListSummaries(sctx, userID)
	if err != nil {
		return nil, uc.guard.fail("ListConversations", userID, err)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastActivity().After(summaries[j].LastActivity())
	})
	return summaries, nil
}
