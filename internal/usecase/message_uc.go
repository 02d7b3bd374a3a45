package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageUsecase appends to and reads conversation logs.
type MessageUsecase struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	publisher     EventPublisher
	guard         storeGuard
	logger        *logger.Logger
}

// NewMessageUsecase creates a new MessageUsecase.
func NewMessageUsecase(store *domain.Store, publisher EventPublisher, storeTimeout time.Duration, log *logger.Logger) *MessageUsecase {
	l := log.Named("MessageUsecase")
	return &MessageUsecase{
		conversations: store.Conversations,
		messages:      store.Messages,
		publisher:     publisher,
		guard:         newStoreGuard(storeTimeout, l),
		logger:        l,
	}
}

// LiveMessage is the payload pushed to live feed subscribers.
type LiveMessage struct {
	ID             string    `json:"id"`
	Seq            int64     `json:"seq"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppendMessage stores body as a new message from the caller.
func (uc *MessageUsecase) AppendMessage(ctx context.Context, caller domain.Identity, conversationID, body string) (*domain.Message, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	body, err = domain.NormalizeBody(body)
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
		uc.logger.Warn("Message rejected: sender is not a participant",
			zap.String("conversation_id", conversationID), zap.String("sender_id", user.UserID))
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       user.UserID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.messages.Append(sctx, msg); err != nil {
		return nil, uc.guard.fail("AppendMessage", conversationID, err)
	}

	uc.logger.Debug("Message appended", zap.String("conversation_id", conv.ID), zap.Int64("seq", msg.Seq))

	publish(ctx, uc.publisher, uc.logger, SubjectMessageSent, map[string]interface{}{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"listing_id":      conv.ListingID,
		"sender_id":       msg.SenderID,
		"recipient_id":    conv.OtherParticipant(msg.SenderID),
		"seq":             msg.Seq,
		"created_at":      timestamp(msg.CreatedAt),
	})
	if uc.publisher != nil {
		live := LiveMessage{
			ID:             msg.ID,
			Seq:            msg.Seq,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Body:           msg.Body,
			CreatedAt:      msg.CreatedAt,
		}
		if err := uc.publisher.Publish(ctx, ConversationMessagesSubject(conv.ID), live); err != nil {
			uc.logger.Warn("Failed to publish live message", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}
	return msg, nil
}

// ListMessages returns the conversation log in append order.
func (uc *MessageUsecase) ListMessages(ctx context.Context, caller domain.Identity, conversationID string, filter domain.MessageFilter) ([]*domain.Message, error) {
	if filter.AfterSeq < 0 || filter.Limit < 0 {
		return nil, fmt.Errorf("%w: after_seq and limit cannot be negative", domain.ErrInvalidInput)
	}
	if _, err := uc.AuthorizeConversation(ctx, caller, conversationID); err != nil {
		return nil, err
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	msgs, err := uc.messages.List(sctx, conversationID, filter)
	if err != nil {
		return nil, uc.guard.fail("ListMessages", conversationID, err)
	}
	return msgs, nil
}

// AuthorizeConversation loads the conversation and checks the caller is a
// participant. The live feed uses it before subscribing.
func (uc *MessageUsecase) AuthorizeConversation(ctx context.Context, caller domain.Identity, conversationID string) (*domain.Conversation, error) {
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
