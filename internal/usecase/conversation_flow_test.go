package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/garala-cf/garala/internal/adapter/repository/memory"
	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Authenticated{UserID: "alice", Email: "alice@example.cf"}
	bob   = domain.Authenticated{UserID: "bob", Email: "bob@example.cf"}
	carol = domain.Authenticated{UserID: "carol", Email: "carol@example.cf"}
)

type flowFixture struct {
	store         *domain.Store
	listings      *ListingUsecase
	conversations *ConversationUsecase
	messages      *MessageUsecase
	reviews       *ReviewUsecase
	profiles      *ProfileUsecase
	listing       *domain.Listing
}

// newFlowFixture wires every usecase to one in-memory store with three
// profiles and a listing owned by bob.
func newFlowFixture(t *testing.T, pub EventPublisher, notifier Notifier) *flowFixture {
	t.Helper()
	store := memory.NewStore().Repositories()
	log := logger.NewNop()
	f := &flowFixture{
		store:         store,
		listings:      NewListingUsecase(store, nil, pub, time.Second, log),
		conversations: NewConversationUsecase(store, pub, notifier, time.Second, log),
		messages:      NewMessageUsecase(store, pub, time.Second, log),
		reviews:       NewReviewUsecase(store, pub, time.Second, log),
		profiles:      NewProfileUsecase(store, time.Second, log),
	}
	ctx := context.Background()
	for _, u := range []domain.Authenticated{alice, bob, carol} {
		require.NoError(t, store.Profiles.EnsureExists(ctx, u.UserID, u.Email))
	}
	listing, err := f.listings.CreateListing(ctx, bob, domain.ListingDetails{
		Title:    "Moto Yamaha",
		Price:    450000,
		Category: domain.CategoryVehicles,
		Quartier: "Lakouanga",
	})
	require.NoError(t, err)
	f.listing = listing
	return f
}

func TestGetOrCreateConversation_Idempotent(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()

	first, created, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	swapped, created, err := f.conversations.GetOrCreateConversation(ctx, bob, f.listing.ID, bob.UserID, alice.UserID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, swapped.ID)

	assert.Equal(t, "alice", first.ParticipantA)
	assert.Equal(t, "bob", first.ParticipantB)
}

func TestGetOrCreateConversation_ConcurrentFirstContactConverges(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()

	const workers = 24
	ids := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller, a, b := alice, alice.UserID, bob.UserID
			if i%2 == 1 {
				caller, a, b = bob, bob.UserID, alice.UserID
			}
			conv, _, err := f.conversations.GetOrCreateConversation(ctx, caller, f.listing.ID, a, b)
			errs[i] = err
			if conv != nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	inbox, err := f.conversations.ListConversationsForUser(ctx, alice, alice.UserID)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestGetOrCreateConversation_Rejections(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		caller    domain.Identity
		listingID string
		a, b      string
		wantErr   error
	}{
		{"anonymous", domain.Anonymous{}, f.listing.ID, alice.UserID, bob.UserID, domain.ErrNotAuthenticated},
		{"caller not a participant", carol, f.listing.ID, alice.UserID, bob.UserID, domain.ErrNotAuthorized},
		{"with yourself", alice, f.listing.ID, alice.UserID, alice.UserID, domain.ErrInvalidInput},
		{"missing listing id", alice, "", alice.UserID, bob.UserID, domain.ErrInvalidInput},
		{"unknown listing", alice, "no-such-listing", alice.UserID, bob.UserID, domain.ErrNotFound},
		{"unknown counterpart", alice, f.listing.ID, alice.UserID, "ghost", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, _, err := f.conversations.GetOrCreateConversation(ctx, tt.caller, tt.listingID, tt.a, tt.b)
			assert.Nil(t, conv)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetOrCreateConversation_PublishesAndNotifiesOnce(t *testing.T) {
	pub := &MockPublisher{}
	notifier := &MockNotifier{}
	pub.On("Publish", mock.Anything, SubjectListingCreated, mock.Anything).Return(nil).Once()
	f := newFlowFixture(t, pub, notifier)
	ctx := context.Background()

	pub.On("Publish", mock.Anything, SubjectConversationCreated, mock.Anything).Return(nil).Once()
	notifier.On("NotifyNewConversation", mock.Anything, mock.MatchedBy(func(n ConversationNotice) bool {
		return n.ToEmail == bob.Email && n.ListingTitle == "Moto Yamaha" && n.ConversationID != ""
	})).Return(nil).Once()

	_, _, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)
	_, _, err = f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)

	pub.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAppendMessage_OrderIsPreserved(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()
	conv, _, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)

	const n = 30
	for i := 0; i < n; i++ {
		sender := alice
		if i%3 == 0 {
			sender = bob
		}
		_, err := f.messages.AppendMessage(ctx, sender, conv.ID, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	msgs, err := f.messages.ListMessages(ctx, bob, conv.ID, domain.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprintf("message %d", i), m.Body)
		if i > 0 {
			assert.Greater(t, m.Seq, msgs[i-1].Seq)
		}
	}

	tail, err := f.messages.ListMessages(ctx, alice, conv.ID, domain.MessageFilter{AfterSeq: msgs[n-6].Seq, Limit: 3})
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, msgs[n-5].ID, tail[0].ID)
}

func TestAppendMessage_Rejections(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()
	conv, _, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)

	_, err = f.messages.AppendMessage(ctx, carol, conv.ID, "je peux voir ?")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = f.messages.AppendMessage(ctx, alice, conv.ID, "   \n\t")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = f.messages.AppendMessage(ctx, domain.Anonymous{}, conv.ID, "hello")
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = f.messages.AppendMessage(ctx, alice, "no-such-conversation", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.messages.ListMessages(ctx, carol, conv.ID, domain.MessageFilter{})
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = f.messages.ListMessages(ctx, alice, conv.ID, domain.MessageFilter{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	msgs, err := f.messages.ListMessages(ctx, alice, conv.ID, domain.MessageFilter{})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAppendMessage_PublishesLivePayload(t *testing.T) {
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f := newFlowFixture(t, pub, nil)
	ctx := context.Background()
	conv, _, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)

	msg, err := f.messages.AppendMessage(ctx, alice, conv.ID, "Bonjour")
	require.NoError(t, err)

	pub.AssertCalled(t, "Publish", mock.Anything, ConversationMessagesSubject(conv.ID), LiveMessage{
		ID:             msg.ID,
		Seq:            msg.Seq,
		ConversationID: conv.ID,
		SenderID:       alice.UserID,
		Body:           "Bonjour",
		CreatedAt:      msg.CreatedAt,
	})
	pub.AssertCalled(t, "Publish", mock.Anything, SubjectMessageSent, mock.Anything)
}

func TestListConversationsForUser(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()

	second, err := f.listings.CreateListing(ctx, carol, domain.ListingDetails{
		Title:    "Sac de manioc",
		Price:    15000,
		Category: domain.CategoryAgriculture,
	})
	require.NoError(t, err)

	withBob, _, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)
	withCarol, _, err := f.conversations.GetOrCreateConversation(ctx, alice, second.ID, alice.UserID, carol.UserID)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = f.messages.AppendMessage(ctx, bob, withBob.ID, "Toujours disponible")
	require.NoError(t, err)

	inbox, err := f.conversations.ListConversationsForUser(ctx, alice, alice.UserID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, withBob.ID, inbox[0].Conversation.ID)
	assert.Equal(t, bob.UserID, inbox[0].Other.ID)
	assert.Equal(t, "Moto Yamaha", inbox[0].Listing.Title)
	require.NotNil(t, inbox[0].LastMessage)
	assert.Equal(t, "Toujours disponible", inbox[0].LastMessage.Body)
	assert.Equal(t, withCarol.ID, inbox[1].Conversation.ID)
	assert.Nil(t, inbox[1].LastMessage)

	_, err = f.conversations.ListConversationsForUser(ctx, carol, alice.UserID)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	carolInbox, err := f.conversations.ListConversationsForUser(ctx, carol, carol.UserID)
	require.NoError(t, err)
	require.Len(t, carolInbox, 1)
	assert.Equal(t, withCarol.ID, carolInbox[0].Conversation.ID)
}

func TestGetConversation_ParticipantsOnly(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()
	conv, _, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)

	got, err := f.conversations.GetConversation(ctx, bob, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = f.conversations.GetConversation(ctx, carol, conv.ID)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
}

// Two users open a conversation about a listing, exchange two messages and
// both see the same log.
func TestBuyerSellerExchange(t *testing.T) {
	f := newFlowFixture(t, nil, nil)
	ctx := context.Background()

	conv, created, err := f.conversations.GetOrCreateConversation(ctx, alice, f.listing.ID, alice.UserID, bob.UserID)
	require.NoError(t, err)
	require.True(t, created)

	_, err = f.messages.AppendMessage(ctx, alice, conv.ID, "Bonjour")
	require.NoError(t, err)
	_, err = f.messages.AppendMessage(ctx, bob, conv.ID, "Salut")
	require.NoError(t, err)

	for _, viewer := range []domain.Authenticated{alice, bob} {
		msgs, err := f.messages.ListMessages(ctx, viewer, conv.ID, domain.MessageFilter{})
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "Bonjour", msgs[0].Body)
		assert.Equal(t, alice.UserID, msgs[0].SenderID)
		assert.Equal(t, "Salut", msgs[1].Body)
		assert.Equal(t, bob.UserID, msgs[1].SenderID)
	}
}
