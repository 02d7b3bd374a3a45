package usecase

import (
	"context"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockListingRepository) Search(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Listing), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockListingRepository) Delete(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockListingRepository) AppendImage(ctx context.Context, id, ownerID, url string) error {
	args := m.Called(ctx, id, ownerID, url)
	return args.Error(0)
}

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, r *domain.Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) ExistsForReviewer(ctx context.Context, listingID, reviewerID string) (bool, error) {
	args := m.Called(ctx, listingID, reviewerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) UpdateByReviewer(ctx context.Context, id, reviewerID string, patch domain.ReviewPatch) (*domain.Review, error) {
	args := m.Called(ctx, id, reviewerID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) DeleteByReviewer(ctx context.Context, id, reviewerID string) (*domain.Review, error) {
	args := m.Called(ctx, id, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) ListByListing(ctx context.Context, listingID string, page, limit int) ([]*domain.Review, int64, error) {
	args := m.Called(ctx, listingID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviewRepository) RatingStats(ctx context.Context, listingID string) (float64, int, error) {
	args := m.Called(ctx, listingID)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindByPair(ctx context.Context, listingID, a, b string) (*domain.Conversation, error) {
	args := m.Called(ctx, listingID, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) ListSummaries(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationSummary), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) List(ctx context.Context, conversationID string, f domain.MessageFilter) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProfileRepository) EnsureExists(ctx context.Context, id, email string) error {
	args := m.Called(ctx, id, email)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewConversation(ctx context.Context, n ConversationNotice) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockImageStorage struct {
	mock.Mock
}

func (m *MockImageStorage) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, fileName, data)
	return args.String(0), args.Error(1)
}

type MockPreferencesStore struct {
	mock.Mock
}

func (m *MockPreferencesStore) Load(ctx context.Context, userID string) (*domain.Preferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preferences), args.Error(1)
}

func (m *MockPreferencesStore) Save(ctx context.Context, p *domain.Preferences) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// mockStore bundles fresh mocks into a domain.Store.
type mockStore struct {
	profiles      *MockProfileRepository
	listings      *MockListingRepository
	conversations *MockConversationRepository
	messages      *MockMessageRepository
	reviews       *MockReviewRepository
}

func newMockStore() *mockStore {
	return &mockStore{
		profiles:      &MockProfileRepository{},
		listings:      &MockListingRepository{},
		conversations: &MockConversationRepository{},
		messages:      &MockMessageRepository{},
		reviews:       &MockReviewRepository{},
	}
}

func (s *mockStore) domain() *domain.Store {
	return &domain.Store{
		Profiles:      s.profiles,
		Listings:      s.listings,
		Conversations: s.conversations,
		Messages:      s.messages,
		Reviews:       s.reviews,
	}
}

func (s *mockStore) assertExpectations(t mock.TestingT) {
	s.profiles.AssertExpectations(t)
	s.listings.AssertExpectations(t)
	s.conversations.AssertExpectations(t)
	s.messages.AssertExpectations(t)
	s.reviews.AssertExpectations(t)
}
