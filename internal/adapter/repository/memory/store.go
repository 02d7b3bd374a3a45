// Package memory is a process-local store backend for development and tests.
// It enforces the same uniqueness rules as the SQL schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/garala-cf/garala/internal/domain"
)

type pairKey struct {
	listingID, a, b string
}

type reviewKey struct {
	listingID, reviewerID string
}

// Store holds all entities behind one lock.
type Store struct {
	mu            sync.RWMutex
	profiles      map[string]domain.Profile
	listings      map[string]domain.Listing
	removed       map[string]time.Time
	conversations map[string]domain.Conversation
	pairs         map[pairKey]string
	messages      map[string][]domain.Message
	seq           int64
	reviews       map[string]domain.Review
	reviewIndex   map[reviewKey]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		profiles:      make(map[string]domain.Profile),
		listings:      make(map[string]domain.Listing),
		removed:       make(map[string]time.Time),
		conversations: make(map[string]domain.Conversation),
		pairs:         make(map[pairKey]string),
		messages:      make(map[string][]domain.Message),
		reviews:       make(map[string]domain.Review),
		reviewIndex:   make(map[reviewKey]string),
	}
}

// Repositories exposes the store through the domain interfaces.
func (s *Store) Repositories() *domain.Store {
	return &domain.Store{
		Profiles:      profileRepo{s},
		Listings:      listingRepo{s},
		Conversations: conversationRepo{s},
		Messages:      messageRepo{s},
		Reviews:       reviewRepo{s},
		Ping:          func(ctx context.Context) error { return ctx.Err() },
		Close:         func() error { return nil },
	}
}

// --- profiles ---

type profileRepo struct{ s *Store }

func (r profileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r profileRepo) Upsert(ctx context.Context, p *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.Username != "" {
		for id, other := range r.s.profiles {
			if id != p.ID && strings.EqualFold(other.Username, p.Username) {
				return domain.ErrUsernameTaken
			}
		}
	}
	stored := *p
	if existing, ok := r.s.profiles[p.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
		if stored.Email == "" {
			stored.Email = existing.Email
		}
	}
	r.s.profiles[p.ID] = stored
	return nil
}

func (r profileRepo) EnsureExists(ctx context.Context, id, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[id]; !ok {
		r.s.profiles[id] = domain.Profile{ID: id, Email: email}
	}
	return nil
}

// --- listings ---

type listingRepo struct{ s *Store }

func cloneListing(l domain.Listing) *domain.Listing {
	l.Images = append([]string{}, l.Images...)
	return &l
}

func (r listingRepo) Create(ctx context.Context, l *domain.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.listings[l.ID] = *cloneListing(*l)
	return nil
}

func (r listingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.live(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneListing(l), nil
}

func matchesListing(l domain.Listing, f domain.ListingFilter) bool {
	if f.Category != "" && l.Category != f.Category {
		return false
	}
	if f.Quartier != "" && !strings.EqualFold(l.Quartier, f.Quartier) {
		return false
	}
	if f.Arrondissement != "" && !strings.EqualFold(l.Arrondissement, f.Arrondissement) {
		return false
	}
	if f.OwnerID != "" && l.OwnerID != f.OwnerID {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			return false
		}
	}
	return true
}

func (r listingRepo) Search(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []*domain.Listing
	for id, l := range r.s.listings {
		if _, gone := r.s.removed[id]; gone {
			continue
		}
		if matchesListing(l, f) {
			matched = append(matched, cloneListing(l))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := f.Offset()
	if start >= len(matched) {
		return []*domain.Listing{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return matched[start:end], total, nil
}

// live returns the listing unless it is missing or removed. Callers hold the lock.
func (s *Store) live(id string) (domain.Listing, bool) {
	if _, gone := s.removed[id]; gone {
		return domain.Listing{}, false
	}
	l, ok := s.listings[id]
	return l, ok
}

func (r listingRepo) editable(id, ownerID string) (domain.Listing, bool) {
	l, ok := r.s.live(id)
	if !ok || l.IsGuest || l.OwnerID != ownerID {
		return domain.Listing{}, false
	}
	return l, true
}

func (r listingRepo) Update(ctx context.Context, l *domain.Listing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.editable(l.ID, l.OwnerID)
	if !ok {
		return domain.ErrNotFound
	}
	updated := *cloneListing(*l)
	updated.Images = stored.Images
	updated.CreatedAt = stored.CreatedAt
	updated.IsGuest = stored.IsGuest
	r.s.listings[l.ID] = updated
	return nil
}

func (r listingRepo) Delete(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.editable(id, ownerID); !ok {
		return domain.ErrNotFound
	}
	r.s.removed[id] = time.Now().UTC()
	return nil
}

func (r listingRepo) AppendImage(ctx context.Context, id, ownerID, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.editable(id, ownerID)
	if !ok {
		return domain.ErrNotFound
	}
	l.Images = append(append([]string{}, l.Images...), url)
	r.s.listings[id] = l
	return nil
}

// --- conversations ---

type conversationRepo struct{ s *Store }

func (r conversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := pairKey{c.ListingID, c.ParticipantA, c.ParticipantB}
	if _, taken := r.s.pairs[key]; taken {
		return domain.ErrConversationExists
	}
	if _, ok := r.s.live(c.ListingID); !ok {
		return domain.ErrNotFound
	}
	r.s.pairs[key] = c.ID
	r.s.conversations[c.ID] = *c
	return nil
}

func (r conversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r conversationRepo) FindByPair(ctx context.Context, listingID, a, b string) (*domain.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.pairs[pairKey{listingID, a, b}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := r.s.conversations[id]
	return &c, nil
}

func (r conversationRepo) ListSummaries(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.ConversationSummary{}
	for _, c := range r.s.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		otherID := c.OtherParticipant(userID)
		sum := &domain.ConversationSummary{Conversation: c}
		if p, ok := r.s.profiles[otherID]; ok {
			sum.Other = p
		} else {
			sum.Other = domain.Profile{ID: otherID}
		}
		if l, ok := r.s.listings[c.ListingID]; ok {
			sum.Listing = domain.ListingPreview{
				ID:         l.ID,
				Title:      l.Title,
				Price:      l.Price,
				Currency:   l.Currency,
				CoverImage: l.CoverImage(),
			}
			_, sum.Listing.Removed = r.s.removed[l.ID]
		}
		if msgs := r.s.messages[c.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			sum.LastMessage = &domain.MessagePreview{SenderID: last.SenderID, Body: last.Body, CreatedAt: last.CreatedAt}
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity().After(out[j].LastActivity())
	})
	return out, nil
}

// --- messages ---

type messageRepo struct{ s *Store }

func (r messageRepo) Append(ctx context.Context, m *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.conversations[m.ConversationID]; !ok {
		return domain.ErrNotFound
	}
	r.s.seq++
	m.Seq = r.s.seq
	r.s.messages[m.ConversationID] = append(r.s.messages[m.ConversationID], *m)
	return nil
}

func (r messageRepo) List(ctx context.Context, conversationID string, f domain.MessageFilter) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.Message{}
	for _, m := range r.s.messages[conversationID] {
		if m.Seq <= f.AfterSeq {
			continue
		}
		m := m
		out = append(out, &m)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// --- reviews ---

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := reviewKey{rv.ListingID, rv.ReviewerID}
	if _, taken := r.s.reviewIndex[key]; taken {
		return domain.ErrDuplicateReview
	}
	r.s.reviewIndex[key] = rv.ID
	r.s.reviews[rv.ID] = *rv
	return nil
}

func (r reviewRepo) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rv, nil
}

func (r reviewRepo) ExistsForReviewer(ctx context.Context, listingID, reviewerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.reviewIndex[reviewKey{listingID, reviewerID}]
	return ok, nil
}

func (r reviewRepo) UpdateByReviewer(ctx context.Context, id, reviewerID string, patch domain.ReviewPatch) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok || rv.ReviewerID != reviewerID {
		return nil, domain.ErrNotFound
	}
	if patch.Rating != nil {
		rv.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		rv.Comment = *patch.Comment
	}
	rv.UpdatedAt = time.Now().UTC()
	r.s.reviews[id] = rv
	return &rv, nil
}

func (r reviewRepo) DeleteByReviewer(ctx context.Context, id, reviewerID string) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rv, ok := r.s.reviews[id]
	if !ok || rv.ReviewerID != reviewerID {
		return nil, domain.ErrNotFound
	}
	delete(r.s.reviews, id)
	delete(r.s.reviewIndex, reviewKey{rv.ListingID, rv.ReviewerID})
	return &rv, nil
}

func (r reviewRepo) ListByListing(ctx context.Context, listingID string, page, limit int) ([]*domain.Review, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var matched []*domain.Review
	for _, rv := range r.s.reviews {
		if rv.ListingID == listingID {
			rv := rv
			matched = append(matched, &rv)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := (page - 1) * limit
	if page < 1 || start >= len(matched) {
		return []*domain.Review{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r reviewRepo) RatingStats(ctx context.Context, listingID string) (float64, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sum, count := 0, 0
	for _, rv := range r.s.reviews {
		if rv.ListingID == listingID {
			sum += rv.Rating
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(count), count, nil
}
