//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDB    *sqlx.DB
	testStore *domain.Store
)

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}
	if err := pool.Client.Ping(); err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=garala",
			"POSTGRES_PASSWORD=garala",
			"POSTGRES_DB=garala_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start Postgres resource: %s", err)
	}
	dsn := fmt.Sprintf("postgres://garala:garala@%s/garala_test?sslmode=disable", resource.GetHostPort("5432/tcp"))

	testLog := logger.NewNop()
	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		var errRetry error
		testDB, errRetry = Connect(context.Background(), dsn, testLog)
		return errRetry
	}); err != nil {
		_ = pool.Purge(resource)
		panic(fmt.Sprintf("Could not connect to Postgres: %s", err))
	}
	if err := Migrate(context.Background(), testDB, testLog); err != nil {
		_ = pool.Purge(resource)
		panic(fmt.Sprintf("Could not migrate: %s", err))
	}
	// A second run must be a no-op.
	if err := Migrate(context.Background(), testDB, testLog); err != nil {
		_ = pool.Purge(resource)
		panic(fmt.Sprintf("Repeated migration failed: %s", err))
	}
	testStore = NewStore(testDB)

	code := m.Run()

	testDB.Close()
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge Postgres resource: %s", err)
	}
	os.Exit(code)
}

func seedListing(t *testing.T, ownerID string) *domain.Listing {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, testStore.Profiles.EnsureExists(ctx, ownerID, ownerID+"@example.cf"))
	now := time.Now().UTC()
	l := &domain.Listing{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     "Moto Yamaha",
		Price:     450000,
		Currency:  "XAF",
		Category:  domain.CategoryVehicles,
		Images:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, testStore.Listings.Create(ctx, l))
	return l
}

func seedUser(t *testing.T) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, testStore.Profiles.EnsureExists(context.Background(), id, ""))
	return id
}

func TestConversationPairIsUnique(t *testing.T) {
	ctx := context.Background()
	listing := seedListing(t, seedUser(t))
	a, b := domain.CanonicalPair(seedUser(t), listing.OwnerID)

	first := &domain.Conversation{ID: uuid.NewString(), ListingID: listing.ID, ParticipantA: a, ParticipantB: b, CreatedAt: time.Now().UTC()}
	require.NoError(t, testStore.Conversations.Create(ctx, first))

	dup := &domain.Conversation{ID: uuid.NewString(), ListingID: listing.ID, ParticipantA: a, ParticipantB: b, CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, testStore.Conversations.Create(ctx, dup), domain.ErrConversationExists)

	found, err := testStore.Conversations.FindByPair(ctx, listing.ID, a, b)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	reversed := &domain.Conversation{ID: uuid.NewString(), ListingID: listing.ID, ParticipantA: b, ParticipantB: a, CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, testStore.Conversations.Create(ctx, reversed), domain.ErrInvalidInput)
}

func TestAfterSeqCursorSeesEveryMessage(t *testing.T) {
	ctx := context.Background()
	listing := seedListing(t, seedUser(t))
	buyer := seedUser(t)
	a, b := domain.CanonicalPair(buyer, listing.OwnerID)
	conv := &domain.Conversation{ID: uuid.NewString(), ListingID: listing.ID, ParticipantA: a, ParticipantB: b, CreatedAt: time.Now().UTC()}
	require.NoError(t, testStore.Conversations.Create(ctx, conv))

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := &domain.Message{ID: uuid.NewString(), ConversationID: conv.ID, SenderID: buyer, Body: fmt.Sprintf("m%d", i), CreatedAt: time.Now().UTC()}
			assert.NoError(t, testStore.Messages.Append(ctx, msg))
		}(i)
	}

	seen := make(map[string]bool)
	var cursor int64
	deadline := time.Now().Add(30 * time.Second)
	for len(seen) < n && time.Now().Before(deadline) {
		page, err := testStore.Messages.List(ctx, conv.ID, domain.MessageFilter{AfterSeq: cursor})
		require.NoError(t, err)
		for _, m := range page {
			assert.False(t, seen[m.ID], "message %s delivered twice", m.ID)
			seen[m.ID] = true
			cursor = m.Seq
		}
	}
	wg.Wait()

	assert.Len(t, seen, n)
}

func TestMessagesKeepAppendOrder(t *testing.T) {
	ctx := context.Background()
	listing := seedListing(t, seedUser(t))
	buyer := seedUser(t)
	a, b := domain.CanonicalPair(buyer, listing.OwnerID)
	conv := &domain.Conversation{ID: uuid.NewString(), ListingID: listing.ID, ParticipantA: a, ParticipantB: b, CreatedAt: time.Now().UTC()}
	require.NoError(t, testStore.Conversations.Create(ctx, conv))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := &domain.Message{ID: uuid.NewString(), ConversationID: conv.ID, SenderID: buyer, Body: fmt.Sprintf("m%d", i), CreatedAt: time.Now().UTC()}
			assert.NoError(t, testStore.Messages.Append(ctx, msg))
			assert.Positive(t, msg.Seq)
		}(i)
	}
	wg.Wait()

	msgs, err := testStore.Messages.List(ctx, conv.ID, domain.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i := 1; i < n; i++ {
		assert.Greater(t, msgs[i].Seq, msgs[i-1].Seq)
	}

	page, err := testStore.Messages.List(ctx, conv.ID, domain.MessageFilter{AfterSeq: msgs[9].Seq, Limit: 5})
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, msgs[10].ID, page[0].ID)

	orphan := &domain.Message{ID: uuid.NewString(), ConversationID: "missing", SenderID: buyer, Body: "x", CreatedAt: time.Now().UTC()}
	assert.ErrorIs(t, testStore.Messages.Append(ctx, orphan), domain.ErrNotFound)

	summaries, err := testStore.Conversations.ListSummaries(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, listing.OwnerID, summaries[0].Other.ID)
	assert.Equal(t, "Moto Yamaha", summaries[0].Listing.Title)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, msgs[n-1].Body, summaries[0].LastMessage.Body)
}

func TestReviewsRatingAndOwnership(t *testing.T) {
	ctx := context.Background()
	listing := seedListing(t, seedUser(t))

	var reviewIDs []string
	for _, rating := range []int{5, 4, 3} {
		reviewer := seedUser(t)
		rv := &domain.Review{ID: uuid.NewString(), ListingID: listing.ID, ReviewerID: reviewer, Rating: rating, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
		require.NoError(t, testStore.Reviews.Create(ctx, rv))
		reviewIDs = append(reviewIDs, rv.ID)

		dup := *rv
		dup.ID = uuid.NewString()
		assert.ErrorIs(t, testStore.Reviews.Create(ctx, &dup), domain.ErrDuplicateReview)
	}

	mean, count, err := testStore.Reviews.RatingStats(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.InDelta(t, 4.0, mean, 0.0001)

	first, err := testStore.Reviews.GetByID(ctx, reviewIDs[0])
	require.NoError(t, err)

	rating := 1
	_, err = testStore.Reviews.UpdateByReviewer(ctx, first.ID, "someone-else", domain.ReviewPatch{Rating: &rating})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	comment := "Vendeur sérieux"
	updated, err := testStore.Reviews.UpdateByReviewer(ctx, first.ID, first.ReviewerID, domain.ReviewPatch{Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, comment, updated.Comment)

	bad := 9
	_, err = testStore.Reviews.UpdateByReviewer(ctx, first.ID, first.ReviewerID, domain.ReviewPatch{Rating: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	deleted, err := testStore.Reviews.DeleteByReviewer(ctx, first.ID, first.ReviewerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, deleted.ID)

	reviews, total, err := testStore.Reviews.ListByListing(ctx, listing.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, reviews, 2)

	empty, count, err := testStore.Reviews.RatingStats(ctx, "no-reviews")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, empty)
}

func TestListingLifecycle(t *testing.T) {
	ctx := context.Background()
	ownerID := seedUser(t)
	listing := seedListing(t, ownerID)

	require.NoError(t, testStore.Listings.AppendImage(ctx, listing.ID, ownerID, "http://minio/garala/a.png"))
	assert.ErrorIs(t, testStore.Listings.AppendImage(ctx, listing.ID, "intruder", "http://x"), domain.ErrNotFound)

	got, err := testStore.Listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://minio/garala/a.png"}, got.Images)

	got.Title = "Moto Yamaha 125"
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, testStore.Listings.Update(ctx, got))

	found, total, err := testStore.Listings.Search(ctx, domain.ListingFilter{OwnerID: ownerID, Query: "125", Limit: 10, Page: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, "http://minio/garala/a.png", found[0].CoverImage())

	guest := &domain.Listing{ID: uuid.NewString(), Title: "Frigo", Currency: "XAF", Category: domain.CategoryHome, Phone: "+236", IsGuest: true, Images: []string{}, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, testStore.Listings.Create(ctx, guest))
	assert.ErrorIs(t, testStore.Listings.Delete(ctx, guest.ID, ""), domain.ErrNotFound)

	buyer := seedUser(t)
	a, b := domain.CanonicalPair(buyer, ownerID)
	conv := &domain.Conversation{ID: uuid.NewString(), ListingID: listing.ID, ParticipantA: a, ParticipantB: b, CreatedAt: time.Now().UTC()}
	require.NoError(t, testStore.Conversations.Create(ctx, conv))
	require.NoError(t, testStore.Messages.Append(ctx, &domain.Message{ID: uuid.NewString(), ConversationID: conv.ID, SenderID: buyer, Body: "Bonjour", CreatedAt: time.Now().UTC()}))
	require.NoError(t, testStore.Reviews.Create(ctx, &domain.Review{ID: uuid.NewString(), ListingID: listing.ID, ReviewerID: buyer, Rating: 4, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}))

	require.NoError(t, testStore.Listings.Delete(ctx, listing.ID, ownerID))
	assert.ErrorIs(t, testStore.Listings.Delete(ctx, listing.ID, ownerID), domain.ErrNotFound)
	_, err = testStore.Listings.GetByID(ctx, listing.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, total, err = testStore.Listings.Search(ctx, domain.ListingFilter{OwnerID: ownerID, Limit: 10, Page: 1})
	require.NoError(t, err)
	assert.Zero(t, total)

	kept, err := testStore.Conversations.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, listing.ID, kept.ListingID)
	msgs, err := testStore.Messages.List(ctx, conv.ID, domain.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	summaries, err := testStore.Conversations.ListSummaries(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].Listing.Removed)
	assert.Equal(t, "Moto Yamaha 125", summaries[0].Listing.Title)

	_, count, err := testStore.Reviews.RatingStats(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProfileUsernameIsUnique(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	name := "user_" + uuid.NewString()[:8]

	require.NoError(t, testStore.Profiles.Upsert(ctx, &domain.Profile{ID: seedUser(t), Username: name, CreatedAt: now, UpdatedAt: now}))
	err := testStore.Profiles.Upsert(ctx, &domain.Profile{ID: seedUser(t), Username: name, CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)

	id := seedUser(t)
	require.NoError(t, testStore.Profiles.EnsureExists(ctx, id, "first@example.cf"))
	require.NoError(t, testStore.Profiles.Upsert(ctx, &domain.Profile{ID: id, FullName: "Jean", CreatedAt: now, UpdatedAt: now}))
	p, err := testStore.Profiles.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jean", p.FullName)
	assert.Empty(t, p.Username)
}
