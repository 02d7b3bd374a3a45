package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireUser(t *testing.T) {
	testCases := []struct {
		name    string
		id      Identity
		wantID  string
		wantErr error
	}{
		{name: "authenticated", id: Authenticated{UserID: "u1"}, wantID: "u1"},
		{name: "authenticated pointer", id: &Authenticated{UserID: "u2"}, wantID: "u2"},
		{name: "anonymous", id: Anonymous{}, wantErr: ErrNotAuthenticated},
		{name: "nil identity", id: nil, wantErr: ErrNotAuthenticated},
		{name: "empty user id", id: Authenticated{}, wantErr: ErrNotAuthenticated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := RequireUser(tc.id)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, user.UserID)
		})
	}
}

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("zoe", "alice")
	assert.Equal(t, "alice", a)
	assert.Equal(t, "zoe", b)

	a2, b2 := CanonicalPair("alice", "zoe")
	assert.Equal(t, a, a2)
	assert.Equal(t, b, b2)
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{ParticipantA: "a", ParticipantB: "b"}
	assert.True(t, c.HasParticipant("a"))
	assert.True(t, c.HasParticipant("b"))
	assert.False(t, c.HasParticipant("c"))
	assert.False(t, c.HasParticipant(""))
	assert.Equal(t, "b", c.OtherParticipant("a"))
	assert.Equal(t, "a", c.OtherParticipant("b"))
}

func TestNormalizeBody(t *testing.T) {
	body, err := NormalizeBody("  Bonjour  ")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", body)

	_, err = NormalizeBody(" \n\t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NormalizeBody(strings.Repeat("é", MaxMessageLength))
	assert.NoError(t, err)

	_, err = NormalizeBody(strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateRating(t *testing.T) {
	for r := MinRating; r <= MaxRating; r++ {
		assert.NoError(t, ValidateRating(r))
	}
	for _, r := range []int{-1, 0, 6, 100} {
		err := ValidateRating(r)
		assert.ErrorIs(t, err, ErrInvalidRating)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestSummarizeRatings(t *testing.T) {
	assert.Equal(t, RatingSummary{Average: 4.0, Count: 3}, SummarizeRatings([]int{5, 4, 3}))
	assert.Equal(t, RatingSummary{Average: 0, Count: 0}, SummarizeRatings(nil))
	assert.Equal(t, RatingSummary{Average: 4.3, Count: 3}, SummarizeRatings([]int{5, 4, 4}))
	assert.Equal(t, RatingSummary{Average: 4.5, Count: 2}, SummarizeRatings([]int{5, 4}))
	assert.Equal(t, RatingSummary{}, NewRatingSummary(3.7, 0))
}

func TestListingDetailsNormalize(t *testing.T) {
	d := ListingDetails{Title: "  Toyota Hilux ", Price: 9500000, Category: CategoryVehicles, Quartier: " Lakouanga "}
	require.NoError(t, d.Normalize())
	assert.Equal(t, "Toyota Hilux", d.Title)
	assert.Equal(t, DefaultCurrency, d.Currency)
	assert.Equal(t, "Lakouanga", d.Quartier)

	bad := []ListingDetails{
		{Title: "", Price: 1, Category: CategoryOther},
		{Title: "x", Price: -1, Category: CategoryOther},
		{Title: "x", Price: 1, Category: "boats"},
		{Title: strings.Repeat("x", 121), Price: 1, Category: CategoryOther},
	}
	for _, d := range bad {
		assert.ErrorIs(t, d.Normalize(), ErrInvalidInput)
	}
}

func TestAuthorizationGate(t *testing.T) {
	owned := &Listing{ID: "l1", OwnerID: "owner"}
	guest := &Listing{ID: "l2", IsGuest: true}
	conv := &Conversation{ParticipantA: "a", ParticipantB: "b"}
	review := &Review{ID: "r1", ReviewerID: "a"}

	testCases := []struct {
		name    string
		err     error
		allowed bool
	}{
		{"owner edits listing", CanEditListing("owner", owned), true},
		{"stranger edits listing", CanEditListing("x", owned), false},
		{"nobody edits guest listing", CanEditListing("", guest), false},
		{"participant opens conversation", CanOpenConversation("a", "a", "b"), true},
		{"third party opens conversation", CanOpenConversation("c", "a", "b"), false},
		{"participant accesses conversation", CanAccessConversation("b", conv), true},
		{"non participant accesses conversation", CanAccessConversation("c", conv), false},
		{"buyer reviews listing", CanReviewListing("a", owned), true},
		{"owner reviews own listing", CanReviewListing("owner", owned), false},
		{"anyone reviews guest listing", CanReviewListing("a", guest), true},
		{"author modifies review", CanModifyReview("a", review), true},
		{"other modifies review", CanModifyReview("b", review), false},
		{"user reads own inbox", CanReadUserConversations("a", "a"), true},
		{"user reads foreign inbox", CanReadUserConversations("a", "b"), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.allowed {
				assert.NoError(t, tc.err)
			} else {
				assert.True(t, errors.Is(tc.err, ErrNotAuthorized), "expected ErrNotAuthorized, got %v", tc.err)
			}
		})
	}
}

func TestPreferencesValidate(t *testing.T) {
	p := DefaultPreferences("u1")
	require.NoError(t, p.Validate())
	assert.True(t, p.Vibration)
	assert.Equal(t, ThemeSystem, p.Theme)
	assert.Equal(t, LanguageFrench, p.Language)

	p.Theme = "neon"
	assert.ErrorIs(t, p.Validate(), ErrInvalidInput)

	p = DefaultPreferences("u1")
	p.Language = "de"
	assert.ErrorIs(t, p.Validate(), ErrInvalidInput)
}

func TestProfileUpdateNormalize(t *testing.T) {
	u := ProfileUpdate{FullName: " Jean Bokassa ", Username: " jean_b "}
	require.NoError(t, u.Normalize())
	assert.Equal(t, "Jean Bokassa", u.FullName)
	assert.Equal(t, "jean_b", u.Username)

	bad := ProfileUpdate{Username: "no spaces allowed"}
	assert.ErrorIs(t, bad.Normalize(), ErrInvalidInput)
}
