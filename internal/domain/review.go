package domain

import (
	"math"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// --- Review Entity ---

// Review is a user's rating of a listing. At most one per (listing, reviewer).
type Review struct {
	ID         string
	ListingID  string
	ReviewerID string
	Rating     int
	Comment    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateRating returns ErrInvalidRating for anything outside 1..5.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// ReviewPatch holds the optional fields of a review update.
type ReviewPatch struct {
	Rating  *int
	Comment *string
}

// RatingSummary is the aggregate shown on a listing page.
type RatingSummary struct {
	Average float64
	Count   int
}

// NewRatingSummary rounds the mean to one decimal. No reviews means {0, 0}.
func NewRatingSummary(mean float64, count int) RatingSummary {
	if count <= 0 {
		return RatingSummary{}
	}
	return RatingSummary{
		Average: math.Round(mean*10) / 10,
		Count:   count,
	}
}

// SummarizeRatings computes the summary from raw ratings.
func SummarizeRatings(ratings []int) RatingSummary {
	if len(ratings) == 0 {
		return RatingSummary{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return NewRatingSummary(float64(sum)/float64(len(ratings)), len(ratings))
}
