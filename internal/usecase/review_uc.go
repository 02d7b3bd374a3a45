package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxReviewCommentLength = 2000

// ReviewUsecase implements the business logic for listing reviews.
type ReviewUsecase struct {
	reviews   domain.ReviewRepository
	listings  domain.ListingRepository
	profiles  domain.ProfileRepository
	publisher EventPublisher
	guard     storeGuard
	logger    *logger.Logger
}

// NewReviewUsecase creates a new ReviewUsecase.
func NewReviewUsecase(store *domain.Store, publisher EventPublisher, storeTimeout time.Duration, log *logger.Logger) *ReviewUsecase {
	l := log.Named("ReviewUsecase")
	return &ReviewUsecase{
		reviews:   store.Reviews,
		listings:  store.Listings,
		profiles:  store.Profiles,
		publisher: publisher,
		guard:     newStoreGuard(storeTimeout, l),
		logger:    l,
	}
}

func normalizeComment(comment string) (string, error) {
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > maxReviewCommentLength {
		return "", fmt.Errorf("%w: comment is longer than %d characters", domain.ErrInvalidInput, maxReviewCommentLength)
	}
	return comment, nil
}

// AddReview creates the caller's review of a listing.
func (uc *ReviewUsecase) AddReview(ctx context.Context, caller domain.Identity, listingID string, rating int, comment string) (*domain.Review, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateRating(rating); err != nil {
		return nil, err
	}
	if comment, err = normalizeComment(comment); err != nil {
		return nil, err
	}

	uc.logger.Info("Creating review",
		zap.String("listing_id", listingID),
		zap.String("reviewer_id", user.UserID),
		zap.Int("rating", rating))

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	listing, err := uc.listings.GetByID(sctx, listingID)
	if err != nil {
		return nil, uc.guard.fail("GetListing", listingID, err)
	}
	if err := domain.CanReviewListing(user.UserID, listing); err != nil {
		return nil, err
	}

	// Fast path only; the unique index on (listing_id, reviewer_id) decides.
	exists, err := uc.reviews.ExistsForReviewer(sctx, listingID, user.UserID)
	if err != nil {
		return nil, uc.guard.fail("ExistsForReviewer", listingID, err)
	}
	if exists {
		return nil, domain.ErrDuplicateReview
	}
	if err := uc.profiles.EnsureExists(sctx, user.UserID, user.Email); err != nil {
		return nil, uc.guard.fail("EnsureProfile", user.UserID, err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:         uuid.NewString(),
		ListingID:  listingID,
		ReviewerID: user.UserID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.reviews.Create(sctx, review); err != nil {
		if errors.Is(err, domain.ErrDuplicateReview) {
			uc.logger.Info("Concurrent duplicate review rejected by store", zap.String("listing_id", listingID), zap.String("reviewer_id", user.UserID))
		}
		return nil, uc.guard.fail("CreateReview", listingID, err)
	}

	publish(ctx, uc.publisher, uc.logger, SubjectReviewCreated, map[string]interface{}{
		"review_id":   review.ID,
		"listing_id":  review.ListingID,
		"reviewer_id": review.ReviewerID,
		"rating":      review.Rating,
		"created_at":  timestamp(review.CreatedAt),
	})

	uc.logger.Info("Review created successfully", zap.String("review_id", review.ID))
	return review, nil
}

// GetRatingSummary returns the mean rating (one decimal) and count of a listing.
func (uc *ReviewUsecase) GetRatingSummary(ctx context.Context, listingID string) (domain.RatingSummary, error) {
	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	if _, err := uc.listings.GetByID(sctx, listingID); err != nil {
		return domain.RatingSummary{}, uc.guard.fail("GetListing", listingID, err)
	}
	mean, count, err := uc.reviews.RatingStats(sctx, listingID)
	if err != nil {
		return domain.RatingSummary{}, uc.guard.fail("RatingStats", listingID, err)
	}
	return domain.NewRatingSummary(mean, count), nil
}

// ListReviews returns a page of a listing's reviews, newest first.
func (uc *ReviewUsecase) ListReviews(ctx context.Context, listingID string, page, limit int) ([]*domain.Review, int64, error) {
	page, limit = ClampPage(page, limit)

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	if _, err := uc.listings.GetByID(sctx, listingID); err != nil {
		return nil, 0, uc.guard.fail("GetListing", listingID, err)
	}
	reviews, total, err := uc.reviews.ListByListing(sctx, listingID, page, limit)
	if err != nil {
		return nil, 0, uc.guard.fail("ListReviews", listingID, err)
	}
	return reviews, total, nil
}

// UpdateReview changes the caller's own review. The store filters on the
// reviewer, so a foreign review is never touched.
func (uc *ReviewUsecase) UpdateReview(ctx context.Context, caller domain.Identity, reviewID string, patch domain.ReviewPatch) (*domain.Review, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	if patch.Rating != nil {
		if err := domain.ValidateRating(*patch.Rating); err != nil {
			return nil, err
		}
	}
	if patch.Comment != nil {
		c, err := normalizeComment(*patch.Comment)
		if err != nil {
			return nil, err
		}
		patch.Comment = &c
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	review, err := uc.reviews.UpdateByReviewer(sctx, reviewID, user.UserID, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, uc.explainMiss(sctx, reviewID, user.UserID)
		}
		return nil, uc.guard.fail("UpdateReview", reviewID, err)
	}

	publish(ctx, uc.publisher, uc.logger, SubjectReviewUpdated, map[string]interface{}{
		"review_id":   review.ID,
		"listing_id":  review.ListingID,
		"reviewer_id": review.ReviewerID,
		"rating":      review.Rating,
		"updated_at":  timestamp(review.UpdatedAt),
	})

	uc.logger.Info("Review updated successfully", zap.String("review_id", review.ID))
	return review, nil
}

// DeleteReview removes the caller's own review.
func (uc *ReviewUsecase) DeleteReview(ctx context.Context, caller domain.Identity, reviewID string) error {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return err
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	review, err := uc.reviews.DeleteByReviewer(sctx, reviewID, user.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uc.explainMiss(sctx, reviewID, user.UserID)
		}
		return uc.guard.fail("DeleteReview", reviewID, err)
	}

	publish(ctx, uc.publisher, uc.logger, SubjectReviewDeleted, map[string]interface{}{
		"review_id":   review.ID,
		"listing_id":  review.ListingID,
		"reviewer_id": review.ReviewerID,
		"deleted_at":  timestamp(time.Now()),
	})

	uc.logger.Info("Review deleted successfully", zap.String("review_id", reviewID))
	return nil
}

// explainMiss tells NotFound from NotAuthorized after a filtered mutation
// matched nothing.
func (uc *ReviewUsecase) explainMiss(ctx context.Context, reviewID, callerID string) error {
	review, err := uc.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return uc.guard.fail("GetReview", reviewID, err)
	}
	if err := domain.CanModifyReview(callerID, review); err != nil {
		uc.logger.Warn("User forbidden to modify review",
			zap.String("review_id", reviewID),
			zap.String("review_author", review.ReviewerID),
			zap.String("requesting_user", callerID))
		return err
	}
	// Matched the author yet nothing changed: removed concurrently.
	return domain.ErrNotFound
}

// ClampPage applies the paging defaults: page 1, 20 items, at most 100.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	return page, limit
}
