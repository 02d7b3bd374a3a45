package usecase

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageBytes bounds a single uploaded listing image.
const MaxImageBytes = 8 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ListingUsecase implements the listing catalogue.
type ListingUsecase struct {
	listings  domain.ListingRepository
	profiles  domain.ProfileRepository
	storage   ImageStorage // optional
	publisher EventPublisher
	guard     storeGuard
	logger    *logger.Logger
}

// NewListingUsecase creates a new ListingUsecase. storage may be nil, in
// which case image uploads are unavailable.
func NewListingUsecase(store *domain.Store, storage ImageStorage, publisher EventPublisher, storeTimeout time.Duration, log *logger.Logger) *ListingUsecase {
	l := log.Named("ListingUsecase")
	return &ListingUsecase{
		listings:  store.Listings,
		profiles:  store.Profiles,
		storage:   storage,
		publisher: publisher,
		guard:     newStoreGuard(storeTimeout, l),
		logger:    l,
	}
}

// CreateListing posts a listing. Authenticated callers own it; anonymous
// callers create a guest listing that must carry a phone number.
func (uc *ListingUsecase) CreateListing(ctx context.Context, caller domain.Identity, details domain.ListingDetails) (*domain.Listing, error) {
	if err := details.Normalize(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:        uuid.NewString(),
		Images:    []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	listing.Apply(details)

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	switch c := caller.(type) {
	case domain.Authenticated:
		if c.UserID == "" {
			return nil, domain.ErrNotAuthenticated
		}
		listing.OwnerID = c.UserID
		if err := uc.profiles.EnsureExists(sctx, c.UserID, c.Email); err != nil {
			return nil, uc.guard.fail("EnsureProfile", c.UserID, err)
		}
	case domain.Anonymous, nil:
		if listing.Phone == "" {
			return nil, fmt.Errorf("%w: guest listings require a phone number", domain.ErrInvalidInput)
		}
		listing.IsGuest = true
	default:
		return nil, domain.ErrNotAuthenticated
	}

	if err := uc.listings.Create(sctx, listing); err != nil {
		return nil, uc.guard.fail("CreateListing", listing.ID, err)
	}

	uc.logger.Info("Listing created", zap.String("listing_id", listing.ID), zap.Bool("is_guest", listing.IsGuest))
	publish(ctx, uc.publisher, uc.logger, SubjectListingCreated, map[string]interface{}{
		"listing_id": listing.ID,
		"owner_id":   listing.OwnerID,
		"category":   listing.Category,
		"is_guest":   listing.IsGuest,
		"created_at": timestamp(listing.CreatedAt),
	})
	return listing, nil
}

// GetListing returns a listing by id.
func (uc *ListingUsecase) GetListing(ctx context.Context, listingID string) (*domain.Listing, error) {
	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	listing, err := uc.listings.GetByID(sctx, listingID)
	if err != nil {
		return nil, uc.guard.fail("GetListing", listingID, err)
	}
	return listing, nil
}

// SearchListings returns a page of listings, newest first.
func (uc *ListingUsecase) SearchListings(ctx context.Context, filter domain.ListingFilter) ([]*domain.Listing, int64, error) {
	filter.Page, filter.Limit = ClampPage(filter.Page, filter.Limit)
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown category '%s'", domain.ErrInvalidInput, filter.Category)
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, fmt.Errorf("%w: min_price is greater than max_price", domain.ErrInvalidInput)
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	listings, total, err := uc.listings.Search(sctx, filter)
	if err != nil {
		return nil, 0, uc.guard.fail("SearchListings", filter.Query, err)
	}
	return listings, total, nil
}

// UpdateListing replaces the editable details of the caller's listing.
func (uc *ListingUsecase) UpdateListing(ctx context.Context, caller domain.Identity, listingID string, details domain.ListingDetails) (*domain.Listing, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	if err := details.Normalize(); err != nil {
		return nil, err
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	listing, err := uc.loadEditable(sctx, user.UserID, listingID)
	if err != nil {
		return nil, err
	}
	listing.Apply(details)
	listing.UpdatedAt = time.Now().UTC()

	if err := uc.listings.Update(sctx, listing); err != nil {
		return nil, uc.guard.fail("UpdateListing", listingID, err)
	}

	publish(ctx, uc.publisher, uc.logger, SubjectListingUpdated, map[string]interface{}{
		"listing_id": listing.ID,
		"owner_id":   listing.OwnerID,
		"updated_at": timestamp(listing.UpdatedAt),
	})
	return listing, nil
}

// DeleteListing removes the caller's listing.
func (uc *ListingUsecase) DeleteListing(ctx context.Context, caller domain.Identity, listingID string) error {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return err
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	if _, err := uc.loadEditable(sctx, user.UserID, listingID); err != nil {
		return err
	}
	if err := uc.listings.Delete(sctx, listingID, user.UserID); err != nil {
		return uc.guard.fail("DeleteListing", listingID, err)
	}

	uc.logger.Info("Listing deleted", zap.String("listing_id", listingID))
	publish(ctx, uc.publisher, uc.logger, SubjectListingDeleted, map[string]interface{}{
		"listing_id": listingID,
		"owner_id":   user.UserID,
		"deleted_at": timestamp(time.Now()),
	})
	return nil
}

// AddListingImage uploads an image and appends its URL to the listing.
func (uc *ListingUsecase) AddListingImage(ctx context.Context, caller domain.Identity, listingID, fileName string, data []byte) (*domain.Listing, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidInput)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: image is larger than %d bytes", domain.ErrInvalidInput, MaxImageBytes)
	}
	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %s", domain.ErrInvalidInput, contentType)
	}
	if uc.storage == nil {
		return nil, fmt.Errorf("%w: image storage is not configured", domain.ErrUnavailable)
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	listing, err := uc.loadEditable(sctx, user.UserID, listingID)
	if err != nil {
		return nil, err
	}
	if len(listing.Images) >= domain.MaxListingImages {
		return nil, fmt.Errorf("%w: a listing holds at most %d images", domain.ErrInvalidInput, domain.MaxListingImages)
	}

	name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)) + ext
	url, err := uc.storage.Upload(ctx, name, data)
	if err != nil {
		uc.logger.Error("Image upload failed", zap.String("listing_id", listingID), zap.Error(err))
		return nil, fmt.Errorf("%w: image upload failed", domain.ErrUnavailable)
	}
	if err := uc.listings.AppendImage(sctx, listingID, user.UserID, url); err != nil {
		return nil, uc.guard.fail("AppendImage", listingID, err)
	}
	listing.Images = append(listing.Images, url)

	publish(ctx, uc.publisher, uc.logger, SubjectListingUpdated, map[string]interface{}{
		"listing_id": listing.ID,
		"owner_id":   listing.OwnerID,
		"image_url":  url,
		"updated_at": timestamp(time.Now()),
	})
	return listing, nil
}

func (uc *ListingUsecase) loadEditable(ctx context.Context, callerID, listingID string) (*domain.Listing, error) {
	listing, err := uc.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, uc.guard.fail("GetListing", listingID, err)
	}
	if err := domain.CanEditListing(callerID, listing); err != nil {
		uc.logger.Warn("User forbidden to modify listing",
			zap.String("listing_id", listingID),
			zap.String("owner_id", listing.OwnerID),
			zap.String("requesting_user", callerID))
		return nil, err
	}
	return listing, nil
}
