package usecase

import (
	"context"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"go.uber.org/zap"
)

// ProfileUsecase reads profiles and lets users edit their own.
type ProfileUsecase struct {
	profiles domain.ProfileRepository
	guard    storeGuard
	logger   *logger.Logger
}

func NewProfileUsecase(store *domain.Store, storeTimeout time.Duration, log *logger.Logger) *ProfileUsecase {
	l := log.Named("ProfileUsecase")
	return &ProfileUsecase{
		profiles: store.Profiles,
		guard:    newStoreGuard(storeTimeout, l),
		logger:   l,
	}
}

func (uc *ProfileUsecase) GetProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	p, err := uc.profiles.GetByID(sctx, profileID)
	if err != nil {
		return nil, uc.guard.fail("GetProfile", profileID, err)
	}
	return p, nil
}

// UpdateMyProfile upserts the caller's profile. The email comes from the
// identity, never from the request.
func (uc *ProfileUsecase) UpdateMyProfile(ctx context.Context, caller domain.Identity, update domain.ProfileUpdate) (*domain.Profile, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	if err := update.Normalize(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Profile{
		ID:        user.UserID,
		FullName:  update.FullName,
		Username:  update.Username,
		AvatarURL: update.AvatarURL,
		Email:     user.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	if err := uc.profiles.Upsert(sctx, p); err != nil {
		return nil, uc.guard.fail("UpsertProfile", user.UserID, err)
	}
	stored, err := uc.profiles.GetByID(sctx, user.UserID)
	if err != nil {
		return nil, uc.guard.fail("GetProfile", user.UserID, err)
	}

	uc.logger.Info("Profile updated", zap.String("profile_id", user.UserID))
	return stored, nil
}
