package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"go.uber.org/zap"
)

// PreferencesUsecase loads and saves per-user settings objects.
type PreferencesUsecase struct {
	store  PreferencesStore
	guard  storeGuard
	logger *logger.Logger
}

func NewPreferencesUsecase(store PreferencesStore, storeTimeout time.Duration, log *logger.Logger) *PreferencesUsecase {
	l := log.Named("PreferencesUsecase")
	return &PreferencesUsecase{
		store:  store,
		guard:  newStoreGuard(storeTimeout, l),
		logger: l,
	}
}

// LoadPreferences returns the caller's saved settings or the defaults.
func (uc *PreferencesUsecase) LoadPreferences(ctx context.Context, caller domain.Identity) (*domain.Preferences, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	prefs, err := uc.store.Load(sctx, user.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultPreferences(user.UserID), nil
	}
	if err != nil {
		return nil, uc.guard.fail("LoadPreferences", user.UserID, err)
	}
	return prefs, nil
}

// SavePreferences validates and persists the caller's settings.
func (uc *PreferencesUsecase) SavePreferences(ctx context.Context, caller domain.Identity, prefs domain.Preferences) (*domain.Preferences, error) {
	user, err := domain.RequireUser(caller)
	if err != nil {
		return nil, err
	}
	prefs.UserID = user.UserID
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	prefs.UpdatedAt = time.Now().UTC()

	sctx, cancel := uc.guard.ctx(ctx)
	defer cancel()

	if err := uc.store.Save(sctx, &prefs); err != nil {
		return nil, uc.guard.fail("SavePreferences", user.UserID, err)
	}
	uc.logger.Debug("Preferences saved", zap.String("user_id", user.UserID))
	return &prefs, nil
}
