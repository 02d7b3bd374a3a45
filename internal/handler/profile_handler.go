package handler

import (
	"net/http"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/middleware"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/garala-cf/garala/internal/platform/metrics"
	"github.com/garala-cf/garala/internal/usecase"
	"github.com/go-chi/chi/v5"
)

// ProfileHandler serves public profiles and the caller's own settings.
type ProfileHandler struct {
	profiles    *usecase.ProfileUsecase
	preferences *usecase.PreferencesUsecase // nil when no preferences store is configured
	responder
}

func NewProfileHandler(profiles *usecase.ProfileUsecase, preferences *usecase.PreferencesUsecase, m *metrics.MetricsManager, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:    profiles,
		preferences: preferences,
		responder:   responder{logger: log.Named("ProfileHTTPHandler"), metrics: m},
	}
}

func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetProfile(r.Context(), chi.URLParam(r, "profileId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *ProfileHandler) HandleUpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	profile, err := h.profiles.UpdateMyProfile(r.Context(), middleware.IdentityFrom(r.Context()), domain.ProfileUpdate{
		FullName:  req.FullName,
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *ProfileHandler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	if h.preferences == nil {
		h.fail(w, r, domain.ErrUnavailable)
		return
	}
	prefs, err := h.preferences.LoadPreferences(r.Context(), middleware.IdentityFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs)
}

func (h *ProfileHandler) HandleSavePreferences(w http.ResponseWriter, r *http.Request) {
	if h.preferences == nil {
		h.fail(w, r, domain.ErrUnavailable)
		return
	}
	var req preferencesRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	prefs, err := h.preferences.SavePreferences(r.Context(), middleware.IdentityFrom(r.Context()), domain.Preferences{
		Vibration: *req.Vibration,
		Theme:     domain.Theme(req.Theme),
		Language:  domain.Language(req.Language),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs)
}
