package router

import (
	"github.com/garala-cf/garala/internal/handler"
	"github.com/go-chi/chi/v5"
)

// SetupProfileRoutes configures public profiles and the caller's own settings.
func SetupProfileRoutes(mux chi.Router, h *handler.ProfileHandler) {
	mux.Get("/api/profiles/{profileId}", h.HandleGetProfile)

	mux.Put("/api/me/profile", h.HandleUpdateMyProfile)
	mux.Get("/api/me/preferences", h.HandleGetPreferences)
	mux.Put("/api/me/preferences", h.HandleSavePreferences)
}
