package router

import (
	"github.com/garala-cf/garala/internal/handler"
	"github.com/go-chi/chi/v5"
)

// SetupListingRoutes registers listing CRUD, search and image upload.
// Ownership is checked by the use cases; guests may create.
func SetupListingRoutes(mux chi.Router, h *handler.ListingHandler) {
	mux.Get("/api/listings", h.HandleSearchListings)
	mux.Post("/api/listings", h.HandleCreateListing)
	mux.Get("/api/listings/{listingId}", h.HandleGetListing)
	mux.Put("/api/listings/{listingId}", h.HandleUpdateListing)
	mux.Delete("/api/listings/{listingId}", h.HandleDeleteListing)
	mux.Post("/api/listings/{listingId}/images", h.HandleAddListingImage)
}
