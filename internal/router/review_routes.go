package router

import (
	"github.com/garala-cf/garala/internal/handler"
	"github.com/go-chi/chi/v5"
)

// SetupReviewRoutes configures routes for listing reviews.
func SetupReviewRoutes(mux chi.Router, h *handler.ReviewHandler) {
	// Public reads
	mux.Get("/api/listings/{listingId}/reviews", h.HandleListReviews)
	mux.Get("/api/listings/{listingId}/rating", h.HandleGetRatingSummary)

	mux.Post("/api/listings/{listingId}/reviews", h.HandleCreateReview)
	mux.Put("/api/reviews/{reviewId}", h.HandleUpdateReview)
	mux.Delete("/api/reviews/{reviewId}", h.HandleDeleteReview)
}
