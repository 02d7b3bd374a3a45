// Package router assembles the HTTP surface.
package router

import (
	"net/http"

	"github.com/garala-cf/garala/internal/handler"
	"github.com/garala-cf/garala/internal/middleware"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/garala-cf/garala/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
)

// Handlers groups everything the router serves. Live is optional.
type Handlers struct {
	Health        *handler.HealthHandler
	Listings      *handler.ListingHandler
	Reviews       *handler.ReviewHandler
	Conversations *handler.ConversationHandler
	Profiles      *handler.ProfileHandler
	Live          *handler.LiveHandler
}

// Options carries the settings the middleware chain needs.
type Options struct {
	ServiceName    string
	JWTSecret      string
	AllowedOrigins []string
}

// New builds the chi router with the middleware chain
// tracing -> recoverer -> request log -> metrics -> identity, wrapped in CORS.
func New(opts Options, h Handlers, m *metrics.MetricsManager, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Tracing(opts.ServiceName))
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	r.Use(middleware.Identify(opts.JWTSecret, log))

	r.Get("/healthz", h.Health.HandleHealth)
	SetupProfileRoutes(r, h.Profiles)
	SetupListingRoutes(r, h.Listings)
	SetupReviewRoutes(r, h.Reviews)
	SetupConversationRoutes(r, h.Conversations, h.Live)

	return handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(r)
}
