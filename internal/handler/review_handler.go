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

// ReviewHandler serves listing reviews and rating summaries.
type ReviewHandler struct {
	reviews *usecase.ReviewUsecase
	responder
}

func NewReviewHandler(reviews *usecase.ReviewUsecase, m *metrics.MetricsManager, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		responder: responder{logger: log.Named("ReviewHTTPHandler"), metrics: m},
	}
}

func (h *ReviewHandler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	review, err := h.reviews.AddReview(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "listingId"), req.Rating, req.Comment)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toReviewResponse(review))
}

func (h *ReviewHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	reviews, total, err := h.reviews.ListReviews(r.Context(), chi.URLParam(r, "listingId"), page, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := reviewPage{Items: make([]reviewResponse, 0, len(reviews)), Total: total}
	resp.Page, resp.Limit = usecase.ClampPage(page, limit)
	for _, rv := range reviews {
		resp.Items = append(resp.Items, toReviewResponse(rv))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ReviewHandler) HandleGetRatingSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reviews.GetRatingSummary(r.Context(), chi.URLParam(r, "listingId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ratingResponse{Average: summary.Average, Count: summary.Count})
}

func (h *ReviewHandler) HandleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req updateReviewRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	review, err := h.reviews.UpdateReview(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "reviewId"),
		domain.ReviewPatch{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toReviewResponse(review))
}

func (h *ReviewHandler) HandleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.DeleteReview(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "reviewId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
