package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/middleware"
	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/garala-cf/garala/internal/platform/metrics"
	"github.com/garala-cf/garala/internal/usecase"
	"github.com/go-chi/chi/v5"
)

const maxImageSize = 5 << 20

// ListingHandler serves the listing catalogue.
type ListingHandler struct {
	listings *usecase.ListingUsecase
	responder
}

func NewListingHandler(listings *usecase.ListingUsecase, m *metrics.MetricsManager, log *logger.Logger) *ListingHandler {
	return &ListingHandler{
		listings:  listings,
		responder: responder{logger: log.Named("ListingHTTPHandler"), metrics: m},
	}
}

func (h *ListingHandler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	listing, err := h.listings.CreateListing(r.Context(), middleware.IdentityFrom(r.Context()), req.toDetails())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toListingResponse(listing))
}

func (h *ListingHandler) HandleSearchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ListingFilter{
		Category:       domain.Category(q.Get("category")),
		Quartier:       q.Get("quartier"),
		Arrondissement: q.Get("arrondissement"),
		Query:          q.Get("q"),
		OwnerID:        q.Get("owner_id"),
	}
	var err error
	if filter.Page, err = queryInt(r, "page", 1); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.MinPrice, err = queryInt64Ptr(r, "min_price"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.MaxPrice, err = queryInt64Ptr(r, "max_price"); err != nil {
		h.fail(w, r, err)
		return
	}

	listings, total, err := h.listings.SearchListings(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page := listingPage{Items: make([]listingResponse, 0, len(listings)), Total: total}
	page.Page, page.Limit = usecase.ClampPage(filter.Page, filter.Limit)
	for _, l := range listings {
		page.Items = append(page.Items, toListingResponse(l))
	}
	respondWithJSON(w, http.StatusOK, page)
}

func (h *ListingHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetListing(r.Context(), chi.URLParam(r, "listingId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *ListingHandler) HandleUpdateListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	listing, err := h.listings.UpdateListing(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "listingId"), req.toDetails())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toListingResponse(listing))
}

func (h *ListingHandler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
	if err := h.listings.DeleteListing(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "listingId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddListingImage accepts a multipart form with one "image" file.
func (h *ListingHandler) HandleAddListingImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+(1<<16))
	file, header, err := r.FormFile("image")
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: expected an 'image' file of at most %d bytes", domain.ErrInvalidInput, maxImageSize))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: could not read upload", domain.ErrInvalidInput))
		return
	}
	if len(data) > maxImageSize {
		h.fail(w, r, fmt.Errorf("%w: image is larger than %d bytes", domain.ErrInvalidInput, maxImageSize))
		return
	}

	listing, err := h.listings.AddListingImage(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "listingId"), header.Filename, data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toListingResponse(listing))
}
