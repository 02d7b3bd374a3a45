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

// ConversationHandler serves conversations and their message logs.
type ConversationHandler struct {
	conversations *usecase.ConversationUsecase
	messages      *usecase.MessageUsecase
	responder
}

func NewConversationHandler(conversations *usecase.ConversationUsecase, messages *usecase.MessageUsecase, m *metrics.MetricsManager, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		responder:     responder{logger: log.Named("ConversationHTTPHandler"), metrics: m},
	}
}

// HandleOpenConversation returns 201 for a new conversation and 200 when the
// pair already had one for this listing.
func (h *ConversationHandler) HandleOpenConversation(w http.ResponseWriter, r *http.Request) {
	var req openConversationRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	conv, created, err := h.conversations.GetOrCreateConversation(r.Context(), middleware.IdentityFrom(r.Context()), req.ListingID, req.UserA, req.UserB)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, openConversationResponse{conversationResponse: toConversationResponse(conv), Created: created})
}

// HandleListConversations lists the caller's inbox. ?user_id= defaults to the caller.
func (h *ConversationHandler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	caller := middleware.IdentityFrom(r.Context())
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		if user, ok := caller.(domain.Authenticated); ok {
			userID = user.UserID
		}
	}

	summaries, err := h.conversations.ListConversationsForUser(r.Context(), caller, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]conversationSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp = append(resp, toSummaryResponse(s))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ConversationHandler) HandleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.GetConversation(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "conversationId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toConversationResponse(conv))
}

func (h *ConversationHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	afterSeq, err := queryInt64Ptr(r, "after_seq")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filter := domain.MessageFilter{Limit: limit}
	if afterSeq != nil {
		filter.AfterSeq = *afterSeq
	}

	msgs, err := h.messages.ListMessages(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "conversationId"), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageResponse(m))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ConversationHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	msg, err := h.messages.AppendMessage(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "conversationId"), req.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toMessageResponse(msg))
}
