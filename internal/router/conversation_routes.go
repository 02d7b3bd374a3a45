package router

import (
	"github.com/garala-cf/garala/internal/handler"
	"github.com/go-chi/chi/v5"
)

// SetupConversationRoutes configures conversations, messages and the live feed.
// Every route requires a participant; live may be nil when no broker is wired.
func SetupConversationRoutes(mux chi.Router, h *handler.ConversationHandler, live *handler.LiveHandler) {
	mux.Route("/api/conversations", func(r chi.Router) {
		r.Post("/", h.HandleOpenConversation)
		r.Get("/", h.HandleListConversations)
		r.Get("/{conversationId}", h.HandleGetConversation)
		r.Get("/{conversationId}/messages", h.HandleListMessages)
		r.Post("/{conversationId}/messages", h.HandleSendMessage)
		if live != nil {
			r.Get("/{conversationId}/live", live.HandleLiveFeed)
		}
	})
}
