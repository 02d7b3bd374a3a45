package handler

import (
	"time"

	"github.com/garala-cf/garala/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// --- Requests ---

type listingRequest struct {
	Title          string `json:"title" validate:"required,max=120"`
	Description    string `json:"description" validate:"max=4000"`
	Price          int64  `json:"price" validate:"gte=0"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
	Category       string `json:"category" validate:"required"`
	Quartier       string `json:"quartier" validate:"max=80"`
	Arrondissement string `json:"arrondissement" validate:"max=80"`
	Phone          string `json:"phone" validate:"max=32"`
}

func (r listingRequest) toDetails() domain.ListingDetails {
	return domain.ListingDetails{
		Title:          r.Title,
		Description:    r.Description,
		Price:          r.Price,
		Currency:       r.Currency,
		Category:       domain.Category(r.Category),
		Quartier:       r.Quartier,
		Arrondissement: r.Arrondissement,
		Phone:          r.Phone,
	}
}

// Rating ranges are checked by the use case so the error kind stays InvalidRating.
type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type openConversationRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	UserA     string `json:"user_a" validate:"required"`
	UserB     string `json:"user_b" validate:"required"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type updateProfileRequest struct {
	FullName  string `json:"full_name" validate:"max=120"`
	Username  string `json:"username" validate:"max=30"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

type preferencesRequest struct {
	Vibration *bool  `json:"vibration" validate:"required"`
	Theme     string `json:"theme" validate:"required"`
	Language  string `json:"language" validate:"required"`
}

// --- Responses ---

type listingResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Price          int64     `json:"price"`
	Currency       string    `json:"currency"`
	Category       string    `json:"category"`
	Quartier       string    `json:"quartier"`
	Arrondissement string    `json:"arrondissement"`
	Phone          string    `json:"phone,omitempty"`
	Images         []string  `json:"images"`
	IsGuest        bool      `json:"is_guest"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toListingResponse(l *domain.Listing) listingResponse {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return listingResponse{
		ID:             l.ID,
		OwnerID:        l.OwnerID,
		Title:          l.Title,
		Description:    l.Description,
		Price:          l.Price,
		Currency:       l.Currency,
		Category:       string(l.Category),
		Quartier:       l.Quartier,
		Arrondissement: l.Arrondissement,
		Phone:          l.Phone,
		Images:         images,
		IsGuest:        l.IsGuest,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

type listingPage struct {
	Items []listingResponse `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type reviewResponse struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	ReviewerID string    `json:"reviewer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toReviewResponse(r *domain.Review) reviewResponse {
	return reviewResponse{
		ID:         r.ID,
		ListingID:  r.ListingID,
		ReviewerID: r.ReviewerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type reviewPage struct {
	Items []reviewResponse `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type ratingResponse struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		ID:        p.ID,
		FullName:  p.FullName,
		Username:  p.Username,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
}

type conversationResponse struct {
	ID           string    `json:"id"`
	ListingID    string    `json:"listing_id"`
	Participants [2]string `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

func toConversationResponse(c *domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:           c.ID,
		ListingID:    c.ListingID,
		Participants: [2]string{c.ParticipantA, c.ParticipantB},
		CreatedAt:    c.CreatedAt,
	}
}

type openConversationResponse struct {
	conversationResponse
	Created bool `json:"created"`
}

type listingPreviewResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Price      int64  `json:"price"`
	Currency   string `json:"currency"`
	CoverImage string `json:"cover_image,omitempty"`
	Removed    bool   `json:"removed,omitempty"`
}

type lastMessageResponse struct {
	SenderID  string    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type conversationSummaryResponse struct {
	Conversation conversationResponse   `json:"conversation"`
	Other        profileResponse        `json:"other"`
	Listing      listingPreviewResponse `json:"listing"`
	LastMessage  *lastMessageResponse   `json:"last_message"`
	LastActivity time.Time              `json:"last_activity"`
}

func toSummaryResponse(s *domain.ConversationSummary) conversationSummaryResponse {
	resp := conversationSummaryResponse{
		Conversation: toConversationResponse(&s.Conversation),
		Other:        toProfileResponse(&s.Other),
		Listing: listingPreviewResponse{
			ID:         s.Listing.ID,
			Title:      s.Listing.Title,
			Price:      s.Listing.Price,
			Currency:   s.Listing.Currency,
			CoverImage: s.Listing.CoverImage,
			Removed:    s.Listing.Removed,
		},
		LastActivity: s.LastActivity(),
	}
	if s.LastMessage != nil {
		resp.LastMessage = &lastMessageResponse{
			SenderID:  s.LastMessage.SenderID,
			Body:      s.LastMessage.Body,
			CreatedAt: s.LastMessage.CreatedAt,
		}
	}
	return resp
}

type messageResponse struct {
	ID             string    `json:"id"`
	Seq            int64     `json:"seq"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		Seq:            m.Seq,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
}
