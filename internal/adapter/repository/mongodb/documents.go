package mongodb

import (
	"time"

	"github.com/garala-cf/garala/internal/domain"
)

type profileDocument struct {
	ID            string    `bson:"_id"`
	FullName      string    `bson:"full_name"`
	Username      string    `bson:"username,omitempty"`
	UsernameLower string    `bson:"username_lower,omitempty"`
	AvatarURL     string    `bson:"avatar_url"`
	Email         string    `bson:"email"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func (d *profileDocument) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:        d.ID,
		FullName:  d.FullName,
		Username:  d.Username,
		AvatarURL: d.AvatarURL,
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type listingDocument struct {
	ID             string    `bson:"_id"`
	OwnerID        string    `bson:"owner_id,omitempty"`
	Title          string    `bson:"title"`
	Description    string    `bson:"description"`
	Price          int64     `bson:"price"`
	Currency       string    `bson:"currency"`
	Category       string    `bson:"category"`
	Quartier       string    `bson:"quartier"`
	Arrondissement string    `bson:"arrondissement"`
	Phone          string    `bson:"phone"`
	Images         []string  `bson:"images"`
	IsGuest        bool       `bson:"is_guest"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
	DeletedAt      *time.Time `bson:"deleted_at,omitempty"`
}

func fromDomainListing(l *domain.Listing) *listingDocument {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return &listingDocument{
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

func (d *listingDocument) toDomain() *domain.Listing {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return &domain.Listing{
		ID:             d.ID,
		OwnerID:        d.OwnerID,
		Title:          d.Title,
		Description:    d.Description,
		Price:          d.Price,
		Currency:       d.Currency,
		Category:       domain.Category(d.Category),
		Quartier:       d.Quartier,
		Arrondissement: d.Arrondissement,
		Phone:          d.Phone,
		Images:         images,
		IsGuest:        d.IsGuest,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type conversationDocument struct {
	ID           string    `bson:"_id"`
	ListingID    string    `bson:"listing_id"`
	ParticipantA string    `bson:"participant_a"`
	ParticipantB string    `bson:"participant_b"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d *conversationDocument) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:           d.ID,
		ListingID:    d.ListingID,
		ParticipantA: d.ParticipantA,
		ParticipantB: d.ParticipantB,
		CreatedAt:    d.CreatedAt,
	}
}

type messageDocument struct {
	ID             string    `bson:"_id"`
	Seq            int64     `bson:"seq"`
	ConversationID string    `bson:"conversation_id"`
	SenderID       string    `bson:"sender_id"`
	Body           string    `bson:"body"`
	CreatedAt      time.Time `bson:"created_at"`
}

func (d *messageDocument) toDomain() *domain.Message {
	return &domain.Message{
		ID:             d.ID,
		Seq:            d.Seq,
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		Body:           d.Body,
		CreatedAt:      d.CreatedAt,
	}
}

type reviewDocument struct {
	ID         string    `bson:"_id"`
	ListingID  string    `bson:"listing_id"`
	ReviewerID string    `bson:"reviewer_id"`
	Rating     int       `bson:"rating"`
	Comment    string    `bson:"comment"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d *reviewDocument) toDomain() *domain.Review {
	return &domain.Review{
		ID:         d.ID,
		ListingID:  d.ListingID,
		ReviewerID: d.ReviewerID,
		Rating:     d.Rating,
		Comment:    d.Comment,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// summaryDocument is one row of the inbox aggregation.
type summaryDocument struct {
	conversationDocument `bson:",inline"`
	Other                []profileDocument `bson:"other"`
	Listing              []listingDocument `bson:"listing"`
	Last                 []messageDocument `bson:"last"`
}
