package mongodb

import (
	"context"

	"github.com/garala-cf/garala/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ConversationRepository struct {
	collection *mongo.Collection
}

func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	doc := conversationDocument{
		ID:           c.ID,
		ListingID:    c.ListingID,
		ParticipantA: c.ParticipantA,
		ParticipantB: c.ParticipantB,
		CreatedAt:    c.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConversationExists
		}
		return mapError("ConversationRepository.Create", err)
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.findOne(ctx, "ConversationRepository.GetByID", bson.M{"_id": id})
}

func (r *ConversationRepository) FindByPair(ctx context.Context, listingID, a, b string) (*domain.Conversation, error) {
	filter := bson.M{"listing_id": listingID, "participant_a": a, "participant_b": b}
	return r.findOne(ctx, "ConversationRepository.FindByPair", filter)
}

func (r *ConversationRepository) findOne(ctx context.Context, op string, filter bson.M) (*domain.Conversation, error) {
	var doc conversationDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapError(op, err)
	}
	return doc.toDomain(), nil
}

// summaryPipeline joins the counterpart profile, the listing and the last
// message of every conversation userID takes part in.
func summaryPipeline(userID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"participant_a": userID},
			bson.M{"participant_b": userID},
		}}}},
		{{Key: "$addFields", Value: bson.M{
			"other_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$participant_a", userID}}, "$participant_b", "$participant_a",
			}},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": profileCollectionName, "localField": "other_id", "foreignField": "_id", "as": "other",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": listingCollectionName, "localField": "listing_id", "foreignField": "_id", "as": "listing",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": messageCollectionName,
			"let":  bson.M{"cid": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$conversation_id", "$$cid"}}}},
				bson.M{"$sort": bson.M{"seq": -1}},
				bson.M{"$limit": 1},
			},
			"as": "last",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"activity": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$last.created_at", 0}}, "$created_at",
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "activity", Value: -1}, {Key: "_id", Value: -1}}}},
	}
}

func (r *ConversationRepository) ListSummaries(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	cursor, err := r.collection.Aggregate(ctx, summaryPipeline(userID))
	if err != nil {
		return nil, mapError("ConversationRepository.ListSummaries", err)
	}
	defer cursor.Close(ctx)

	var docs []summaryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("ConversationRepository.ListSummaries.Decode", err)
	}

	out := make([]*domain.ConversationSummary, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain(userID))
	}
	return out, nil
}

func (d *summaryDocument) toDomain(userID string) *domain.ConversationSummary {
	sum := &domain.ConversationSummary{
		Conversation: *d.conversationDocument.toDomain(),
	}
	sum.Other.ID = sum.Conversation.OtherParticipant(userID)
	if len(d.Other) > 0 {
		p := d.Other[0]
		sum.Other.FullName = p.FullName
		sum.Other.Username = p.Username
		sum.Other.AvatarURL = p.AvatarURL
	}
	sum.Listing = domain.ListingPreview{ID: sum.Conversation.ListingID, Removed: true}
	if len(d.Listing) > 0 {
		l := d.Listing[0]
		sum.Listing = domain.ListingPreview{
			ID:       l.ID,
			Title:    l.Title,
			Price:    l.Price,
			Currency: l.Currency,
			Removed:  l.DeletedAt != nil,
		}
		if len(l.Images) > 0 {
			sum.Listing.CoverImage = l.Images[0]
		}
	}
	if len(d.Last) > 0 {
		m := d.Last[0]
		sum.LastMessage = &domain.MessagePreview{
			SenderID:  m.SenderID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt,
		}
	}
	return sum
}
