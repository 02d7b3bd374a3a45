package mongodb

import (
	"context"
	"time"

	"github.com/garala-cf/garala/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// seqGapGrace is how long List waits for an allocated seq whose insert has
// not landed. It is longer than any store call, so an older hole is a failed
// append and is skipped.
const seqGapGrace = 10 * time.Second

// MessageRepository keeps each conversation's log. Seq comes from a per
// conversation counter document, so it is dense and strictly increasing
// within a conversation. The counter and the insert are separate writes, so
// List only returns the prefix without pending holes.
type MessageRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func (r *MessageRepository) nextSeq(ctx context.Context, conversationID string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.db.Collection(counterCollectionName).FindOneAndUpdate(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (r *MessageRepository) Append(ctx context.Context, m *domain.Message) error {
	n, err := r.db.Collection(conversationCollectionName).CountDocuments(ctx,
		bson.M{"_id": m.ConversationID}, options.Count().SetLimit(1))
	if err != nil {
		return mapError("MessageRepository.Append", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}

	seq, err := r.nextSeq(ctx, m.ConversationID)
	if err != nil {
		return mapError("MessageRepository.Append.Seq", err)
	}

	doc := messageDocument{
		ID:             m.ID,
		Seq:            seq,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return mapError("MessageRepository.Append", err)
	}
	m.Seq = seq
	return nil
}

func (r *MessageRepository) List(ctx context.Context, conversationID string, filter domain.MessageFilter) ([]*domain.Message, error) {
	query := bson.M{"conversation_id": conversationID}
	if filter.AfterSeq > 0 {
		query["seq"] = bson.M{"$gt": filter.AfterSeq}
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if filter.Limit > 0 {
		findOptions.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, mapError("MessageRepository.List", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError("MessageRepository.List.Decode", err)
	}
	docs = committedPrefix(docs, filter.AfterSeq, time.Now())
	messages := make([]*domain.Message, 0, len(docs))
	for i := range docs {
		messages = append(messages, docs[i].toDomain())
	}
	return messages, nil
}

// committedPrefix cuts docs at the first seq hole that may still be filled by
// an append in flight. A hole followed by a message older than seqGapGrace is
// stepped over.
func committedPrefix(docs []messageDocument, afterSeq int64, now time.Time) []messageDocument {
	next := afterSeq + 1
	for i := range docs {
		if docs[i].Seq != next && now.Sub(docs[i].CreatedAt) < seqGapGrace {
			return docs[:i]
		}
		next = docs[i].Seq + 1
	}
	return docs
}
