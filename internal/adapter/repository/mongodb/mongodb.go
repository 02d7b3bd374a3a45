// Package mongodb is the document store backend. Ids are the domain's string
// ids stored in _id; uniqueness is enforced by indexes created at startup.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garala-cf/garala/internal/domain"
	"github.com/garala-cf/garala/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	profileCollectionName      = "profiles"
	listingCollectionName      = "listings"
	conversationCollectionName = "conversations"
	messageCollectionName      = "messages"
	reviewCollectionName       = "listing_reviews"
	counterCollectionName      = "counters"
)

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, uri string, log *logger.Logger) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Info("Successfully connected to MongoDB")
	return client, nil
}

// NewStore ensures indexes on db and exposes it through the domain
// repository interfaces. Closing the store disconnects client.
func NewStore(ctx context.Context, client *mongo.Client, db *mongo.Database, log *logger.Logger) (*domain.Store, error) {
	if err := ensureIndexes(ctx, db, log); err != nil {
		return nil, err
	}
	return &domain.Store{
		Profiles:      &ProfileRepository{collection: db.Collection(profileCollectionName)},
		Listings:      &ListingRepository{collection: db.Collection(listingCollectionName)},
		Conversations: &ConversationRepository{collection: db.Collection(conversationCollectionName)},
		Messages:      &MessageRepository{db: db, collection: db.Collection(messageCollectionName)},
		Reviews:       &ReviewRepository{collection: db.Collection(reviewCollectionName)},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	indexes := map[string][]mongo.IndexModel{
		profileCollectionName: {
			{
				Keys: bson.D{{Key: "username_lower", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("profiles_username_key").
					SetPartialFilterExpression(bson.M{"username_lower": bson.M{"$type": "string"}}),
			},
		},
		listingCollectionName: {
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		conversationCollectionName: {
			{
				Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "participant_a", Value: 1}, {Key: "participant_b", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("conversations_pair_key"),
			},
			{Keys: bson.D{{Key: "participant_a", Value: 1}}},
			{Keys: bson.D{{Key: "participant_b", Value: 1}}},
		},
		messageCollectionName: {
			{
				Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		reviewCollectionName: {
			{
				Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "reviewer_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("listing_reviews_one_per_reviewer"),
			},
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ictx, models); err != nil {
			log.Error("Failed to create indexes", zap.String("collection", name), zap.Error(err))
			return fmt.Errorf("failed to create indexes for %s: %w", name, err)
		}
	}
	log.Info("Successfully ensured MongoDB indexes")
	return nil
}

// mapError translates driver errors into domain errors. Duplicate keys are
// handled by the callers, which know which index was hit.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
