package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/garala-cf/garala/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProfileRepository struct {
	collection *mongo.Collection
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	var doc profileDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapError("ProfileRepository.GetByID", err)
	}
	return doc.toDomain(), nil
}

// Upsert writes the editable fields. An empty username clears it; an empty
// email keeps the stored one.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	now := time.Now().UTC()
	set := bson.M{
		"full_name":  p.FullName,
		"avatar_url": p.AvatarURL,
		"updated_at": now,
	}
	onInsert := bson.M{"created_at": now}
	update := bson.M{"$set": set, "$setOnInsert": onInsert}

	if p.Email != "" {
		set["email"] = p.Email
	} else {
		onInsert["email"] = ""
	}
	if p.Username != "" {
		set["username"] = p.Username
		set["username_lower"] = strings.ToLower(p.Username)
	} else {
		update["$unset"] = bson.M{"username": "", "username_lower": ""}
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUsernameTaken
		}
		return mapError("ProfileRepository.Upsert", err)
	}
	return nil
}

func (r *ProfileRepository) EnsureExists(ctx context.Context, id, email string) error {
	now := time.Now().UTC()
	update := bson.M{"$setOnInsert": bson.M{
		"full_name":  "",
		"avatar_url": "",
		"email":      email,
		"created_at": now,
		"updated_at": now,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	// Two concurrent upserts on the same _id: the loser sees a duplicate key.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return mapError("ProfileRepository.EnsureExists", err)
	}
	return nil
}
