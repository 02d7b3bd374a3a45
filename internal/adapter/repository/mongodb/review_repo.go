package mongodb

import (
	"context"
	"time"

	"github.com/garala-cf/garala/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReviewRepository implements domain.ReviewRepository using MongoDB.
type ReviewRepository struct {
	collection *mongo.Collection
}

// Create inserts a new review. The unique (listing_id, reviewer_id) index
// turns a second review into ErrDuplicateReview.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	doc := reviewDocument{
		ID:         rv.ID,
		ListingID:  rv.ListingID,
		ReviewerID: rv.ReviewerID,
		Rating:     rv.Rating,
		Comment:    rv.Comment,
		CreatedAt:  rv.CreatedAt,
		UpdatedAt:  rv.UpdatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateReview
		}
		return mapError("ReviewRepository.Create", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	var doc reviewDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, mapError("ReviewRepository.GetByID", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewRepository) ExistsForReviewer(ctx context.Context, listingID, reviewerID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx,
		bson.M{"listing_id": listingID, "reviewer_id": reviewerID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, mapError("ReviewRepository.ExistsForReviewer", err)
	}
	return n > 0, nil
}

// UpdateByReviewer applies patch in one FindOneAndUpdate filtered on the author.
func (r *ReviewRepository) UpdateByReviewer(ctx context.Context, id, reviewerID string, patch domain.ReviewPatch) (*domain.Review, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Rating != nil {
		set["rating"] = *patch.Rating
	}
	if patch.Comment != nil {
		set["comment"] = *patch.Comment
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc reviewDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "reviewer_id": reviewerID},
		bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		return nil, mapError("ReviewRepository.UpdateByReviewer", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewRepository) DeleteByReviewer(ctx context.Context, id, reviewerID string) (*domain.Review, error) {
	var doc reviewDocument
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "reviewer_id": reviewerID}).Decode(&doc)
	if err != nil {
		return nil, mapError("ReviewRepository.DeleteByReviewer", err)
	}
	return doc.toDomain(), nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID string, page, limit int) ([]*domain.Review, int64, error) {
	filter := bson.M{"listing_id": listingID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapError("ReviewRepository.ListByListing.Count", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, mapError("ReviewRepository.ListByListing", err)
	}
	defer cursor.Close(ctx)

	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, mapError("ReviewRepository.ListByListing.Decode", err)
	}
	reviews := make([]*domain.Review, 0, len(docs))
	for i := range docs {
		reviews = append(reviews, docs[i].toDomain())
	}
	return reviews, total, nil
}

// RatingStats averages the listing's ratings with a $group stage.
func (r *ReviewRepository) RatingStats(ctx context.Context, listingID string) (float64, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"listing_id": listingID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$listing_id",
			"mean":  bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, mapError("ReviewRepository.RatingStats", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Mean  float64 `bson:"mean"`
		Count int     `bson:"count"`
	}
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return 0, 0, mapError("ReviewRepository.RatingStats", err)
		}
		return 0, 0, nil
	}
	if err := cursor.Decode(&result); err != nil {
		return 0, 0, mapError("ReviewRepository.RatingStats.Decode", err)
	}
	return result.Mean, result.Count, nil
}
