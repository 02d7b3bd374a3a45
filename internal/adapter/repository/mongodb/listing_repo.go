package mongodb

import (
	"context"
	"regexp"
	"time"

	"github.com/garala-cf/garala/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListingRepository implements domain.ListingRepository using MongoDB.
type ListingRepository struct {
	collection *mongo.Collection
}

// notRemoved matches documents without deleted_at; a null value also matches.
const notRemoved = "deleted_at"

func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	if _, err := r.collection.InsertOne(ctx, fromDomainListing(l)); err != nil {
		return mapError("ListingRepository.Create", err)
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id, notRemoved: nil}).Decode(&doc); err != nil {
		return nil, mapError("ListingRepository.GetByID", err)
	}
	return doc.toDomain(), nil
}

// exactFold matches s exactly, ignoring case.
func exactFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

// searchFilter builds the query document shared by the page and count queries.
// Removed listings never match.
func searchFilter(f domain.ListingFilter) bson.M {
	filter := bson.M{notRemoved: nil}
	if f.Category != "" {
		filter["category"] = string(f.Category)
	}
	if f.Quartier != "" {
		filter["quartier"] = exactFold(f.Quartier)
	}
	if f.Arrondissement != "" {
		filter["arrondissement"] = exactFold(f.Arrondissement)
	}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	if f.Query != "" {
		q := primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": q}, bson.M{"description": q}}
	}
	return filter
}

func (r *ListingRepository) Search(ctx context.Context, f domain.ListingFilter) ([]*domain.Listing, int64, error) {
	filter := searchFilter(f)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapError("ListingRepository.Search.Count", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, mapError("ListingRepository.Search", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, mapError("ListingRepository.Search.Decode", err)
	}
	listings := make([]*domain.Listing, 0, len(docs))
	for i := range docs {
		listings = append(listings, docs[i].toDomain())
	}
	return listings, total, nil
}

func ownedBy(id, ownerID string) bson.M {
	return bson.M{"_id": id, "owner_id": ownerID, "is_guest": false, notRemoved: nil}
}

// Update rewrites the editable details. Only the owner's non-guest document matches.
func (r *ListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	update := bson.M{"$set": bson.M{
		"title":          l.Title,
		"description":    l.Description,
		"price":          l.Price,
		"currency":       l.Currency,
		"category":       string(l.Category),
		"quartier":       l.Quartier,
		"arrondissement": l.Arrondissement,
		"phone":          l.Phone,
		"updated_at":     l.UpdatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, ownedBy(l.ID, l.OwnerID), update)
	if err != nil {
		return mapError("ListingRepository.Update", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete marks the listing removed. Conversations, messages and reviews keep
// their listing_id and stay readable.
func (r *ListingRepository) Delete(ctx context.Context, id, ownerID string) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}}
	res, err := r.collection.UpdateOne(ctx, ownedBy(id, ownerID), update)
	if err != nil {
		return mapError("ListingRepository.Delete", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) AppendImage(ctx context.Context, id, ownerID, url string) error {
	update := bson.M{
		"$push": bson.M{"images": url},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, ownedBy(id, ownerID), update)
	if err != nil {
		return mapError("ListingRepository.AppendImage", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
