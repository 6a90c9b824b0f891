package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ListAdvertisements returns all advertisements, optionally filtered by status.
func (s *MongoDBStore) ListAdvertisements(ctx context.Context, status string) ([]Advertisement, error) {
	defer s.measure("advertisements.list")()
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return findAll[Advertisement](ctx, s.advertisements, filter)
}

// AdvertisementsBySeller returns the seller's advertisements.
func (s *MongoDBStore) AdvertisementsBySeller(ctx context.Context, sellerEmail string) ([]Advertisement, error) {
	defer s.measure("advertisements.by_seller")()
	return findAll[Advertisement](ctx, s.advertisements, bson.M{"sellerEmail": sellerEmail})
}

// CreateAdvertisement inserts ad, defaulting its status to Hidden.
func (s *MongoDBStore) CreateAdvertisement(ctx context.Context, ad Advertisement) (InsertResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("advertisements.create")()

	prepareAdvertisement(&ad)
	res, err := s.advertisements.InsertOne(ctx, ad)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert advertisement: %w", err)
	}
	return insertResult(res), nil
}

// toggleStatusUpdate flips Approved and Hidden server-side in one write.
var toggleStatusUpdate = mongo.Pipeline{
	{{Key: "$set", Value: bson.M{"status": bson.M{"$switch": bson.M{
		"branches": bson.A{
			bson.M{"case": bson.M{"$eq": bson.A{"$status", AdStatusApproved}}, "then": AdStatusHidden},
			bson.M{"case": bson.M{"$eq": bson.A{"$status", AdStatusHidden}}, "then": AdStatusApproved},
		},
		"default": "$status",
	}}}}},
}

// ToggleAdvertisement flips the advertisement's status atomically.
func (s *MongoDBStore) ToggleAdvertisement(ctx context.Context, id string) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("advertisements.toggle")()

	res, err := s.advertisements.UpdateOne(ctx, bson.M{"_id": oid}, toggleStatusUpdate)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("toggle advertisement: %w", err)
	}
	if res.MatchedCount == 0 {
		return UpdateResult{}, ErrNotFound
	}
	return updateResult(res), nil
}

// ListReviews returns every review document.
func (s *MongoDBStore) ListReviews(ctx context.Context) ([]bson.M, error) {
	defer s.measure("reviews.list")()
	return findAll[bson.M](ctx, s.reviews, bson.M{})
}

// ListBlogs returns every blog document.
func (s *MongoDBStore) ListBlogs(ctx context.Context) ([]bson.M, error) {
	defer s.measure("blogs.list")()
	return findAll[bson.M](ctx, s.blogs, bson.M{})
}
