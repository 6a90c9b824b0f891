package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmaplaza/server/internal/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDBStore implements Store using MongoDB.
type MongoDBStore struct {
	client          *mongo.Client
	db              *mongo.Database
	users           *mongo.Collection
	products        *mongo.Collection
	categories      *mongo.Collection
	carts           *mongo.Collection
	advertisements  *mongo.Collection
	reviews         *mongo.Collection
	blogs           *mongo.Collection
	payments        *mongo.Collection
	invoices        *mongo.Collection
	useTransactions bool
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewMongoDBStore connects, pings and prepares indexes.
func NewMongoDBStore(ctx context.Context, cfg StoreConfig) (*MongoDBStore, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDBURL))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		// The disconnect error would only obscure the ping failure.
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	store := newMongoDBStoreFromDB(client.Database(cfg.MongoDBDatabase), cfg.UseTransactions, cfg.Metrics)

	if err := store.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return store, nil
}

// newMongoDBStoreFromDB wires collections on an existing database handle
// without touching indexes.
func newMongoDBStoreFromDB(db *mongo.Database, useTransactions bool, m *metrics.Metrics) *MongoDBStore {
	return &MongoDBStore{
		client:          db.Client(),
		db:              db,
		users:           db.Collection(collUsers),
		products:        db.Collection(collProducts),
		categories:      db.Collection(collCategories),
		carts:           db.Collection(collCarts),
		advertisements:  db.Collection(collAdvertisements),
		reviews:         db.Collection(collReviews),
		blogs:           db.Collection(collBlogs),
		payments:        db.Collection(collPayments),
		invoices:        db.Collection(collInvoices),
		useTransactions: useTransactions,
		metrics:         m,
		now:             time.Now,
	}
}

// createIndexes creates necessary indexes for collections.
func (s *MongoDBStore) createIndexes(ctx context.Context) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.carts, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "productId", Value: 1}, {Key: "email", Value: 1}}},
		}},
		{s.products, []mongo.IndexModel{
			{Keys: bson.D{{Key: "categoryName", Value: 1}}},
			{Keys: bson.D{{Key: "sellerEmail", Value: 1}}},
			{Keys: bson.D{{Key: "pricePerUnit", Value: 1}, {Key: "_id", Value: 1}}},
		}},
		{s.payments, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		}},
		{s.advertisements, []mongo.IndexModel{
			{Keys: bson.D{{Key: "sellerEmail", Value: 1}}},
		}},
		{s.invoices, []mongo.IndexModel{
			{Keys: bson.D{{Key: "cartPurge", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		}},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			return fmt.Errorf("create %s indexes: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// Ping checks connectivity to the primary.
func (s *MongoDBStore) Ping(ctx context.Context) error {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

// measure starts a DB timer for operation.
func (s *MongoDBStore) measure(operation string) func() {
	return metrics.MeasureDBQuery(s.metrics, operation, backendMongo)
}

// withTransaction runs fn inside a session transaction.
func (s *MongoDBStore) withTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// findAll decodes every document matching filter into a slice. An empty
// result is a non-nil empty slice so it encodes as [].
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

// aggregateAll runs a pipeline and decodes every result.
func aggregateAll[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) ([]T, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll.Name(), err)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s aggregate: %w", coll.Name(), err)
	}
	return out, nil
}

func insertResult(res *mongo.InsertOneResult) InsertResult {
	return InsertResult{Acknowledged: true, InsertedID: res.InsertedID}
}

func updateResult(res *mongo.UpdateResult) UpdateResult {
	return UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}
}

func deleteResult(res *mongo.DeleteResult) DeleteResult {
	return DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}
}
