package storage

import (
	"context"
	"fmt"

	"github.com/pharmaplaza/server/internal/catalog"
	"go.mongodb.org/mongo-driver/bson"
)

// ListProducts returns the page of products selected by q.
func (s *MongoDBStore) ListProducts(ctx context.Context, q catalog.Query) ([]Document, error) {
	defer s.measure("products.list")()
	return findAll[Document](ctx, s.products, q.Filter(), q.FindOptions())
}

// CountProducts counts products matching q's search filter.
func (s *MongoDBStore) CountProducts(ctx context.Context, q catalog.Query) (int64, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("products.count")()

	n, err := s.products.CountDocuments(ctx, q.Filter())
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// ProductsByCategory matches categoryName exactly, case-sensitive.
func (s *MongoDBStore) ProductsByCategory(ctx context.Context, categoryName string) ([]Document, error) {
	defer s.measure("products.by_category")()
	return findAll[Document](ctx, s.products, bson.M{"categoryName": categoryName})
}

// CreateProduct inserts the product document as posted.
func (s *MongoDBStore) CreateProduct(ctx context.Context, product Document) (InsertResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("products.create")()

	res, err := s.products.InsertOne(ctx, prepareDocument(product))
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert product: %w", err)
	}
	return insertResult(res), nil
}

// ListCategories returns every category.
func (s *MongoDBStore) ListCategories(ctx context.Context) ([]Category, error) {
	defer s.measure("categories.list")()
	return findAll[Category](ctx, s.categories, bson.M{})
}

// CreateCategory inserts c.
func (s *MongoDBStore) CreateCategory(ctx context.Context, c Category) (InsertResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("categories.create")()

	res, err := s.categories.InsertOne(ctx, c)
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert category: %w", err)
	}
	return insertResult(res), nil
}

// UpdateCategory sets name and image on the category with id.
func (s *MongoDBStore) UpdateCategory(ctx context.Context, id string, c Category) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("categories.update")()

	res, err := s.categories.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"categoryName":  c.CategoryName,
		"categoryImage": c.CategoryImage,
	}})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update category: %w", err)
	}
	return updateResult(res), nil
}

// DeleteCategory removes the category with id.
func (s *MongoDBStore) DeleteCategory(ctx context.Context, id string) (DeleteResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("categories.delete")()

	res, err := s.categories.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete category: %w", err)
	}
	return deleteResult(res), nil
}
