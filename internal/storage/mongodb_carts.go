package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// ListCart returns the buyer's cart items.
func (s *MongoDBStore) ListCart(ctx context.Context, email string) ([]Document, error) {
	defer s.measure("carts.list")()
	return findAll[Document](ctx, s.carts, bson.M{"email": email})
}

// AddCartItem inserts the cart item document as posted.
func (s *MongoDBStore) AddCartItem(ctx context.Context, item Document) (InsertResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("carts.add")()

	res, err := s.carts.InsertOne(ctx, prepareDocument(item))
	if err != nil {
		return InsertResult{}, fmt.Errorf("insert cart item: %w", err)
	}
	return insertResult(res), nil
}

// RemoveCartItem deletes one cart item by id.
func (s *MongoDBStore) RemoveCartItem(ctx context.Context, id string) (DeleteResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("carts.remove")()

	res, err := s.carts.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete cart item: %w", err)
	}
	return deleteResult(res), nil
}

// ClearCart deletes every cart item owned by email.
func (s *MongoDBStore) ClearCart(ctx context.Context, email string) (DeleteResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("carts.clear")()

	res, err := s.carts.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return DeleteResult{}, fmt.Errorf("clear cart: %w", err)
	}
	return deleteResult(res), nil
}

// UpdateCartItem sets price and quantity on email's row for productID.
func (s *MongoDBStore) UpdateCartItem(ctx context.Context, productID, email string, pricePerUnit float64, quantity int) (UpdateResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("carts.update")()

	res, err := s.carts.UpdateOne(ctx,
		bson.M{"productId": productID, "email": email},
		bson.M{"$set": bson.M{"pricePerUnit": pricePerUnit, "quantity": quantity}},
	)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update cart item: %w", err)
	}
	return updateResult(res), nil
}
