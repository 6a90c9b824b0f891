package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/pharmaplaza/server/internal/auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateUser inserts u unless the email is already registered.
func (s *MongoDBStore) CreateUser(ctx context.Context, u User) (InsertResult, bool, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("users.create")()

	err := s.users.FindOne(ctx, bson.M{"email": u.Email}).Err()
	if err == nil {
		return InsertResult{}, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return InsertResult{}, false, fmt.Errorf("find user: %w", err)
	}

	if u.Role == "" {
		u.Role = auth.RoleBuyer.String()
	}
	res, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		// lost a race with a concurrent sign-in for the same email
		return InsertResult{}, false, nil
	}
	if err != nil {
		return InsertResult{}, false, fmt.Errorf("insert user: %w", err)
	}
	return insertResult(res), true, nil
}

// ListUsers returns every user.
func (s *MongoDBStore) ListUsers(ctx context.Context) ([]User, error) {
	defer s.measure("users.list")()
	return findAll[User](ctx, s.users, bson.M{})
}

// GetUserByEmail returns ErrNotFound when no user has email.
func (s *MongoDBStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("users.get")()

	var u User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// UpdateUser sets name and role on the user with email.
func (s *MongoDBStore) UpdateUser(ctx context.Context, email, name string, role auth.Role) (UpdateResult, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("users.update")()

	res, err := s.users.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{"name": name, "role": role.String()}},
	)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update user: %w", err)
	}
	return updateResult(res), nil
}

// UpdateUserRole sets role on the user with the given id.
func (s *MongoDBStore) UpdateUserRole(ctx context.Context, id string, role auth.Role) (UpdateResult, error) {
	oid, err := parseID(id)
	if err != nil {
		return UpdateResult{}, err
	}
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("users.update_role")()

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"role": role.String()}})
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update user role: %w", err)
	}
	return updateResult(res), nil
}

// RoleOf loads the stored role for email. A stored value that is not a
// known role is reported as found with an empty role.
func (s *MongoDBStore) RoleOf(ctx context.Context, email string) (auth.Role, bool, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()
	defer s.measure("users.role_of")()

	var u User
	opts := options.FindOne().SetProjection(bson.M{"role": 1})
	err := s.users.FindOne(ctx, bson.M{"email": email}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("find user role: %w", err)
	}
	role, err := auth.ParseRole(u.Role)
	if err != nil {
		return "", true, nil
	}
	return role, true, nil
}
