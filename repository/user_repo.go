package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tieubaoca/ragchat-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserRepo interface {
	// Upsert refreshes profile fields on every call but sets the role only
	// when the record is first created. The auth path never lowers a role.
	Upsert(ctx context.Context, claims types.IdentityClaims, provider, initialRole string) (*types.User, error)
	Get(ctx context.Context, id string) (*types.User, error)
	Paginate(ctx context.Context, offset, limit int64) ([]*types.User, bool, error)
	UpdateRole(ctx context.Context, id, role string) (*types.User, error)
}

type userRepo struct {
	collection *mongo.Collection
}

func NewUserRepo(collection *mongo.Collection) UserRepo {
	return &userRepo{
		collection: collection,
	}
}

func (r *userRepo) Upsert(ctx context.Context, claims types.IdentityClaims, provider, initialRole string) (*types.User, error) {
	displayName := claims.Name
	if displayName == "" {
		displayName = claims.Email
	}
	if displayName == "" {
		displayName = claims.Subject
	}

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"display_name": displayName,
			"email":        claims.Email,
			"photo":        claims.Picture,
			"provider":     provider,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"_id":        claims.Subject,
			"role":       initialRole,
			"created_at": now,
		},
	}

	var user types.User
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": claims.Subject},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Get(ctx context.Context, id string) (*types.User, error) {
	var user types.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Paginate(ctx context.Context, offset, limit int64) ([]*types.User, bool, error) {
	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(offset).
			SetLimit(limit+1))
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	var users []*types.User
	for cursor.Next(ctx) {
		var user types.User
		if err := cursor.Decode(&user); err != nil {
			return nil, false, err
		}
		users = append(users, &user)
	}
	if err := cursor.Err(); err != nil {
		return nil, false, err
	}

	hasNextPage := int64(len(users)) > limit
	if hasNextPage {
		users = users[:limit]
	}
	return users, hasNextPage, nil
}

func (r *userRepo) UpdateRole(ctx context.Context, id, role string) (*types.User, error) {
	var user types.User
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
