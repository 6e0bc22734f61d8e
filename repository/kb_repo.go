package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/ragchat-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type KnowledgeBaseRepo interface {
	Create(ctx context.Context, ownerID, name, description string, isPublic bool) (*types.KnowledgeBase, error)
	FindOwned(ctx context.Context, id, ownerID string) (*types.KnowledgeBase, error)
	// FindReadable matches the knowledge base when the caller owns it or it
	// is public, in a single query.
	FindReadable(ctx context.Context, id, callerID string) (*types.KnowledgeBase, error)
	List(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.KnowledgeBase, error)
	Update(ctx context.Context, kb *types.KnowledgeBase) error
	Delete(ctx context.Context, id, ownerID string) error
}

type kbRepo struct {
	collection *mongo.Collection
}

func NewKnowledgeBaseRepo(collection *mongo.Collection) KnowledgeBaseRepo {
	return &kbRepo{
		collection: collection,
	}
}

func (r *kbRepo) Create(ctx context.Context, ownerID, name, description string, isPublic bool) (*types.KnowledgeBase, error) {
	now := time.Now()
	kb := &types.KnowledgeBase{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.collection.InsertOne(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

func (r *kbRepo) FindOwned(ctx context.Context, id, ownerID string) (*types.KnowledgeBase, error) {
	return r.findOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
}

func (r *kbRepo) FindReadable(ctx context.Context, id, callerID string) (*types.KnowledgeBase, error) {
	return r.findOne(ctx, bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"owner_id": callerID},
			bson.M{"is_public": true},
		},
	})
}

func (r *kbRepo) findOne(ctx context.Context, filter bson.M) (*types.KnowledgeBase, error) {
	var kb types.KnowledgeBase
	err := r.collection.FindOne(ctx, filter).Decode(&kb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &kb, nil
}

func (r *kbRepo) List(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.KnowledgeBase, error) {
	filter := bson.M{"owner_id": ownerID}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}
	cursor, err := r.collection.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var kbs []types.KnowledgeBase
	for cursor.Next(ctx) {
		var kb types.KnowledgeBase
		if err := cursor.Decode(&kb); err != nil {
			return nil, err
		}
		kbs = append(kbs, kb)
	}
	return kbs, cursor.Err()
}

func (r *kbRepo) Update(ctx context.Context, kb *types.KnowledgeBase) error {
	kb.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": kb.ID, "owner_id": kb.OwnerID}, kb)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *kbRepo) Delete(ctx context.Context, id, ownerID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}
