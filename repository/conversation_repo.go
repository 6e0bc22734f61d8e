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

type ConversationRepo interface {
	Create(ctx context.Context, ownerID, title string) (*types.Conversation, error)
	// FindOwned resolves id and ownership in a single query so a concurrent
	// delete cannot slip between an existence check and an ownership check.
	FindOwned(ctx context.Context, id, ownerID string) (*types.Conversation, error)
	List(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.Conversation, error)
	UpdateTitle(ctx context.Context, id, ownerID, title string) (*types.Conversation, error)
	Delete(ctx context.Context, id, ownerID string) error
	Touch(ctx context.Context, id string) error
}

type conversationRepo struct {
	collection *mongo.Collection
}

func NewConversationRepo(collection *mongo.Collection) ConversationRepo {
	return &conversationRepo{
		collection: collection,
	}
}

func (r *conversationRepo) Create(ctx context.Context, ownerID, title string) (*types.Conversation, error) {
	now := time.Now()
	conv := &types.Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.collection.InsertOne(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepo) FindOwned(ctx context.Context, id, ownerID string) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) List(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.Conversation, error) {
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

	var convs []types.Conversation
	for cursor.Next(ctx) {
		var conv types.Conversation
		if err := cursor.Decode(&conv); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, cursor.Err()
}

func (r *conversationRepo) UpdateTitle(ctx context.Context, id, ownerID, title string) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner_id": ownerID},
		bson.M{"$set": bson.M{"title": title, "updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) Delete(ctx context.Context, id, ownerID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *conversationRepo) Touch(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"updated_at": time.Now()}})
	return err
}
