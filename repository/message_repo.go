package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/ragchat-be/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MessageRepo interface {
	// Append creates a new immutable message. Messages are never updated.
	Append(ctx context.Context, conversationID, role, content, reference string, citations []types.Citation) (*types.Message, error)
	// ListByConversation returns messages in creation order. A non-zero
	// after timestamp means "strictly after".
	ListByConversation(ctx context.Context, conversationID string, after time.Time, limit int64) ([]types.Message, error)
	DeleteByConversation(ctx context.Context, conversationID string) error
}

type messageRepo struct {
	collection *mongo.Collection
}

func NewMessageRepo(collection *mongo.Collection) MessageRepo {
	return &messageRepo{
		collection: collection,
	}
}

func (r *messageRepo) Append(ctx context.Context, conversationID, role, content, reference string, citations []types.Citation) (*types.Message, error) {
	msg := &types.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Reference:      reference,
		Citations:      citations,
		CreatedAt:      time.Now(),
	}
	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string, after time.Time, limit int64) ([]types.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	if !after.IsZero() {
		filter["created_at"] = bson.M{"$gt": after}
	}
	cursor, err := r.collection.Find(ctx, filter,
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []types.Message
	for cursor.Next(ctx) {
		var msg types.Message
		if err := cursor.Decode(&msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, cursor.Err()
}

func (r *messageRepo) DeleteByConversation(ctx context.Context, conversationID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	return err
}
