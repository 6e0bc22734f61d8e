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

type AuditLogRepo interface {
	Insert(ctx context.Context, entry *types.AuditLogEntry) error
	List(ctx context.Context, offset, limit int64) ([]types.AuditLogEntry, bool, error)
}

type auditLogRepo struct {
	collection *mongo.Collection
}

func NewAuditLogRepo(collection *mongo.Collection) AuditLogRepo {
	return &auditLogRepo{
		collection: collection,
	}
}

func (r *auditLogRepo) Insert(ctx context.Context, entry *types.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *auditLogRepo) List(ctx context.Context, offset, limit int64) ([]types.AuditLogEntry, bool, error) {
	cursor, err := r.collection.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(offset).
			SetLimit(limit+1))
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	var entries []types.AuditLogEntry
	for cursor.Next(ctx) {
		var entry types.AuditLogEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, false, err
		}
		entries = append(entries, entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, false, err
	}

	hasNextPage := int64(len(entries)) > limit
	if hasNextPage {
		entries = entries[:limit]
	}
	return entries, hasNextPage, nil
}
