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

type DocumentRepo interface {
	Insert(ctx context.Context, doc *types.Document) error
	Get(ctx context.Context, docID string) (*types.Document, error)
	GetInKb(ctx context.Context, kbID, docID string) (*types.Document, error)
	List(ctx context.Context, kbID string, offset, limit int64) ([]types.Document, bool, error)
	ListAll(ctx context.Context) ([]types.Document, error)
	Update(ctx context.Context, doc *types.Document) error
	SetEmbeddedAt(ctx context.Context, docID string, at time.Time) error
	Delete(ctx context.Context, kbID, docID string) error
	DeleteByKb(ctx context.Context, kbID string) error
}

type documentRepo struct {
	collection *mongo.Collection
}

func NewDocumentRepo(collection *mongo.Collection) DocumentRepo {
	return &documentRepo{
		collection: collection,
	}
}

func (r *documentRepo) Insert(ctx context.Context, doc *types.Document) error {
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}

func (r *documentRepo) Get(ctx context.Context, docID string) (*types.Document, error) {
	return r.findOne(ctx, bson.M{"_id": docID})
}

func (r *documentRepo) GetInKb(ctx context.Context, kbID, docID string) (*types.Document, error) {
	return r.findOne(ctx, bson.M{"_id": docID, "kb_id": kbID})
}

func (r *documentRepo) findOne(ctx context.Context, filter bson.M) (*types.Document, error) {
	var doc types.Document
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, kbID string, offset, limit int64) ([]types.Document, bool, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"kb_id": kbID},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetSkip(offset).
			SetLimit(limit+1))
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	var docs []types.Document
	for cursor.Next(ctx) {
		var doc types.Document
		if err := cursor.Decode(&doc); err != nil {
			return nil, false, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, false, err
	}

	hasNextPage := int64(len(docs)) > limit
	if hasNextPage {
		docs = docs[:limit]
	}
	return docs, hasNextPage, nil
}

func (r *documentRepo) ListAll(ctx context.Context) ([]types.Document, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []types.Document
	for cursor.Next(ctx) {
		var doc types.Document
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

func (r *documentRepo) Update(ctx context.Context, doc *types.Document) error {
	doc.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": doc.ID, "kb_id": doc.KbID}, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *documentRepo) SetEmbeddedAt(ctx context.Context, docID string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": docID},
		bson.M{"$set": bson.M{"embedded_at": at}})
	return err
}

func (r *documentRepo) Delete(ctx context.Context, kbID, docID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": docID, "kb_id": kbID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *documentRepo) DeleteByKb(ctx context.Context, kbID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"kb_id": kbID})
	return err
}
