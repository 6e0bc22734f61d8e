package database

import (
	"context"

	"github.com/tieubaoca/ragchat-be/types"
)

// VectorIndex is the embedding/similarity backend boundary. Vectors are
// computed by the caller so that documents and queries always share one
// embedding scheme.
type VectorIndex interface {
	UpsertDocumentVector(ctx context.Context, docID, kbID, content string, vector []float32) error
	DeleteDocumentVector(ctx context.Context, docID string) error
	DeleteKbVectors(ctx context.Context, kbID string) error
	SearchSimilar(ctx context.Context, vector []float32, kbID string, limit int) ([]types.SearchHit, error)
}
