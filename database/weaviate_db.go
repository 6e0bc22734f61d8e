package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/tieubaoca/ragchat-be/config"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

var (
	KB_DOCUMENT_CLASS        = "KbDocument"
	KB_DOCUMENT_CLASS_OBJECT = &models.Class{
		Class: KB_DOCUMENT_CLASS,
		Properties: []*models.Property{
			{Name: "kbId", DataType: []string{"text"}},
			{Name: "docId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
		},
		// Vectors are supplied by the application, never by a weaviate module.
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
	}
)

type WeaviateStore struct {
	client *weaviate.Client
}

func NewWeaviateStore(cfg config.WeaviateConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.Contains(cfg.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Host, scheme+"://")
	weaviateConfig := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		weaviateConfig.AuthConfig = auth.ApiKey{
			Value: cfg.APIKey,
		}
	}

	client, err := weaviate.NewClient(weaviateConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	store := &WeaviateStore{client: client}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *WeaviateStore) ensureSchema(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	for _, class := range schema.Classes {
		if class.Class == KB_DOCUMENT_CLASS {
			return nil
		}
	}
	err = s.client.Schema().ClassCreator().WithClass(KB_DOCUMENT_CLASS_OBJECT).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create %s class: %w", KB_DOCUMENT_CLASS, err)
	}
	return nil
}

// ResetSchema drops and recreates the document class. Used by the reindex
// command before re-embedding everything.
func (s *WeaviateStore) ResetSchema(ctx context.Context) error {
	err := s.client.Schema().ClassDeleter().WithClassName(KB_DOCUMENT_CLASS).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s class: %w", KB_DOCUMENT_CLASS, err)
	}
	err = s.client.Schema().ClassCreator().WithClass(KB_DOCUMENT_CLASS_OBJECT).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create %s class: %w", KB_DOCUMENT_CLASS, err)
	}
	return nil
}

// UpsertDocumentVector stores the vector for one document, keyed by the
// document's own ID so repeated writes replace rather than accumulate.
func (s *WeaviateStore) UpsertDocumentVector(ctx context.Context, docID, kbID, content string, vector []float32) error {
	// Delete-then-create: the data API has no native upsert by ID.
	_ = s.client.Data().Deleter().
		WithClassName(KB_DOCUMENT_CLASS).
		WithID(docID).
		Do(ctx)

	_, err := s.client.Data().Creator().
		WithClassName(KB_DOCUMENT_CLASS).
		WithID(docID).
		WithProperties(map[string]interface{}{
			"kbId":    kbID,
			"docId":   docID,
			"content": content,
		}).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert document vector: %w", err)
	}
	return nil
}

func (s *WeaviateStore) DeleteDocumentVector(ctx context.Context, docID string) error {
	return s.client.Data().Deleter().
		WithClassName(KB_DOCUMENT_CLASS).
		WithID(docID).
		Do(ctx)
}

func (s *WeaviateStore) DeleteKbVectors(ctx context.Context, kbID string) error {
	where := filters.Where().
		WithPath([]string{"kbId"}).
		WithOperator(filters.Equal).
		WithValueString(kbID)
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(KB_DOCUMENT_CLASS).
		WithWhere(where).
		Do(ctx)
	return err
}

// SearchSimilar returns the top documents of one knowledge base by
// descending similarity to the query vector.
func (s *WeaviateStore) SearchSimilar(ctx context.Context, vector []float32, kbID string, limit int) ([]types.SearchHit, error) {
	fields := []graphql.Field{
		{Name: "docId"},
		{Name: "content"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}
	nearVector := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)
	where := filters.Where().
		WithPath([]string{"kbId"}).
		WithOperator(filters.Equal).
		WithValueString(kbID)

	result, err := s.client.GraphQL().Get().
		WithClassName(KB_DOCUMENT_CLASS).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if result.Errors != nil {
		return nil, fmt.Errorf("similarity search failed: %v", result.Errors[0].Message)
	}

	var hits []types.SearchHit
	if data, ok := result.Data["Get"].(map[string]interface{})[KB_DOCUMENT_CLASS].([]interface{}); ok {
		for _, item := range data {
			doc, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			docID, _ := doc["docId"].(string)
			if docID == "" {
				continue
			}
			hit := types.SearchHit{DocID: docID}
			hit.Content, _ = doc["content"].(string)
			if additional, ok := doc["_additional"].(map[string]interface{}); ok {
				if certainty, ok := additional["certainty"].(float64); ok {
					hit.Score = float32(certainty)
				}
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}
