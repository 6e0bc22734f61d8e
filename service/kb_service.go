package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/ragchat-be/database"
	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/repository"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/utils"
	"go.uber.org/zap"
)

// keyedMutex serializes work per key so concurrent writes to the same
// document cannot interleave their content and vector updates. Entries are
// refcounted and dropped once the last holder releases, so the map does not
// grow with every document ever touched.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// KnowledgeBaseService owns knowledge bases and their documents, and keeps
// the vector index in step with the document store. Embedding is best-effort:
// a document whose vector could not be written stays queryable through the
// CRUD API with a nil embeddedAt, and reindexing picks it up later.
type KnowledgeBaseService struct {
	kbs       repository.KnowledgeBaseRepo
	docs      repository.DocumentRepo
	index     database.VectorIndex
	embedder  types.Embedder
	retriever *RetrieverService
	docLocks  *keyedMutex
}

func NewKnowledgeBaseService(
	kbs repository.KnowledgeBaseRepo,
	docs repository.DocumentRepo,
	index database.VectorIndex,
	embedder types.Embedder,
	retriever *RetrieverService,
) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		kbs:       kbs,
		docs:      docs,
		index:     index,
		embedder:  embedder,
		retriever: retriever,
		docLocks:  newKeyedMutex(),
	}
}

func (s *KnowledgeBaseService) CreateKb(ctx context.Context, ownerID string, req *types.CreateKbRequest) (*types.KnowledgeBase, error) {
	isPublic := false
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	return s.kbs.Create(ctx, ownerID, req.Name, req.Description, isPublic)
}

func (s *KnowledgeBaseService) GetKb(ctx context.Context, id, callerID string) (*types.KnowledgeBase, error) {
	return s.kbs.FindReadable(ctx, id, callerID)
}

func (s *KnowledgeBaseService) ListKbs(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.KnowledgeBase, error) {
	return s.kbs.List(ctx, ownerID, before, limit)
}

func (s *KnowledgeBaseService) UpdateKb(ctx context.Context, id, ownerID string, req *types.UpdateKbRequest) (*types.KnowledgeBase, error) {
	kb, err := s.kbs.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		kb.Name = *req.Name
	}
	if req.Description != nil {
		kb.Description = *req.Description
	}
	if req.IsPublic != nil {
		kb.IsPublic = *req.IsPublic
	}
	if err := s.kbs.Update(ctx, kb); err != nil {
		return nil, err
	}
	return kb, nil
}

// DeleteKb removes the knowledge base, then cascades to its documents and
// their vectors. Cascade failures are logged, not surfaced: the base itself
// is already gone and the orphans are unreachable through the API.
func (s *KnowledgeBaseService) DeleteKb(ctx context.Context, id, ownerID string) error {
	if err := s.kbs.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.docs.DeleteByKb(ctx, id); err != nil {
		logger.Error("cascade document delete failed", zap.String("kb_id", id), zap.Error(err))
	}
	if err := s.index.DeleteKbVectors(ctx, id); err != nil {
		logger.Error("cascade vector delete failed", zap.String("kb_id", id), zap.Error(err))
	}
	return nil
}

// CreateDocuments inserts a batch into an owned knowledge base and embeds
// each inserted document. The reported count is documents inserted, not
// documents embedded.
func (s *KnowledgeBaseService) CreateDocuments(ctx context.Context, kbID, ownerID string, items []types.DocumentInput) (int, error) {
	if _, err := s.kbs.FindOwned(ctx, kbID, ownerID); err != nil {
		return 0, err
	}

	inserted := 0
	for _, item := range items {
		now := time.Now()
		doc := &types.Document{
			ID:        uuid.NewString(),
			KbID:      kbID,
			Question:  item.Question,
			Answer:    item.Answer,
			Content:   utils.DeriveDocumentContent(item.Question, item.Answer),
			Extra:     item.Extra,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.docs.Insert(ctx, doc); err != nil {
			// Earlier inserts in the batch stay; report what made it in.
			if inserted > 0 {
				logger.Error("document batch insert stopped early",
					zap.String("kb_id", kbID), zap.Int("inserted", inserted), zap.Error(err))
				return inserted, nil
			}
			return 0, err
		}
		inserted++
		s.embedDocument(ctx, doc)
	}
	return inserted, nil
}

func (s *KnowledgeBaseService) GetDocument(ctx context.Context, kbID, docID, callerID string) (*types.Document, error) {
	if _, err := s.kbs.FindReadable(ctx, kbID, callerID); err != nil {
		return nil, err
	}
	return s.docs.GetInKb(ctx, kbID, docID)
}

// GetDocumentByID resolves a document without its knowledge base being named,
// subject to the parent base's visibility.
func (s *KnowledgeBaseService) GetDocumentByID(ctx context.Context, docID, callerID string) (*types.Document, error) {
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if _, err := s.kbs.FindReadable(ctx, doc.KbID, callerID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *KnowledgeBaseService) ListDocuments(ctx context.Context, kbID, callerID string, offset, limit int64) ([]types.Document, bool, error) {
	if _, err := s.kbs.FindReadable(ctx, kbID, callerID); err != nil {
		return nil, false, err
	}
	return s.docs.List(ctx, kbID, offset, limit)
}

// UpdateDocument applies the provided fields, re-derives the content and
// re-embeds. The content write always precedes the vector write so a crash
// between the two leaves a stale vector, never stale content.
func (s *KnowledgeBaseService) UpdateDocument(ctx context.Context, kbID, docID, ownerID string, req *types.UpdateDocumentRequest) (*types.Document, error) {
	if _, err := s.kbs.FindOwned(ctx, kbID, ownerID); err != nil {
		return nil, err
	}

	unlock := s.docLocks.lock(docID)
	defer unlock()

	doc, err := s.docs.GetInKb(ctx, kbID, docID)
	if err != nil {
		return nil, err
	}
	if req.Question != nil {
		doc.Question = *req.Question
	}
	if req.Answer != nil {
		doc.Answer = *req.Answer
	}
	if req.Extra != nil {
		doc.Extra = req.Extra
	}
	doc.Content = utils.DeriveDocumentContent(doc.Question, doc.Answer)
	doc.EmbeddedAt = nil

	if err := s.docs.Update(ctx, doc); err != nil {
		return nil, err
	}
	s.embedLocked(ctx, doc)
	return doc, nil
}

func (s *KnowledgeBaseService) DeleteDocument(ctx context.Context, kbID, docID, ownerID string) error {
	if _, err := s.kbs.FindOwned(ctx, kbID, ownerID); err != nil {
		return err
	}

	unlock := s.docLocks.lock(docID)
	defer unlock()

	if err := s.docs.Delete(ctx, kbID, docID); err != nil {
		return err
	}
	if err := s.index.DeleteDocumentVector(ctx, docID); err != nil {
		logger.Error("vector delete failed", zap.String("doc_id", docID), zap.Error(err))
	}
	return nil
}

// Search runs a similarity query against a readable knowledge base.
func (s *KnowledgeBaseService) Search(ctx context.Context, kbID, callerID, query string, limit int) ([]types.SearchHit, error) {
	if _, err := s.kbs.FindReadable(ctx, kbID, callerID); err != nil {
		return nil, err
	}
	if s.retriever == nil {
		return nil, nil
	}
	return s.retriever.Search(ctx, kbID, query, limit), nil
}

// ReindexAll re-embeds every stored document. Used by the reindex command
// after a schema reset or an embedding model change.
func (s *KnowledgeBaseService) ReindexAll(ctx context.Context) (int, error) {
	docs, err := s.docs.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	indexed := 0
	for i := range docs {
		if s.embedDocument(ctx, &docs[i]) {
			indexed++
		}
	}
	return indexed, nil
}

// embedDocument takes the per-document lock and writes the vector.
func (s *KnowledgeBaseService) embedDocument(ctx context.Context, doc *types.Document) bool {
	unlock := s.docLocks.lock(doc.ID)
	defer unlock()
	return s.embedLocked(ctx, doc)
}

func (s *KnowledgeBaseService) embedLocked(ctx context.Context, doc *types.Document) bool {
	if s.embedder == nil || doc.Content == "" {
		return false
	}
	vector, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		logger.Warn("document embedding failed", zap.String("doc_id", doc.ID), zap.Error(err))
		return false
	}
	if err := s.index.UpsertDocumentVector(ctx, doc.ID, doc.KbID, doc.Content, vector); err != nil {
		logger.Warn("vector upsert failed", zap.String("doc_id", doc.ID), zap.Error(err))
		return false
	}
	now := time.Now()
	if err := s.docs.SetEmbeddedAt(ctx, doc.ID, now); err != nil {
		logger.Warn("embedded_at update failed", zap.String("doc_id", doc.ID), zap.Error(err))
	}
	doc.EmbeddedAt = &now
	return true
}
