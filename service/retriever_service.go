package service

import (
	"context"

	"github.com/tieubaoca/ragchat-be/database"
	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/utils"
	"go.uber.org/zap"
)

const (
	DefaultTopK     = 5
	MaxQueryRunes   = 512
	MaxContextRunes = 4000
)

// RetrieverService answers "which passages of this knowledge base are
// relevant to this query". Retrieval is an enhancement, never a hard
// dependency: every internal failure degrades to an empty result.
type RetrieverService struct {
	embedder types.Embedder
	index    database.VectorIndex
}

func NewRetrieverService(embedder types.Embedder, index database.VectorIndex) *RetrieverService {
	return &RetrieverService{
		embedder: embedder,
		index:    index,
	}
}

// Search embeds the query with the same embedder used at indexing time and
// returns up to k hits scoped to the knowledge base. Callers are responsible
// for having checked read access to the knowledge base.
func (s *RetrieverService) Search(ctx context.Context, kbID, query string, k int) []types.SearchHit {
	if k <= 0 {
		k = DefaultTopK
	}
	query = utils.TruncateRunes(query, MaxQueryRunes)

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("retrieval embed failed", zap.String("kb_id", kbID), zap.Error(err))
		return nil
	}
	hits, err := s.index.SearchSimilar(ctx, vector, kbID, k)
	if err != nil {
		logger.Warn("retrieval search failed", zap.String("kb_id", kbID), zap.Error(err))
		return nil
	}
	return hits
}
