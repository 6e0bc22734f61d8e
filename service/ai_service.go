package service

import (
	"context"

	"github.com/tieubaoca/ragchat-be/config"
	"github.com/tieubaoca/ragchat-be/types"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = float32(0.2)
)

// NewAIServiceFromConfig selects the chat backend and embedder from the
// configured credentials. With no credential at all the simulated stream is
// used and the embedder is nil, which disables retrieval and indexing.
func NewAIServiceFromConfig(ctx context.Context, cfg *config.Config) (types.AIService, types.Embedder, error) {
	switch {
	case cfg.AI.OpenAIAPIKey != "":
		svc := NewOpenAIService(cfg.AI.Endpoint, cfg.AI.OpenAIAPIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
		return svc, svc, nil
	case cfg.AI.GeminiAPIKey != "":
		svc, err := NewGeminiService(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model, cfg.AI.EmbeddingModel)
		if err != nil {
			return nil, nil, err
		}
		return svc, svc, nil
	default:
		return NewSimulatedAIService(), nil, nil
	}
}
