package service

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"github.com/tieubaoca/ragchat-be/types"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiService struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGeminiService(ctx context.Context, apiKey, model, embeddingModel string) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiService{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

func (s *GeminiService) ChatStream(ctx context.Context, messages []types.ChatMessage, opts types.ChatOptions, handler types.StreamHandler) error {
	if len(messages) == 0 {
		return errors.New("empty message history")
	}

	modelName := opts.Model
	if modelName == "" {
		modelName = s.model
	}
	model := s.client.GenerativeModel(modelName)
	if opts.Temperature != nil {
		model.SetTemperature(*opts.Temperature)
	} else {
		model.SetTemperature(DefaultTemperature)
	}

	// Gemini separates the system instruction from the turn history and
	// only knows "user" and "model" roles.
	var history []*genai.Content
	for _, msg := range messages[:len(messages)-1] {
		switch msg.Role {
		case types.RoleSystem:
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case types.RoleAssistant:
			history = append(history, &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
				Role:  "model",
			})
		default:
			history = append(history, &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
				Role:  "user",
			})
		}
	}

	chat := model.StartChat()
	chat.History = history

	iter := chat.SendMessageStream(ctx, genai.Text(messages[len(messages)-1].Content))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				text, ok := part.(genai.Text)
				if !ok || text == "" {
					continue
				}
				if err := handler(string(text)); err != nil {
					return err
				}
			}
		}
	}
}

func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(s.embeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil {
		return nil, errors.New("no embedding returned")
	}
	return res.Embedding.Values, nil
}
