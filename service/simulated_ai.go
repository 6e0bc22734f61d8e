package service

import (
	"context"
	"time"

	"github.com/tieubaoca/ragchat-be/types"
)

// SimulatedNotice is streamed rune by rune when no model credential is
// configured, so clients still see a realistic streaming shape offline.
const SimulatedNotice = "No model backend is configured. " +
	"This is a simulated character-by-character stream for offline development and testing."

type SimulatedAIService struct {
	delay time.Duration
}

func NewSimulatedAIService() *SimulatedAIService {
	return &SimulatedAIService{delay: 10 * time.Millisecond}
}

func (s *SimulatedAIService) ChatStream(ctx context.Context, messages []types.ChatMessage, opts types.ChatOptions, handler types.StreamHandler) error {
	for _, r := range SimulatedNotice {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.delay):
		}
		if err := handler(string(r)); err != nil {
			return err
		}
	}
	return nil
}
