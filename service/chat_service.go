package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/repository"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/utils"
	"go.uber.org/zap"
)

const (
	maxTitleRunes = 50
	defaultTitle  = "New conversation"

	userReference      = "user"
	assistantReference = "assistant"

	// The client only ever learns that the turn failed, never why.
	genericChatError = "Chat failed"

	baseSystemPrompt = "You are a helpful assistant. Answer clearly and concisely."
)

// ChatService coordinates one chat turn end to end: conversation bootstrap,
// message persistence, optional retrieval, model streaming and final
// persistence. A failure in any stage emits a single error event and never
// rolls back what was already persisted.
type ChatService struct {
	conversations repository.ConversationRepo
	messages      repository.MessageRepo
	kbs           repository.KnowledgeBaseRepo
	ai            types.AIService
	// retriever is nil when no model/embedding backend is configured, which
	// disables context retrieval entirely.
	retriever *RetrieverService
}

func NewChatService(
	conversations repository.ConversationRepo,
	messages repository.MessageRepo,
	kbs repository.KnowledgeBaseRepo,
	ai types.AIService,
	retriever *RetrieverService,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		kbs:           kbs,
		ai:            ai,
		retriever:     retriever,
	}
}

// StreamChat runs one chat turn against sink. It always terminates the sink
// with exactly one done or error event, except when the client is already
// gone, in which case nothing further is written.
func (s *ChatService) StreamChat(ctx context.Context, user *types.User, req *types.ChatRequest, sink types.StreamSink) {
	conv, err := s.bootstrap(ctx, user, req)
	if err != nil {
		s.fail(sink, "bootstrap", err)
		return
	}

	// The user's input is made durable before any model call.
	lastUser := lastUserMessage(req.Messages)
	if lastUser != "" {
		if _, err := s.messages.Append(ctx, conv.ID, types.RoleUserMsg, lastUser, userReference, nil); err != nil {
			s.fail(sink, "persist user message", err)
			return
		}
		if err := s.conversations.Touch(ctx, conv.ID); err != nil {
			logger.Warn("touch conversation failed", zap.String("conversation_id", conv.ID), zap.Error(err))
		}
	}

	citations, contextBlock := s.retrieve(ctx, user, req.KbID, lastUser)

	history := make([]types.ChatMessage, 0, len(req.Messages)+1)
	history = append(history, types.ChatMessage{
		Role:    types.RoleSystem,
		Content: systemPrompt(contextBlock),
	})
	history = append(history, req.Messages...)

	var assistant strings.Builder
	streamErr := s.ai.ChatStream(ctx, history,
		types.ChatOptions{Model: req.Model, Temperature: req.Temperature},
		func(delta string) error {
			assistant.WriteString(delta)
			return sink.Delta(delta)
		})
	if streamErr != nil {
		if ctx.Err() != nil {
			// Client disconnected mid-stream: keep whatever was streamed so
			// far, write nothing more to the closed connection.
			s.persistPartial(ctx, conv.ID, assistant.String(), citations)
			return
		}
		s.fail(sink, "model stream", streamErr)
		return
	}

	saved, err := s.messages.Append(ctx, conv.ID, types.RoleAssistant, assistant.String(), assistantReference, citations)
	if err != nil {
		s.fail(sink, "persist assistant message", err)
		return
	}
	if err := s.conversations.Touch(ctx, conv.ID); err != nil {
		logger.Warn("touch conversation failed", zap.String("conversation_id", conv.ID), zap.Error(err))
	}

	if err := sink.Metadata(citations, nil); err != nil {
		return
	}
	if err := sink.Done(saved.ID, conv.ID); err != nil {
		logger.Warn("write done event failed", zap.Error(err))
	}
}

// bootstrap resolves the conversation for this turn: a supplied identifier
// must belong to the caller; a missing identifier creates a fresh
// conversation titled after the latest user message.
func (s *ChatService) bootstrap(ctx context.Context, user *types.User, req *types.ChatRequest) (*types.Conversation, error) {
	if req.ConversationID != "" {
		return s.conversations.FindOwned(ctx, req.ConversationID, user.ID)
	}
	title := utils.TruncateRunes(lastUserMessage(req.Messages), maxTitleRunes)
	if title == "" {
		title = defaultTitle
	}
	return s.conversations.Create(ctx, user.ID, title)
}

// retrieve returns citations and a bounded context block, or nothing at all.
// Every failure here downgrades silently: retrieval never aborts a turn.
func (s *ChatService) retrieve(ctx context.Context, user *types.User, kbID, query string) ([]types.Citation, string) {
	if kbID == "" || query == "" || s.retriever == nil {
		return nil, ""
	}
	if _, err := s.kbs.FindReadable(ctx, kbID, user.ID); err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			logger.Warn("kb lookup failed", zap.String("kb_id", kbID), zap.Error(err))
		}
		return nil, ""
	}

	hits := s.retriever.Search(ctx, kbID, query, DefaultTopK)
	if len(hits) == 0 {
		return nil, ""
	}

	citations := make([]types.Citation, 0, len(hits))
	passages := make([]string, 0, len(hits))
	for _, hit := range hits {
		citations = append(citations, types.Citation{ID: hit.DocID, Score: hit.Score})
		passages = append(passages, hit.Content)
	}
	block := utils.TruncateRunes(strings.Join(passages, "\n---\n"), MaxContextRunes)
	return citations, block
}

func (s *ChatService) persistPartial(ctx context.Context, conversationID, content string, citations []types.Citation) {
	if content == "" {
		return
	}
	// The request context is already canceled; the write gets its own bound.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if _, err := s.messages.Append(persistCtx, conversationID, types.RoleAssistant, content, assistantReference, citations); err != nil {
		logger.Error("persist partial assistant message failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

func (s *ChatService) fail(sink types.StreamSink, stage string, err error) {
	logger.Error("chat turn failed", zap.String("stage", stage), zap.Error(err))
	if err := sink.Error(genericChatError); err != nil {
		logger.Warn("write error event failed", zap.Error(err))
	}
}

func lastUserMessage(messages []types.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUserMsg {
			return messages[i].Content
		}
	}
	return ""
}

func systemPrompt(contextBlock string) string {
	if contextBlock == "" {
		return baseSystemPrompt
	}
	return baseSystemPrompt +
		"\nUse the following retrieved context when it is relevant to the question." +
		"\n\nContext:\n" + contextBlock
}

// Conversation CRUD consumed by the HTTP handlers.

func (s *ChatService) CreateConversation(ctx context.Context, ownerID, title string) (*types.Conversation, error) {
	return s.conversations.Create(ctx, ownerID, title)
}

func (s *ChatService) ListConversations(ctx context.Context, ownerID string, before time.Time, limit int64) ([]types.Conversation, error) {
	return s.conversations.List(ctx, ownerID, before, limit)
}

func (s *ChatService) GetConversation(ctx context.Context, id, ownerID string) (*types.Conversation, error) {
	return s.conversations.FindOwned(ctx, id, ownerID)
}

func (s *ChatService) RenameConversation(ctx context.Context, id, ownerID, title string) (*types.Conversation, error) {
	return s.conversations.UpdateTitle(ctx, id, ownerID, title)
}

// DeleteConversation removes the conversation and cascades to its messages.
func (s *ChatService) DeleteConversation(ctx context.Context, id, ownerID string) error {
	if err := s.conversations.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.messages.DeleteByConversation(ctx, id); err != nil {
		logger.Error("cascade message delete failed", zap.String("conversation_id", id), zap.Error(err))
	}
	return nil
}

func (s *ChatService) ListMessages(ctx context.Context, conversationID, ownerID string, after time.Time, limit int64) ([]types.Message, error) {
	if _, err := s.conversations.FindOwned(ctx, conversationID, ownerID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID, after, limit)
}
