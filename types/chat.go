package types

import (
	"context"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUserMsg   = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Conversation groups messages and is owned exclusively by OwnerID.
type Conversation struct {
	ID        string    `bson:"_id" json:"id"`
	OwnerID   string    `bson:"owner_id" json:"ownerId"`
	Title     string    `bson:"title,omitempty" json:"title,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Message is append-only; creation order is the source of truth for replay.
type Message struct {
	ID             string     `bson:"_id" json:"id"`
	ConversationID string     `bson:"conversation_id" json:"conversationId"`
	Role           string     `bson:"role" json:"role"`
	Content        string     `bson:"content" json:"content"`
	Reference      string     `bson:"reference" json:"reference"`
	Citations      []Citation `bson:"citations,omitempty" json:"citations,omitempty"`
	CreatedAt      time.Time  `bson:"created_at" json:"createdAt"`
}

// Citation records which retrieved document informed part of an answer.
type Citation struct {
	ID    string  `bson:"id" json:"id"`
	Score float32 `bson:"score" json:"score"`
}

// ChatMessage is one role-tagged turn in a request or model history.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=system user assistant tool"`
	Content string `json:"content" binding:"required,min=1"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	ConversationID string        `json:"conversationId"`
	KbID           string        `json:"kbId"`
	Messages       []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	Model          string        `json:"model"`
	Temperature    *float32      `json:"temperature" binding:"omitempty,gte=0,lte=2"`
}

// ChatOptions carries per-call model configuration.
type ChatOptions struct {
	Model       string
	Temperature *float32
}

// TokenUsage is reported in the metadata event when the backend provides it.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// StreamHandler receives each text delta in emission order. Returning an
// error stops the stream.
type StreamHandler func(delta string) error

// AIService is the model backend boundary. Concatenating every delta passed
// to the handler yields the full response text.
type AIService interface {
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions, handler StreamHandler) error
}

// Embedder turns text into a vector. Documents and queries must share one
// embedding scheme for similarity scores to be comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// StreamSink receives the events of one chat turn. Exactly one of Done or
// Error terminates the turn.
type StreamSink interface {
	Delta(content string) error
	Metadata(citations []Citation, usage *TokenUsage) error
	Done(messageID, conversationID string) error
	Error(message string) error
}
