package types

import (
	"encoding/json"
	"time"
)

// KnowledgeBase is readable by its owner, or by anyone when IsPublic.
type KnowledgeBase struct {
	ID          string    `bson:"_id" json:"id"`
	OwnerID     string    `bson:"owner_id" json:"ownerId"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	IsPublic    bool      `bson:"is_public" json:"isPublic"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// Document is one retrievable unit of knowledge-base content. Content is
// always server-derived from Question and Answer; EmbeddedAt is nil until the
// vector index holds a vector for it.
type Document struct {
	ID         string          `bson:"_id" json:"id"`
	KbID       string          `bson:"kb_id" json:"kbId"`
	Question   string          `bson:"question,omitempty" json:"question,omitempty"`
	Answer     string          `bson:"answer,omitempty" json:"answer,omitempty"`
	Content    string          `bson:"content" json:"content"`
	Extra      json.RawMessage `bson:"extra,omitempty" json:"extra,omitempty"`
	EmbeddedAt *time.Time      `bson:"embedded_at,omitempty" json:"embeddedAt,omitempty"`
	CreatedAt  time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `bson:"updated_at" json:"updatedAt"`
}

// SearchHit is one similarity-search result: the originating document, its
// score, and the indexed passage text.
type SearchHit struct {
	DocID   string  `json:"docId"`
	Score   float32 `json:"score"`
	Content string  `json:"content"`
}

// AuditLogEntry is append-only and written best-effort.
type AuditLogEntry struct {
	ID           string          `bson:"_id" json:"id"`
	ActorID      string          `bson:"actor_id" json:"actorId"`
	Action       string          `bson:"action" json:"action"`
	ResourceType string          `bson:"resource_type,omitempty" json:"resourceType,omitempty"`
	ResourceID   string          `bson:"resource_id,omitempty" json:"resourceId,omitempty"`
	Metadata     json.RawMessage `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt    time.Time       `bson:"created_at" json:"createdAt"`
}
