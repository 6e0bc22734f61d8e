package types

import "encoding/json"

type IDParam struct {
	ID string `uri:"id" binding:"required"`
}

type DocIDParam struct {
	ID    string `uri:"id" binding:"required"`
	DocID string `uri:"docId" binding:"required"`
}

// CursorListQuery pages by createdAt. Cursor is an RFC3339 timestamp.
type CursorListQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=50"`
	Cursor string `form:"cursor"`
}

type MessageListQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Cursor string `form:"cursor"`
}

type OffsetListQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

type UpsertConversationRequest struct {
	Title string `json:"title" binding:"omitempty,min=1,max=100"`
}

type CreateKbRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
	IsPublic    *bool  `json:"isPublic"`
}

type UpdateKbRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsPublic    *bool   `json:"isPublic"`
}

// DocumentInput is one document payload. Content is accepted for
// compatibility but ignored; the stored content is derived from
// Question/Answer on the server.
type DocumentInput struct {
	Question string          `json:"question" binding:"omitempty,max=2000"`
	Answer   string          `json:"answer" binding:"omitempty,max=8000"`
	Content  string          `json:"content"`
	Extra    json.RawMessage `json:"extra"`
}

type CreateDocumentsRequest struct {
	Items []DocumentInput `json:"items" binding:"required,min=1,max=200,dive"`
}

type UpdateDocumentRequest struct {
	Question *string         `json:"question" binding:"omitempty,max=2000"`
	Answer   *string         `json:"answer" binding:"omitempty,max=8000"`
	Extra    json.RawMessage `json:"extra"`
}

type KbSearchQuery struct {
	Q     string `form:"q" binding:"required,min=1,max=512"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=20"`
}

type PatchUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=USER ADMIN"`
}
