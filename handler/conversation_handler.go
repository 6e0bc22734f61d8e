package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/middleware"
	"github.com/tieubaoca/ragchat-be/service"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/validation"
)

type ConversationHandler struct {
	chat *service.ChatService
}

func NewConversationHandler(chat *service.ChatService) *ConversationHandler {
	return &ConversationHandler{
		chat: chat,
	}
}

// List handles GET /conversations, newest first, cursor-paginated by
// creation time.
func (h *ConversationHandler) List(c *gin.Context) {
	var query types.CursorListQuery
	if !validation.Bind(c, validation.Target{Query: &query}) {
		return
	}
	before, ok := validation.ParseCursor(c, query.Cursor)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	convs, err := h.chat.ListConversations(c.Request.Context(), user.ID, before, limitOrDefault(query.Limit, defaultPageLimit))
	if err != nil {
		respondError(c, err)
		return
	}

	page := types.CursorPage{Items: convs}
	if convs == nil {
		page.Items = []types.Conversation{}
	}
	if len(convs) > 0 {
		page.NextCursor = convs[len(convs)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, page)
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req types.UpsertConversationRequest
	if !validation.Bind(c, validation.Target{Body: &req}) {
		return
	}
	user := middleware.CurrentUser(c)
	conv, err := h.chat.CreateConversation(c.Request.Context(), user.ID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (h *ConversationHandler) Get(c *gin.Context) {
	var params types.IDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user := middleware.CurrentUser(c)
	conv, err := h.chat.GetConversation(c.Request.Context(), params.ID, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	var params types.IDParam
	var req types.UpsertConversationRequest
	if !validation.Bind(c, validation.Target{URI: &params, Body: &req}) {
		return
	}
	user := middleware.CurrentUser(c)
	conv, err := h.chat.RenameConversation(c.Request.Context(), params.ID, user.ID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	var params types.IDParam
	if !validation.Bind(c, validation.Target{URI: &params}) {
		return
	}
	user := middleware.CurrentUser(c)
	if err := h.chat.DeleteConversation(c.Request.Context(), params.ID, user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages handles GET /conversations/:id/messages in creation order.
// The cursor means "strictly after", so replaying a conversation never
// repeats the message the cursor came from.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	var params types.IDParam
	var query types.MessageListQuery
	if !validation.Bind(c, validation.Target{URI: &params, Query: &query}) {
		return
	}
	after, ok := validation.ParseCursor(c, query.Cursor)
	if !ok {
		return
	}

	user := middleware.CurrentUser(c)
	messages, err := h.chat.ListMessages(c.Request.Context(), params.ID, user.ID, after, limitOrDefault(query.Limit, defaultMessageLimit))
	if err != nil {
		respondError(c, err)
		return
	}

	page := types.CursorPage{Items: messages}
	if messages == nil {
		page.Items = []types.Message{}
	}
	if len(messages) > 0 {
		page.NextCursor = messages[len(messages)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	c.JSON(http.StatusOK, page)
}
