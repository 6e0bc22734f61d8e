package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/middleware"
	"github.com/tieubaoca/ragchat-be/service"
	"github.com/tieubaoca/ragchat-be/types"
	"github.com/tieubaoca/ragchat-be/validation"
)

type ChatHandler struct {
	chat *service.ChatService
	ws   *service.WebsocketService
}

func NewChatHandler(chat *service.ChatService, ws *service.WebsocketService) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		ws:   ws,
	}
}

// StreamChat handles POST /chat. Validation happens before any header is
// written; once the stream starts, failures become in-stream error events.
func (h *ChatHandler) StreamChat(c *gin.Context) {
	var req types.ChatRequest
	if !validation.Bind(c, validation.Target{Body: &req}) {
		return
	}
	user := middleware.CurrentUser(c)
	sink := NewSSEWriter(c)
	h.chat.StreamChat(c.Request.Context(), user, &req, sink)
}

// StreamChatWS handles GET /chat/ws, the websocket flavor of the same
// contract.
func (h *ChatHandler) StreamChatWS(c *gin.Context) {
	user := middleware.CurrentUser(c)
	h.ws.HandleConnection(c.Writer, c.Request, user)
}
