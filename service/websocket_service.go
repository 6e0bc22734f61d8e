package service

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/ragchat-be/logger"
	"github.com/tieubaoca/ragchat-be/types"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second

	wsFrameChat = "chat"
	wsFramePing = "ping"
)

type wsFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebsocketService is the bidirectional chat transport. Each inbound "chat"
// frame runs one full chat turn; the stream events mirror the SSE contract
// frame for frame.
type WebsocketService struct {
	chat     *ChatService
	upgrader websocket.Upgrader
}

func NewWebsocketService(chat *ChatService, clientOrigin string) *WebsocketService {
	return &WebsocketService{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == clientOrigin
			},
		},
	}
}

// HandleConnection upgrades the request and serves chat turns until the
// client goes away. Turns run one at a time per connection.
func (s *WebsocketService) HandleConnection(w http.ResponseWriter, r *http.Request, user *types.User) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn}
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		switch frame.Type {
		case wsFramePing:
			sink.write(map[string]string{"type": "pong"})
		case wsFrameChat:
			var req types.ChatRequest
			if err := json.Unmarshal(frame.Payload, &req); err != nil || len(req.Messages) == 0 {
				sink.Error("Invalid chat payload")
				continue
			}
			s.chat.StreamChat(r.Context(), user, &req, sink)
		default:
			sink.Error("Unknown frame type")
		}
	}
}

// wsSink writes stream events as JSON frames. The mutex keeps turn events and
// pong frames from interleaving on the wire.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return s.conn.WriteJSON(v)
}

func (s *wsSink) Delta(content string) error {
	return s.write(map[string]any{"type": "delta", "content": content})
}

func (s *wsSink) Metadata(citations []types.Citation, usage *types.TokenUsage) error {
	if citations == nil {
		citations = []types.Citation{}
	}
	event := map[string]any{"type": "metadata", "citations": citations}
	if usage != nil {
		event["usage"] = usage
	}
	return s.write(event)
}

func (s *wsSink) Done(messageID, conversationID string) error {
	return s.write(map[string]any{
		"type":           "done",
		"messageId":      messageID,
		"conversationId": conversationID,
	})
}

func (s *wsSink) Error(message string) error {
	return s.write(map[string]any{"type": "error", "message": message})
}

var _ types.StreamSink = (*wsSink)(nil)
