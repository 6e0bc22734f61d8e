package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/ragchat-be/types"
)

// SSEWriter streams chat events as server-sent events. Every event is one
// "data: <json>\n\n" block flushed immediately; event types are carried in
// the payload, not in SSE event names, so EventSource and plain fetch
// readers both work.
type SSEWriter struct {
	w gin.ResponseWriter
}

// NewSSEWriter sets the streaming headers and commits the 200. After this
// point errors can only be reported in-stream.
func NewSSEWriter(c *gin.Context) *SSEWriter {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Stops nginx from buffering the stream.
	h.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()
	return &SSEWriter{w: c.Writer}
}

func (s *SSEWriter) send(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

type deltaEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type metadataEvent struct {
	Type      string            `json:"type"`
	Citations []types.Citation  `json:"citations"`
	Usage     *types.TokenUsage `json:"usage"`
}

type doneEvent struct {
	Type           string `json:"type"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (s *SSEWriter) Delta(content string) error {
	return s.send(deltaEvent{Type: "delta", Content: content})
}

func (s *SSEWriter) Metadata(citations []types.Citation, usage *types.TokenUsage) error {
	if citations == nil {
		citations = []types.Citation{}
	}
	return s.send(metadataEvent{Type: "metadata", Citations: citations, Usage: usage})
}

func (s *SSEWriter) Done(messageID, conversationID string) error {
	return s.send(doneEvent{Type: "done", MessageID: messageID, ConversationID: conversationID})
}

func (s *SSEWriter) Error(message string) error {
	return s.send(errorEvent{Type: "error", Message: message})
}

var _ types.StreamSink = (*SSEWriter)(nil)
