package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type AskRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question" binding:"required"`
	TopK      int    `json:"top_k"`
	Stream    *bool  `json:"stream"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Ask answers a question over the corpus. With "stream": false the whole
// result comes back as one JSON envelope. Otherwise the answer is streamed
// over SSE: answer chunks as data events while generation runs, then a
// "sources" event with the retrieval hits, then a final "done" event with
// the full text and session id.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	input := app.AskInput{
		SessionID: req.SessionID,
		Question:  req.Question,
		TopK:      req.TopK,
	}

	if req.Stream != nil && !*req.Stream {
		h.askBlocking(c, input)
		return
	}
	h.askStreaming(c, input)
}

func (h *ChatHandler) askBlocking(c *gin.Context, input app.AskInput) {
	result, err := h.chatService.Ask(c.Request.Context(), input, nil)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "question is required")
		case errors.Is(err, app.ErrLLMConfig):
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "llm is not configured")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ask failed")
		}
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) askStreaming(c *gin.Context, input app.AskInput) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	result, err := h.chatService.Ask(c.Request.Context(), input, func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte(sseDataFrame(chunk))); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrLLMConfig):
			writeSSEEvent(c, flusher, "error", err.Error())
		case errors.Is(err, app.ErrSessionNotFound):
			writeSSEEvent(c, flusher, "error", "session not found")
		default:
			writeSSEEvent(c, flusher, "error", "ask failed")
		}
		return
	}

	if sources, marshalErr := json.Marshal(result.Hits); marshalErr == nil {
		writeSSEEvent(c, flusher, "sources", string(sources))
	}
	donePayload, _ := json.Marshal(gin.H{"session_id": result.SessionID, "answer": result.Answer})
	writeSSEEvent(c, flusher, "done", string(donePayload))
}

func writeSSEEvent(c *gin.Context, flusher http.Flusher, event, data string) {
	if _, err := c.Writer.Write([]byte(fmt.Sprintf("event: %s\n%s", event, sseDataFrame(data)))); err == nil {
		flusher.Flush()
	}
}

// sseDataFrame frames one chunk as an SSE data block. Each line of the
// chunk becomes its own "data:" line, so the receiver reassembles the exact
// text, newlines included.
func sseDataFrame(chunk string) string {
	chunk = strings.ReplaceAll(chunk, "\r\n", "\n")
	var b strings.Builder
	for _, line := range strings.Split(chunk, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}
