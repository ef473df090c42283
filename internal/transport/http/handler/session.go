package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docuchat/internal/app"
	"docuchat/internal/model"
	"docuchat/internal/transport/http/response"
)

type SessionHandler struct {
	chatService *app.ChatService
}

type CreateSessionRequest struct {
	Title   string `json:"title" binding:"max=256"`
	Preview string `json:"preview" binding:"max=256"`
}

type UpdateSessionRequest struct {
	Title        *string `json:"title"`
	Preview      *string `json:"preview"`
	MessageCount *int    `json:"message_count"`
}

type AppendMessageRequest struct {
	SessionID   string         `json:"session_id" binding:"required"`
	Role        string         `json:"role" binding:"required"`
	Content     string         `json:"content" binding:"required"`
	Sources     []model.Source `json:"sources"`
	ClientToken string         `json:"client_token"`
}

func NewSessionHandler(chatService *app.ChatService) *SessionHandler {
	return &SessionHandler{chatService: chatService}
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.chatService.CreateSession(req.Title, req.Preview)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "create session failed")
		return
	}
	response.OK(c, session)
}

func (h *SessionHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	sessions, err := h.chatService.ListSessions(limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *SessionHandler) Get(c *gin.Context) {
	detail, err := h.chatService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodePersistence, "get session failed")
		}
		return
	}
	response.OK(c, detail)
}

func (h *SessionHandler) Update(c *gin.Context) {
	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	session, err := h.chatService.UpdateSessionMeta(c.Param("id"), app.UpdateSessionInput{
		Title:        req.Title,
		Preview:      req.Preview,
		MessageCount: req.MessageCount,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodePersistence, "update session failed")
		}
		return
	}
	response.OK(c, session)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.chatService.SoftDeleteSession(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session id")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodePersistence, "delete session failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_session_id": id})
}

func (h *SessionHandler) AppendMessage(c *gin.Context) {
	var req AppendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing required fields")
		return
	}

	msg, inserted, err := h.chatService.AppendMessage(c.Request.Context(), app.AppendMessageInput{
		SessionID:   req.SessionID,
		Role:        model.Role(req.Role),
		Content:     req.Content,
		Sources:     req.Sources,
		ClientToken: req.ClientToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing required fields")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodePersistence, "append message failed")
		}
		return
	}
	response.OK(c, gin.H{"message": msg, "inserted": inserted})
}
