package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/portal-service/internal/errs"
	"github.com/psds-microservice/portal-service/internal/kafka"
	"github.com/psds-microservice/portal-service/internal/middleware"
	"github.com/psds-microservice/portal-service/internal/relay"
	"github.com/psds-microservice/portal-service/internal/service"
)

type ChatHandler struct {
	svc      service.ChatServicer
	hub      *relay.Hub
	producer kafka.PortalEventProducer
}

func NewChatHandler(svc service.ChatServicer, hub *relay.Hub, producer kafka.PortalEventProducer) *ChatHandler {
	return &ChatHandler{svc: svc, hub: hub, producer: producer}
}

type createSessionRequest struct {
	ProjectID *uint64 `json:"project_id"`
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	session, err := h.svc.CreateSession(c.Request.Context(), id.UserID, req.ProjectID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.producer.ProducePortalEvent(c.Request.Context(), "session.created", map[string]interface{}{
		"session_id": int64(session.ID),
		"client_id":  int64(session.ClientID),
	})
	c.JSON(http.StatusCreated, session)
}

// ListSessions returns the caller's own sessions. Staff may inspect another
// client via ?client_id.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	clientID := id.UserID
	if v := c.Query("client_id"); v != "" {
		if !id.Role.IsStaff() {
			writeError(c, errs.ErrForbidden)
			return
		}
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
		clientID = parsed
	}
	sessions, err := h.svc.ListSessions(c.Request.Context(), clientID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	sessionID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.authorizeSession(c, sessionID); err != nil {
		writeError(c, err)
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), sessionID, id.UserID, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	// The row is committed; live delivery is best-effort from here on.
	h.hub.Publish(sessionID, msg)
	h.producer.ProducePortalEvent(c.Request.Context(), "message.created", map[string]interface{}{
		"message_id": int64(msg.ID),
		"session_id": int64(sessionID),
		"sender_id":  int64(msg.SenderID),
	})
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	sessionID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.authorizeSession(c, sessionID); err != nil {
		writeError(c, err)
		return
	}
	messages, err := h.svc.ListMessages(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	messageID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	msg, err := h.svc.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		writeError(c, err)
		return
	}
	if msg.SessionID != nil {
		if err := h.authorizeSession(c, *msg.SessionID); err != nil {
			writeError(c, err)
			return
		}
	} else if !id.Role.IsStaff() && msg.SenderID != id.UserID &&
		(msg.ReceiverID == nil || *msg.ReceiverID != id.UserID) {
		writeError(c, errs.ErrForbidden)
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), messageID, id.UserID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *ChatHandler) CloseSession(c *gin.Context) {
	sessionID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.authorizeSession(c, sessionID); err != nil {
		writeError(c, err)
		return
	}
	session, err := h.svc.CloseSession(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.producer.ProducePortalEvent(c.Request.Context(), "session.closed", map[string]interface{}{
		"session_id": int64(session.ID),
		"client_id":  int64(session.ClientID),
	})
	c.JSON(http.StatusOK, session)
}

type assignAgentRequest struct {
	AgentID uint64 `json:"agent_id" binding:"required"`
}

func (h *ChatHandler) AssignAgent(c *gin.Context) {
	sessionID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req assignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.svc.AssignAgent(c.Request.Context(), sessionID, req.AgentID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "assigned"})
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	sessionID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.authorizeSession(c, sessionID); err != nil {
		writeError(c, err)
		return
	}
	count, err := h.svc.UnreadCount(c.Request.Context(), sessionID, id.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// authorizeSession enforces the ownership boundary the service assumes its
// caller upholds: clients touch only their own sessions, staff touch any.
func (h *ChatHandler) authorizeSession(c *gin.Context, sessionID uint64) error {
	id, _ := middleware.GetIdentity(c)
	if id.Role.IsStaff() {
		return nil
	}
	session, err := h.svc.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		return err
	}
	if session.ClientID != id.UserID {
		return errs.ErrForbidden
	}
	return nil
}

func pathID(c *gin.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
