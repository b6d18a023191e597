package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/portal-service/internal/kafka"
	"github.com/psds-microservice/portal-service/internal/model"
	"github.com/psds-microservice/portal-service/internal/notify"
	"github.com/psds-microservice/portal-service/internal/service"
)

type ContactHandler struct {
	svc      *service.ContactService
	notifier *notify.Client
	producer kafka.PortalEventProducer
}

func NewContactHandler(svc *service.ContactService, notifier *notify.Client, producer kafka.PortalEventProducer) *ContactHandler {
	return &ContactHandler{svc: svc, notifier: notifier, producer: producer}
}

type createContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Company string `json:"company"`
	Message string `json:"message"`
}

// Create is the public lead-capture endpoint behind the marketing site's
// contact form. No authentication.
func (h *ContactHandler) Create(c *gin.Context) {
	var req createContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	contact := &model.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
		Message: req.Message,
	}
	if err := h.svc.Create(c.Request.Context(), contact); err != nil {
		writeError(c, err)
		return
	}
	h.notifier.NotifyLeadAsync(contact)
	h.producer.ProducePortalEvent(c.Request.Context(), "contact.created", map[string]interface{}{
		"contact_id": int64(contact.ID),
		"email":      contact.Email,
	})
	c.JSON(http.StatusCreated, contact)
}

func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.svc.List(c.Request.Context(), model.ContactStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

type updateContactRequest struct {
	Status     *string `json:"status,omitempty"`
	AssignedTo *uint64 `json:"assigned_to,omitempty"`
}

func (h *ContactHandler) Update(c *gin.Context) {
	contactID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Status == nil && req.AssignedTo == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no changes"})
		return
	}
	status := model.ContactStatus("")
	if req.Status != nil {
		status = model.ContactStatus(*req.Status)
	}
	contact, err := h.svc.Update(c.Request.Context(), contactID, status, req.AssignedTo)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}
