package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/portal-service/internal/errs"
	"github.com/psds-microservice/portal-service/internal/middleware"
	"github.com/psds-microservice/portal-service/internal/model"
	"github.com/psds-microservice/portal-service/internal/service"
)

type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type createProjectRequest struct {
	ClientID    uint64     `json:"client_id" binding:"required"`
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	project := &model.Project{
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
		Status:      model.ProjectStatus(req.Status),
		DueDate:     req.DueDate,
	}
	if err := h.svc.Create(c.Request.Context(), project); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) List(c *gin.Context) {
	id, _ := middleware.GetIdentity(c)
	clientID := id.UserID
	if id.Role.IsStaff() {
		clientID = 0
		if v := c.Query("client_id"); v != "" {
			parsed, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
				return
			}
			clientID = parsed
		}
	}
	projects, err := h.svc.List(c.Request.Context(), clientID, model.ProjectStatus(c.Query("status")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	project, err := h.authorizeProject(c, projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	project, err := h.svc.UpdateStatus(c.Request.Context(), projectID, model.ProjectStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type createMilestoneRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req createMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	milestone := &model.Milestone{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.MilestoneStatus(req.Status),
	}
	if err := h.svc.CreateMilestone(c.Request.Context(), milestone); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

func (h *ProjectHandler) ListMilestones(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if _, err := h.authorizeProject(c, projectID); err != nil {
		writeError(c, err)
		return
	}
	milestones, err := h.svc.ListMilestones(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

func (h *ProjectHandler) UpdateMilestoneStatus(c *gin.Context) {
	milestoneID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	milestone, err := h.svc.UpdateMilestoneStatus(c.Request.Context(), milestoneID, model.MilestoneStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

func (h *ProjectHandler) Progress(c *gin.Context) {
	projectID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if _, err := h.authorizeProject(c, projectID); err != nil {
		writeError(c, err)
		return
	}
	progress, err := h.svc.MilestoneProgress(c.Request.Context(), projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// authorizeProject applies the ownership boundary: clients see only their own
// projects.
func (h *ProjectHandler) authorizeProject(c *gin.Context, projectID uint64) (*model.Project, error) {
	id, _ := middleware.GetIdentity(c)
	project, err := h.svc.GetByID(c.Request.Context(), projectID)
	if err != nil {
		return nil, err
	}
	if !id.Role.IsStaff() && project.ClientID != id.UserID {
		return nil, errs.ErrForbidden
	}
	return project, nil
}
