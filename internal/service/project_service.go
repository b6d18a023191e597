package service

import (
	"context"
	"errors"
	"time"

	"github.com/psds-microservice/portal-service/internal/errs"
	"github.com/psds-microservice/portal-service/internal/model"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

func (s *ProjectService) Create(ctx context.Context, p *model.Project) error {
	if p.Status == "" {
		p.Status = model.ProjectStatusInProgress
	}
	if !p.Status.Valid() {
		return errs.ErrInvalidStatus
	}
	var client model.User
	if err := s.db.WithContext(ctx).First(&client, p.ClientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrUserNotFound
		}
		return err
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *ProjectService) GetByID(ctx context.Context, id uint64) (*model.Project, error) {
	var p model.Project
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns projects filtered by client and/or status. clientID == 0 means
// all clients (staff view).
func (s *ProjectService) List(ctx context.Context, clientID uint64, status model.ProjectStatus) ([]model.Project, error) {
	tx := s.db.WithContext(ctx).Model(&model.Project{})
	if clientID != 0 {
		tx = tx.Where("client_id = ?", clientID)
	}
	if status != "" {
		if !status.Valid() {
			return nil, errs.ErrInvalidStatus
		}
		tx = tx.Where("status = ?", status)
	}
	var projects []model.Project
	if err := tx.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateStatus moves the project through its soft lifecycle. Projects are
// never deleted; cancelled and completed are both terminal-looking but an
// admin may still move a project back to in_progress.
func (s *ProjectService) UpdateStatus(ctx context.Context, id uint64, status model.ProjectStatus) (*model.Project, error) {
	if !status.Valid() {
		return nil, errs.ErrInvalidStatus
	}
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := map[string]interface{}{"status": status}
	if status == model.ProjectStatusCompleted && p.CompletedAt == nil {
		now := time.Now().UTC()
		changes["completed_at"] = now
	}
	if err := s.db.WithContext(ctx).Model(p).Updates(changes).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *ProjectService) CreateMilestone(ctx context.Context, m *model.Milestone) error {
	if m.Status == "" {
		m.Status = model.MilestoneStatusPending
	}
	if !m.Status.Valid() {
		return errs.ErrInvalidStatus
	}
	if _, err := s.GetByID(ctx, m.ProjectID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *ProjectService) ListMilestones(ctx context.Context, projectID uint64) ([]model.Milestone, error) {
	if _, err := s.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	var milestones []model.Milestone
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&milestones).Error
	if err != nil {
		return nil, err
	}
	return milestones, nil
}

func (s *ProjectService) UpdateMilestoneStatus(ctx context.Context, id uint64, status model.MilestoneStatus) (*model.Milestone, error) {
	if !status.Valid() {
		return nil, errs.ErrInvalidStatus
	}
	var m model.Milestone
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrMilestoneNotFound
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&m).Update("status", status).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// Progress is the milestone completion summary shown on the dashboard.
type Progress struct {
	ProjectID uint64  `json:"project_id"`
	Total     int64   `json:"total"`
	Completed int64   `json:"completed"`
	Percent   float64 `json:"percent"`
}

// MilestoneProgress computes completion directly from the milestone rows; no
// derived state is stored.
func (s *ProjectService) MilestoneProgress(ctx context.Context, projectID uint64) (*Progress, error) {
	if _, err := s.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	var total, completed int64
	if err := s.db.WithContext(ctx).Model(&model.Milestone{}).
		Where("project_id = ?", projectID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&model.Milestone{}).
		Where("project_id = ? AND status = ?", projectID, model.MilestoneStatusCompleted).
		Count(&completed).Error; err != nil {
		return nil, err
	}
	p := &Progress{ProjectID: projectID, Total: total, Completed: completed}
	if total > 0 {
		p.Percent = float64(completed) * 100 / float64(total)
	}
	return p, nil
}
