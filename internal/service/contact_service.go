package service

import (
	"context"
	"errors"

	"github.com/psds-microservice/portal-service/internal/errs"
	"github.com/psds-microservice/portal-service/internal/model"
	"gorm.io/gorm"
)

type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

// Create stores a lead from the public contact form. Status always starts at
// new regardless of what the caller supplied.
func (s *ContactService) Create(ctx context.Context, c *model.Contact) error {
	c.Status = model.ContactStatusNew
	c.AssignedTo = nil
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *ContactService) GetByID(ctx context.Context, id uint64) (*model.Contact, error) {
	var c model.Contact
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrContactNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *ContactService) List(ctx context.Context, status model.ContactStatus) ([]model.Contact, error) {
	tx := s.db.WithContext(ctx).Model(&model.Contact{})
	if status != "" {
		if !status.Valid() {
			return nil, errs.ErrInvalidStatus
		}
		tx = tx.Where("status = ?", status)
	}
	var contacts []model.Contact
	if err := tx.Order("created_at DESC").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// Update moves a lead through the workflow and/or assigns it. The assignee
// must hold a staff role.
func (s *ContactService) Update(ctx context.Context, id uint64, status model.ContactStatus, assignedTo *uint64) (*model.Contact, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	changes := make(map[string]interface{})
	if status != "" {
		if !status.Valid() {
			return nil, errs.ErrInvalidStatus
		}
		changes["status"] = status
	}
	if assignedTo != nil {
		var assignee model.User
		if err := s.db.WithContext(ctx).First(&assignee, *assignedTo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.ErrUserNotFound
			}
			return nil, err
		}
		if !assignee.Role.IsStaff() {
			return nil, errs.ErrForbidden
		}
		changes["assigned_to"] = *assignedTo
	}
	if len(changes) == 0 {
		return c, nil
	}
	if err := s.db.WithContext(ctx).Model(c).Updates(changes).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}
