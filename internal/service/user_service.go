package service

import (
	"context"
	"errors"

	"github.com/psds-microservice/portal-service/internal/errs"
	"github.com/psds-microservice/portal-service/internal/model"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// UpsertByEmail resolves an authenticated identity to a local user row,
// creating it on first authentication. Name and role follow the provider's
// claims on subsequent logins; rows are never hard-deleted.
func (s *UserService) UpsertByEmail(ctx context.Context, email, name string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, errs.ErrInvalidStatus
	}
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = model.User{Email: email, Name: name, Role: role}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	if user.Name != name || user.Role != role {
		if err := s.db.WithContext(ctx).Model(&user).
			Updates(map[string]interface{}{"name": name, "role": role}).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile edits the fields a user may change about themselves.
func (s *UserService) UpdateProfile(ctx context.Context, id uint64, name string) (*model.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("name", name).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, role model.Role) ([]model.User, error) {
	tx := s.db.WithContext(ctx).Model(&model.User{})
	if role != "" {
		if !role.Valid() {
			return nil, errs.ErrInvalidStatus
		}
		tx = tx.Where("role = ?", role)
	}
	var users []model.User
	if err := tx.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
