package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/psds-microservice/portal-service/internal/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Milestone{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.Contact{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{Email: email, Name: "Test " + email, Role: role}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func createTestProject(t *testing.T, db *gorm.DB, clientID uint64) *model.Project {
	t.Helper()
	svc := NewProjectService(db)
	p := &model.Project{ClientID: clientID, Name: "Test Project"}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}
