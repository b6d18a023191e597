package service

import (
	"context"
	"testing"

	"github.com/psds-microservice/portal-service/internal/model"
)

func TestUpsertByEmailCreatesOnFirstAuth(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)

	user, err := svc.UpsertByEmail(context.Background(), "new@example.com", "New User", model.RoleClient)
	if err != nil {
		t.Fatalf("UpsertByEmail: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("user not persisted")
	}

	// Second login with changed claims updates in place, no duplicate row.
	again, err := svc.UpsertByEmail(context.Background(), "new@example.com", "Renamed", model.RoleSupport)
	if err != nil {
		t.Fatalf("second UpsertByEmail: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("id changed %d -> %d, want stable", user.ID, again.ID)
	}

	users, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("len(users) = %d, want 1", len(users))
	}
	if users[0].Name != "Renamed" || users[0].Role != model.RoleSupport {
		t.Errorf("user = %+v, want renamed support role", users[0])
	}
}

func TestUpdateProfile(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)
	user := createTestUser(t, db, "u@example.com", model.RoleClient)

	updated, err := svc.UpdateProfile(context.Background(), user.ID, "Better Name")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Better Name" {
		t.Errorf("name = %q, want %q", updated.Name, "Better Name")
	}
}

func TestListUsersByRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)
	createTestUser(t, db, "c1@example.com", model.RoleClient)
	createTestUser(t, db, "c2@example.com", model.RoleClient)
	createTestUser(t, db, "s@example.com", model.RoleSupport)

	clients, err := svc.List(context.Background(), model.RoleClient)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(clients) != 2 {
		t.Errorf("len(clients) = %d, want 2", len(clients))
	}
}
