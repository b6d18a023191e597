package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/portal-service/internal/auth"
	"github.com/psds-microservice/portal-service/internal/handler"
	"github.com/psds-microservice/portal-service/internal/kafka"
	"github.com/psds-microservice/portal-service/internal/model"
	"github.com/psds-microservice/portal-service/internal/notify"
	"github.com/psds-microservice/portal-service/internal/relay"
	"github.com/psds-microservice/portal-service/internal/router"
	"github.com/psds-microservice/portal-service/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "integration-secret"

var testDBSeq atomic.Int64

type testEnv struct {
	srv *httptest.Server
	hub *relay.Hub
	db  *gorm.DB
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&model.User{}, &model.Project{}, &model.Milestone{},
		&model.ChatSession{}, &model.ChatMessage{}, &model.Contact{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	chatSvc := service.NewChatService(db)
	userSvc := service.NewUserService(db)
	hub := relay.NewHub()
	producer := kafka.NewProducer(nil, "")

	h := router.New(router.Deps{
		Chat:           handler.NewChatHandler(chatSvc, hub, producer),
		WS:             handler.NewWSHandler(chatSvc, hub),
		Project:        handler.NewProjectHandler(service.NewProjectService(db)),
		Contact:        handler.NewContactHandler(service.NewContactService(db), notify.NewClient(""), producer),
		User:           handler.NewUserHandler(userSvc),
		Users:          userSvc,
		JWTSecret:      testSecret,
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &testEnv{srv: srv, hub: hub, db: db}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var fields map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&fields)
	return resp, fields
}

func tokenFor(t *testing.T, email string, role model.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(email, "Test "+email, role, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func fieldUint(t *testing.T, fields map[string]json.RawMessage, key string) uint64 {
	t.Helper()
	var v uint64
	if err := json.Unmarshal(fields[key], &v); err != nil {
		t.Fatalf("field %q: %v (raw %s)", key, err, fields[key])
	}
	return v
}

// TestSupportChatScenario walks the whole support-chat flow: the client opens
// a session and sends a message, a joined agent receives it live in-process,
// marks it read, the client closes the session, and a second close is
// rejected.
func TestSupportChatScenario(t *testing.T) {
	env := setupTestEnv(t)
	clientToken := tokenFor(t, "alice@example.com", model.RoleClient)
	agentToken := tokenFor(t, "bob@support.example.com", model.RoleSupport)

	// Client creates a session.
	resp, fields := env.request(t, http.MethodPost, "/api/v1/sessions", clientToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d", resp.StatusCode)
	}
	sessionID := fieldUint(t, fields, "id")
	var status string
	json.Unmarshal(fields["status"], &status)
	if status != "active" {
		t.Fatalf("session status = %q, want active", status)
	}
	if raw, ok := fields["closed_at"]; ok && string(raw) != "null" {
		t.Fatalf("closed_at = %s, want absent", raw)
	}

	// Agent joins the session on the relay before the message is sent.
	events := env.hub.Join(sessionID, "agent-conn")

	// Client sends a message.
	resp, fields = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%d/messages", sessionID), clientToken,
		map[string]string{"content": "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send message: status %d", resp.StatusCode)
	}
	messageID := fieldUint(t, fields, "id")
	var isRead bool
	json.Unmarshal(fields["is_read"], &isRead)
	if isRead {
		t.Error("new message is_read = true, want false")
	}

	// The agent receives the committed message without touching the store.
	select {
	case ev := <-events:
		if ev.Type != relay.EventMessage || ev.Message == nil || ev.Message.ID != messageID {
			t.Fatalf("relay event = %+v, want message %d", ev, messageID)
		}
	case <-time.After(time.Second):
		t.Fatal("no relay delivery for committed message")
	}

	// Agent marks it read.
	resp, _ = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/messages/%d/read", messageID), agentToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read: status %d", resp.StatusCode)
	}

	// Client closes the session.
	resp, fields = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%d/close", sessionID), clientToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close session: status %d", resp.StatusCode)
	}
	if raw := fields["closed_at"]; len(raw) == 0 || string(raw) == "null" {
		t.Fatal("closed_at not set after close")
	}

	// A second close is an invalid transition.
	resp, _ = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%d/close", sessionID), clientToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second close: status %d, want 409", resp.StatusCode)
	}
}

func TestSendMessageValidation(t *testing.T) {
	env := setupTestEnv(t)
	clientToken := tokenFor(t, "alice@example.com", model.RoleClient)

	_, fields := env.request(t, http.MethodPost, "/api/v1/sessions", clientToken, nil)
	sessionID := fieldUint(t, fields, "id")

	// Empty content is rejected and writes nothing.
	resp, _ := env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%d/messages", sessionID), clientToken,
		map[string]string{"content": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty content: status %d, want 400", resp.StatusCode)
	}
	var count int64
	env.db.Model(&model.ChatMessage{}).Count(&count)
	if count != 0 {
		t.Errorf("message rows = %d, want 0", count)
	}

	// Unknown session is NotFound.
	resp, _ = env.request(t, http.MethodPost, "/api/v1/sessions/99999/messages",
		clientToken, map[string]string{"content": "hi"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: status %d, want 404", resp.StatusCode)
	}
}

func TestSessionOwnershipBoundary(t *testing.T) {
	env := setupTestEnv(t)
	aliceToken := tokenFor(t, "alice@example.com", model.RoleClient)
	malloryToken := tokenFor(t, "mallory@example.com", model.RoleClient)
	agentToken := tokenFor(t, "bob@support.example.com", model.RoleSupport)

	_, fields := env.request(t, http.MethodPost, "/api/v1/sessions", aliceToken, nil)
	sessionID := fieldUint(t, fields, "id")

	// Another client cannot read or write the session.
	resp, _ := env.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%d/messages", sessionID), malloryToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign read: status %d, want 403", resp.StatusCode)
	}
	resp, _ = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%d/messages", sessionID), malloryToken,
		map[string]string{"content": "intrusion"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign write: status %d, want 403", resp.StatusCode)
	}

	// Support staff can.
	resp, _ = env.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/sessions/%d/messages", sessionID), agentToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("staff read: status %d, want 200", resp.StatusCode)
	}

	// Mark-read follows the same boundary: another client cannot flip
	// is_read on a message in alice's session, staff can.
	_, fields = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/sessions/%d/messages", sessionID), aliceToken,
		map[string]string{"content": "private"})
	messageID := fieldUint(t, fields, "id")
	resp, _ = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/messages/%d/read", messageID), malloryToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign mark-read: status %d, want 403", resp.StatusCode)
	}
	var msg model.ChatMessage
	if err := env.db.First(&msg, messageID).Error; err != nil {
		t.Fatalf("reload message: %v", err)
	}
	if msg.IsRead {
		t.Error("is_read = true after refused mark-read, want false")
	}
	resp, _ = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/messages/%d/read", messageID), agentToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("staff mark-read: status %d, want 200", resp.StatusCode)
	}

	// And listing sessions never leaks another client's sessions.
	resp, fields = env.request(t, http.MethodGet, "/api/v1/sessions", malloryToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list sessions: status %d", resp.StatusCode)
	}
	var sessions []model.ChatSession
	json.Unmarshal(fields["sessions"], &sessions)
	if len(sessions) != 0 {
		t.Errorf("mallory sees %d sessions, want 0", len(sessions))
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	resp, _ := env.request(t, http.MethodGet, "/api/v1/sessions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", resp.StatusCode)
	}
	resp, _ = env.request(t, http.MethodGet, "/api/v1/sessions", "bogus.token.here", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", resp.StatusCode)
	}
}

func TestContactIntakePublic(t *testing.T) {
	env := setupTestEnv(t)

	resp, fields := env.request(t, http.MethodPost, "/api/v1/contacts", "",
		map[string]string{"name": "Lead", "email": "lead@example.com", "message": "need a website"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("contact intake: status %d, want 201", resp.StatusCode)
	}
	var status string
	json.Unmarshal(fields["status"], &status)
	if status != "new" {
		t.Errorf("contact status = %q, want new", status)
	}

	// Reading leads requires a staff role.
	clientToken := tokenFor(t, "alice@example.com", model.RoleClient)
	resp, _ = env.request(t, http.MethodGet, "/api/v1/contacts", clientToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("client list contacts: status %d, want 403", resp.StatusCode)
	}
	supportToken := tokenFor(t, "bob@support.example.com", model.RoleSupport)
	resp, fields = env.request(t, http.MethodGet, "/api/v1/contacts", supportToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("staff list contacts: status %d", resp.StatusCode)
	}
	var contacts []model.Contact
	json.Unmarshal(fields["contacts"], &contacts)
	if len(contacts) != 1 {
		t.Errorf("len(contacts) = %d, want 1", len(contacts))
	}
}

func TestProjectRoleGates(t *testing.T) {
	env := setupTestEnv(t)
	adminToken := tokenFor(t, "root@example.com", model.RoleAdmin)
	clientToken := tokenFor(t, "alice@example.com", model.RoleClient)

	// The client logs in once so the admin can reference their user id.
	_, me := env.request(t, http.MethodGet, "/api/v1/me", clientToken, nil)
	clientID := fieldUint(t, me, "id")

	// Clients cannot create projects.
	resp, _ := env.request(t, http.MethodPost, "/api/v1/projects", clientToken,
		map[string]interface{}{"client_id": clientID, "name": "Nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("client create project: status %d, want 403", resp.StatusCode)
	}

	resp, fields := env.request(t, http.MethodPost, "/api/v1/projects", adminToken,
		map[string]interface{}{"client_id": clientID, "name": "Website"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create project: status %d", resp.StatusCode)
	}
	projectID := fieldUint(t, fields, "id")

	// The owning client sees it; milestones and progress follow ownership.
	resp, _ = env.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/projects/%d", projectID), clientToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner get project: status %d", resp.StatusCode)
	}

	env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/projects/%d/milestones", projectID), adminToken,
		map[string]string{"title": "Design", "status": "completed"})
	env.request(t, http.MethodPost,
		fmt.Sprintf("/api/v1/projects/%d/milestones", projectID), adminToken,
		map[string]string{"title": "Build"})

	resp, fields = env.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/projects/%d/progress", projectID), clientToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("progress: status %d", resp.StatusCode)
	}
	var percent float64
	json.Unmarshal(fields["percent"], &percent)
	if percent != 50 {
		t.Errorf("percent = %v, want 50", percent)
	}
}
