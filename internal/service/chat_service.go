package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/psds-microservice/portal-service/internal/errs"
	"github.com/psds-microservice/portal-service/internal/model"
	"gorm.io/gorm"
)

// ChatServicer is the session/message contract consumed by handlers and the
// websocket endpoint.
type ChatServicer interface {
	CreateSession(ctx context.Context, clientID uint64, projectID *uint64) (*model.ChatSession, error)
	ListSessions(ctx context.Context, clientID uint64) ([]model.ChatSession, error)
	GetSession(ctx context.Context, id uint64) (*model.ChatSession, error)
	GetMessage(ctx context.Context, id uint64) (*model.ChatMessage, error)
	SendMessage(ctx context.Context, sessionID, senderID uint64, content string) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, sessionID uint64) ([]model.ChatMessage, error)
	MarkRead(ctx context.Context, messageID, readerID uint64) error
	CloseSession(ctx context.Context, sessionID uint64) (*model.ChatSession, error)
	AssignAgent(ctx context.Context, sessionID, agentID uint64) error
	UnreadCount(ctx context.Context, sessionID, readerID uint64) (int64, error)
	CloseIdleSessions(ctx context.Context, idleFor time.Duration) (int64, error)
}

type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// CreateSession opens a new active session for the client. Whether the client
// already has an active session is deliberately not checked here.
func (s *ChatService) CreateSession(ctx context.Context, clientID uint64, projectID *uint64) (*model.ChatSession, error) {
	if projectID != nil {
		var p model.Project
		if err := s.db.WithContext(ctx).First(&p, *projectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, errs.ErrProjectNotFound
			}
			return nil, err
		}
	}
	session := &model.ChatSession{
		ClientID:     clientID,
		ProjectID:    projectID,
		Status:       model.SessionStatusActive,
		LastActivity: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns the client's sessions, most recently active first.
// Scoping to the authenticated identity is the caller's contract.
func (s *ChatService) ListSessions(ctx context.Context, clientID uint64) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("last_activity DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *ChatService) GetSession(ctx context.Context, id uint64) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *ChatService) GetMessage(ctx context.Context, id uint64) (*model.ChatMessage, error) {
	var msg model.ChatMessage
	if err := s.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// SendMessage persists a message and bumps the session's last_activity.
// The id and timestamp are server-assigned; callers never supply them.
// Nothing is written when the session is unknown or the content is empty.
func (s *ChatService) SendMessage(ctx context.Context, sessionID, senderID uint64, content string) (*model.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.ErrEmptyContent
	}
	var msg *model.ChatMessage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session model.ChatSession
		if err := tx.First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrSessionNotFound
			}
			return err
		}
		if session.Status == model.SessionStatusClosed {
			return errs.ErrSessionClosed
		}
		sid := sessionID
		msg = &model.ChatMessage{
			SessionID: &sid,
			SenderID:  senderID,
			Content:   content,
			IsRead:    false,
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		// Last writer wins; concurrent senders racing here is benign.
		return tx.Model(&model.ChatSession{}).
			Where("id = ?", sessionID).
			Update("last_activity", time.Now().UTC()).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the session's messages in commit order.
func (s *ChatService) ListMessages(ctx context.Context, sessionID uint64) ([]model.ChatMessage, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	var messages []model.ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flips is_read on a message. Re-reading an already-read message is
// a no-op, not an error.
func (s *ChatService) MarkRead(ctx context.Context, messageID, readerID uint64) error {
	var msg model.ChatMessage
	if err := s.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrMessageNotFound
		}
		return err
	}
	if msg.IsRead {
		return nil
	}
	return s.db.WithContext(ctx).Model(&msg).Update("is_read", true).Error
}

// CloseSession transitions active -> closed. The transition is terminal: the
// status predicate on the update means only one writer ever sets closed_at,
// and a close that lost the race fails like any other re-close.
func (s *ChatService) CloseSession(ctx context.Context, sessionID uint64) (*model.ChatSession, error) {
	res := s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ? AND status = ?", sessionID, model.SessionStatusActive).
		Updates(map[string]interface{}{
			"status":    model.SessionStatusClosed,
			"closed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	var session model.ChatSession
	if err := s.db.WithContext(ctx).First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSessionNotFound
		}
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrSessionClosed
	}
	return &session, nil
}

// AssignAgent attaches a support agent to the session. The agent must hold a
// staff role.
func (s *ChatService) AssignAgent(ctx context.Context, sessionID, agentID uint64) error {
	var agent model.User
	if err := s.db.WithContext(ctx).First(&agent, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrUserNotFound
		}
		return err
	}
	if !agent.Role.IsStaff() {
		return errs.ErrForbidden
	}
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == model.SessionStatusClosed {
		return errs.ErrSessionClosed
	}
	return s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("id = ?", sessionID).
		Update("agent_id", agentID).Error
}

// UnreadCount counts messages in the session not yet read and not sent by the
// reader, for dashboard badges.
func (s *ChatService) UnreadCount(ctx context.Context, sessionID, readerID uint64) (int64, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ChatMessage{}).
		Where("session_id = ? AND sender_id <> ? AND is_read = ?", sessionID, readerID, false).
		Count(&count).Error
	return count, err
}

// CloseIdleSessions closes every active session whose last_activity is older
// than idleFor. Run from the close-idle-sessions command; there is no
// automatic idle policy.
func (s *ChatService) CloseIdleSessions(ctx context.Context, idleFor time.Duration) (int64, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-idleFor)
	res := s.db.WithContext(ctx).Model(&model.ChatSession{}).
		Where("status = ? AND last_activity < ?", model.SessionStatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":    model.SessionStatusClosed,
			"closed_at": now,
		})
	return res.RowsAffected, res.Error
}
