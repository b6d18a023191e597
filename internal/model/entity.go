package model

import "time"

type Role string

const (
	RoleClient  Role = "client"
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSupport:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on other clients' records.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSupport
}

type ProjectStatus string

const (
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCancelled  ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
)

func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusCompleted:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusClosed:
		return true
	}
	return false
}

type ContactStatus string

const (
	ContactStatusNew        ContactStatus = "new"
	ContactStatusInProgress ContactStatus = "in_progress"
	ContactStatusCompleted  ContactStatus = "completed"
)

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusInProgress, ContactStatusCompleted:
		return true
	}
	return false
}

// User is an authenticated identity. Rows are created on first authentication
// and never hard-deleted: projects, sessions and messages reference them.
type User struct {
	ID    uint64 `gorm:"primaryKey" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Name  string `gorm:"type:varchar(255)" json:"name"`
	Role  Role   `gorm:"type:varchar(32);not null;default:'client'" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Project struct {
	ID          uint64        `gorm:"primaryKey" json:"id"`
	ClientID    uint64        `gorm:"index;not null" json:"client_id"`
	Name        string        `gorm:"type:varchar(255);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	Status      ProjectStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

type Milestone struct {
	ID          uint64          `gorm:"primaryKey" json:"id"`
	ProjectID   uint64          `gorm:"index;not null" json:"project_id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Status      MilestoneStatus `gorm:"type:varchar(32);index;not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Milestone) TableName() string { return "milestones" }

// ChatSession is a bounded support conversation owned by one client,
// optionally taken over by a support agent and optionally linked to a project.
// Lifecycle is active -> closed; a closed session is never reopened.
type ChatSession struct {
	ID           uint64        `gorm:"primaryKey" json:"id"`
	ClientID     uint64        `gorm:"index;not null" json:"client_id"`
	AgentID      *uint64       `gorm:"index" json:"agent_id,omitempty"`
	ProjectID    *uint64       `gorm:"index" json:"project_id,omitempty"`
	Status       SessionStatus `gorm:"type:varchar(16);index;not null" json:"status"`
	LastActivity time.Time     `gorm:"index;not null" json:"last_activity"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage content is immutable after insert; only IsRead flips.
// SessionID is nullable: a message without a session is a direct user-to-user
// message, a variant the schema keeps but no API operation exercises yet.
type ChatMessage struct {
	ID         uint64  `gorm:"primaryKey" json:"id"`
	SessionID  *uint64 `gorm:"index" json:"session_id,omitempty"`
	SenderID   uint64  `gorm:"index;not null" json:"sender_id"`
	ReceiverID *uint64 `gorm:"index" json:"receiver_id,omitempty"`
	Content    string  `gorm:"type:text;not null" json:"content"`
	IsRead     bool    `gorm:"not null;default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// Contact is a standalone lead-capture record with its own workflow status.
type Contact struct {
	ID         uint64        `gorm:"primaryKey" json:"id"`
	Name       string        `gorm:"type:varchar(255);not null" json:"name"`
	Email      string        `gorm:"type:varchar(255);not null" json:"email"`
	Company    string        `gorm:"type:varchar(255)" json:"company,omitempty"`
	Message    string        `gorm:"type:text" json:"message,omitempty"`
	Status     ContactStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	AssignedTo *uint64       `gorm:"index" json:"assigned_to,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string { return "contacts" }
