package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Claims identify the caller across pages. The upstream auth service owns
// the identities; UserID and Name are echoed back by its login endpoints.
type Claims struct {
	SessionID uuid.UUID `json:"sid"`
	Role      Role      `json:"role"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type AuditAction string

const (
	ActionLogin  AuditAction = "login"
	ActionSignup AuditAction = "signup"
	ActionRecord AuditAction = "record"
	ActionReview AuditAction = "review"
	ActionSubmit AuditAction = "submit"
	ActionView   AuditAction = "view"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	SessionID uuid.UUID `gorm:"column:session_id;type:uuid;index"`
	UserID    string    `gorm:"column:user_id;type:varchar(64);index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(64);index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	StatusCode int    `gorm:"column:status_code"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}
