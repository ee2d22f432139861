package service

import (
	"errors"
	"strings"
)

var (
	ErrLoginRequired      = errors.New("login required")
	ErrForbidden          = errors.New("forbidden: insufficient permissions")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCheckInFlight      = errors.New("interaction check in progress")
	ErrNoAudio            = errors.New("no recording available")
	ErrNoResult           = errors.New("no visit result available")
	ErrReviewNotConfirmed = errors.New("review not confirmed")
	ErrVisitNotFound      = errors.New("visit not found")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

type AuditEntry struct {
	SessionID    string
	UserID       string
	UserRole     string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	StatusCode   int
}
