package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Well-known value keys. Every page reads and writes through these; the
// stored strings carry exactly what the corresponding form field or
// upstream response produced.
const (
	KeyPatientEmail    = "patient_email"
	KeyPatientBirthday = "patient_birthday"
	KeyHeightIn        = "height_in"
	KeyWeightLb        = "weight_lb"
	KeyBMI             = "bmi"
	KeyBPSystolic      = "bp_systolic"
	KeyBPDiastolic     = "bp_diastolic"
	KeyCurrentMedsJSON = "current_meds_json"
	KeyNewMedsJSON     = "new_meds_json"
	KeyAudio           = "echovisit-audio"
	KeyResult          = "echovisit-result"
	KeyDoctorID        = "doctor_id"
	KeyDoctorName      = "doctor_name"
	KeyPatientID       = "patient_id"
	KeyPatientName     = "patient_name"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Record is a persisted session. Values holds the per-visit working state
// keyed by the Key* constants.
type Record struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime"`
	ExpiresAt time.Time         `gorm:"column:expires_at;not null"`
	Values    map[string]string `gorm:"column:values;serializer:json;not null"`
}

func (Record) TableName() string { return "web.sessions" }

// Expired reports whether the record's deadline has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type Store interface {
	// Create opens a fresh session with the given lifetime.
	Create(ctx context.Context, ttl time.Duration) (*Record, error)

	// Get loads a live session. Returns ErrNotFound for unknown IDs and
	// ErrExpired for sessions past their deadline.
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// Put stores a value under key. Writing an empty value removes the key,
	// matching how pages clear stale state.
	Put(ctx context.Context, id uuid.UUID, key, value string) error

	// PutAll stores several values in one write.
	PutAll(ctx context.Context, id uuid.UUID, values map[string]string) error

	// Delete removes individual keys without touching the rest.
	Delete(ctx context.Context, id uuid.UUID, keys ...string) error

	// Destroy ends the session entirely.
	Destroy(ctx context.Context, id uuid.UUID) error
}
