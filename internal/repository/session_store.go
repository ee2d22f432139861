package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/echovisit/echovisit-web/internal/session"
)

// SessionStore persists sessions in Postgres through gorm. One row per
// session; the value map is serialized as a json column.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

var _ session.Store = (*SessionStore)(nil)

func (s *SessionStore) Create(ctx context.Context, ttl time.Duration) (*session.Record, error) {
	now := time.Now()
	rec := &session.Record{
		ID:        uuid.New(),
		ExpiresAt: now.Add(ttl),
		Values:    make(map[string]string),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return rec, nil
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*session.Record, error) {
	var rec session.Record
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if rec.Expired(time.Now()) {
		_ = s.db.WithContext(ctx).Delete(&session.Record{}, "id = ?", id).Error
		return nil, session.ErrExpired
	}
	if rec.Values == nil {
		rec.Values = make(map[string]string)
	}
	return &rec, nil
}

func (s *SessionStore) Put(ctx context.Context, id uuid.UUID, key, value string) error {
	return s.PutAll(ctx, id, map[string]string{key: value})
}

func (s *SessionStore) PutAll(ctx context.Context, id uuid.UUID, values map[string]string) error {
	return s.mutate(ctx, id, func(rec *session.Record) {
		for k, v := range values {
			if v == "" {
				delete(rec.Values, k)
				continue
			}
			rec.Values[k] = v
		}
	})
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID, keys ...string) error {
	return s.mutate(ctx, id, func(rec *session.Record) {
		for _, k := range keys {
			delete(rec.Values, k)
		}
	})
}

func (s *SessionStore) Destroy(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&session.Record{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

// mutate applies fn to the stored value map inside a transaction. The row
// lock keeps concurrent page writes from clobbering each other's keys.
func (s *SessionStore) mutate(ctx context.Context, id uuid.UUID, fn func(*session.Record)) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec session.Record
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return session.ErrNotFound
		}
		if err != nil {
			return err
		}
		if rec.Expired(time.Now()) {
			if err := tx.Delete(&session.Record{}, "id = ?", id).Error; err != nil {
				return err
			}
			return session.ErrExpired
		}
		if rec.Values == nil {
			rec.Values = make(map[string]string)
		}
		fn(&rec)
		return tx.Model(&rec).Update("values", rec.Values).Error
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return err
		}
		return fmt.Errorf("updating session: %w", err)
	}
	return nil
}

// SweepExpired deletes sessions past their deadline and reports how many
// rows went away. Run from a background ticker.
func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&session.Record{}, "expires_at <= ?", time.Now())
	if res.Error != nil {
		return 0, fmt.Errorf("sweeping expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
