package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. It backs local development
// and tests; production uses the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Record
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Record),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, ttl time.Duration) (*Record, error) {
	now := s.now()
	rec := &Record{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
		Values:    make(map[string]string),
	}

	s.mu.Lock()
	s.sessions[rec.ID] = rec
	s.mu.Unlock()

	return copyRecord(rec), nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, ErrExpired
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Put(ctx context.Context, id uuid.UUID, key, value string) error {
	return s.PutAll(ctx, id, map[string]string{key: value})
}

func (s *MemoryStore) PutAll(_ context.Context, id uuid.UUID, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if rec.Expired(s.now()) {
		delete(s.sessions, id)
		return ErrExpired
	}
	for k, v := range values {
		if v == "" {
			delete(rec.Values, k)
			continue
		}
		rec.Values[k] = v
	}
	rec.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	for _, k := range keys {
		delete(rec.Values, k)
	}
	rec.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func copyRecord(rec *Record) *Record {
	out := *rec
	out.Values = make(map[string]string, len(rec.Values))
	for k, v := range rec.Values {
		out.Values[k] = v
	}
	return &out
}
