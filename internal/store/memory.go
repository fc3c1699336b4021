package store

import (
	"context"
	"sync"
	"time"

	"github.com/DukeRupert/authflow/internal/domain"
)

// MemoryStore implements IdentityStore, ResetStore and FormLockStore in
// process memory.
type MemoryStore struct {
	mu         sync.Mutex
	identities map[string][]domain.Identity
	resets     map[string]domain.ResetSession
	forms      map[formKey]struct{}
}

type formKey struct {
	sessionID string
	form      string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string][]domain.Identity),
		resets:     make(map[string]domain.ResetSession),
		forms:      make(map[formKey]struct{}),
	}
}

func (m *MemoryStore) Add(ctx context.Context, sessionID string, identity domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[sessionID] = append(m.identities[sessionID], identity)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, sessionID string) ([]domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.identities[sessionID]
	out := make([]domain.Identity, len(list))
	copy(out, list)
	return out, nil
}

func (m *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.identities, sessionID)
	return nil
}

func (m *MemoryStore) Create(ctx context.Context, session *domain.ResetSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[session.TokenHash] = *session
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, tokenHash string) (*domain.ResetSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.resets[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Acquire(ctx context.Context, tokenHash string) (*domain.ResetSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.resets[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	if s.InFlight {
		return nil, ErrInFlight
	}
	s.InFlight = true
	m.resets[tokenHash] = s
	return &s, nil
}

func (m *MemoryStore) Release(ctx context.Context, tokenHash string, step domain.ResetStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.resets[tokenHash]
	if !ok {
		return ErrNotFound
	}
	s.InFlight = false
	s.Step = step
	m.resets[tokenHash] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.resets, tokenHash)
	return nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, s := range m.resets {
		if s.ExpiresAt.Before(now) {
			delete(m.resets, hash)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) AcquireForm(ctx context.Context, sessionID, form string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := formKey{sessionID: sessionID, form: form}
	if _, held := m.forms[key]; held {
		return ErrInFlight
	}
	m.forms[key] = struct{}{}
	return nil
}

func (m *MemoryStore) ReleaseForm(ctx context.Context, sessionID, form string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.forms, formKey{sessionID: sessionID, form: form})
	return nil
}
