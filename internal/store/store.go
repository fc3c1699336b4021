// Package store persists per-browser-session state: the identities known to
// a session, the reset sessions that thread the forgot-password steps and the
// locks that keep one submit per form outstanding.
//
// Two backends implement every interface: an in-memory store for single
// instances and development, and a PostgreSQL store for deployments with more
// than one instance.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DukeRupert/authflow/internal/domain"
)

var (
	// ErrNotFound indicates no reset session matches the token hash.
	ErrNotFound = errors.New("store: not found")

	// ErrInFlight indicates the reset session or form lock is already held by
	// another request.
	ErrInFlight = errors.New("store: in flight")
)

// IdentityStore holds the append-only list of identities for each browser
// session. Entries are never deduplicated.
type IdentityStore interface {
	Add(ctx context.Context, sessionID string, identity domain.Identity) error
	List(ctx context.Context, sessionID string) ([]domain.Identity, error)
	Clear(ctx context.Context, sessionID string) error
}

// ResetStore holds reset sessions keyed by the SHA-256 hash of their token.
type ResetStore interface {
	Create(ctx context.Context, session *domain.ResetSession) error
	Get(ctx context.Context, tokenHash string) (*domain.ResetSession, error)

	// Acquire marks the session in flight and returns it. It fails with
	// ErrInFlight if the session is already held and ErrNotFound if it does
	// not exist.
	Acquire(ctx context.Context, tokenHash string) (*domain.ResetSession, error)

	// Release clears the in-flight mark and records step as the next step.
	Release(ctx context.Context, tokenHash string, step domain.ResetStep) error

	Delete(ctx context.Context, tokenHash string) error

	// DeleteExpired removes sessions that expired before now and returns how
	// many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// FormLockStore allows one outstanding submit per browser session and form.
type FormLockStore interface {
	// AcquireForm marks form as being submitted for the session. It fails
	// with ErrInFlight if a submit is already outstanding.
	AcquireForm(ctx context.Context, sessionID, form string) error

	// ReleaseForm clears the mark. Releasing a form that is not held is a
	// no-op.
	ReleaseForm(ctx context.Context, sessionID, form string) error
}

// First returns the first identity added to the session.
func First(ctx context.Context, s IdentityStore, sessionID string) (domain.Identity, bool, error) {
	list, err := s.List(ctx, sessionID)
	if err != nil || len(list) == 0 {
		return domain.Identity{}, false, err
	}
	return list[0], true, nil
}

// Current returns the most recently added identity for the session.
func Current(ctx context.Context, s IdentityStore, sessionID string) (domain.Identity, bool, error) {
	list, err := s.List(ctx, sessionID)
	if err != nil || len(list) == 0 {
		return domain.Identity{}, false, err
	}
	return list[len(list)-1], true, nil
}
