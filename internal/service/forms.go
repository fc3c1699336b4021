package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/store"
)

// Form names guarded by FormGuard.
const (
	FormLogin      = "login"
	FormRegister   = "register"
	FormResetEmail = "reset_email"
)

// FormGuard keeps at most one submit per browser session and form
// outstanding, so a double-clicked button reaches the identity provider or
// backend once.
type FormGuard interface {
	// Acquire holds form for the session until release is called. Returns
	// ErrInFlight while another submit of the same form is outstanding.
	Acquire(ctx context.Context, sessionID, form string) (release func(), err error)
}

type formGuard struct {
	locks  store.FormLockStore
	logger *slog.Logger
}

// NewFormGuard creates a FormGuard over locks.
func NewFormGuard(locks store.FormLockStore, logger *slog.Logger) FormGuard {
	return &formGuard{locks: locks, logger: logger}
}

func (g *formGuard) Acquire(ctx context.Context, sessionID, form string) (func(), error) {
	const op = "FormGuard.Acquire"

	err := g.locks.AcquireForm(ctx, sessionID, form)
	switch {
	case errors.Is(err, store.ErrInFlight):
		g.logger.Info("duplicate form submit rejected", "form", form)
		return nil, ErrInFlight
	case err != nil:
		return nil, domain.Internal(err, op, "Failed to lock form")
	}

	// The release must happen even if the request was canceled mid-call.
	bg := context.WithoutCancel(ctx)
	return func() {
		if err := g.locks.ReleaseForm(bg, sessionID, form); err != nil {
			g.logger.Error("failed to release form lock", "form", form, "error", err)
		}
	}, nil
}
