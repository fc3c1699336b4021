package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/authflow/internal/authapi"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/metrics"
	"github.com/DukeRupert/authflow/internal/store"
	"github.com/DukeRupert/authflow/internal/worker"
)

// Reset flow errors. Handlers send the user back to the first step on
// ErrNoSession and ErrExpired. ErrInFlight is also returned by FormGuard.
var (
	ErrNoSession  = domain.Errorf(domain.ENOTFOUND, "reset", "Please start the password reset again.")
	ErrExpired    = domain.Gone("reset", "Your password reset session expired. Please start again.")
	ErrOutOfOrder = domain.Invalid("reset", "Please complete the password reset steps in order.")
	ErrInFlight   = domain.Conflict("reset", "Your previous submission is still being processed.")
)

// ResetClient is the part of the backend auth API the reset flow calls.
// *authapi.Client implements it.
type ResetClient interface {
	RequestReset(ctx context.Context, email string) (*authapi.Response, error)
	VerifyCode(ctx context.Context, email string, code int) (*authapi.Response, error)
	UpdatePassword(ctx context.Context, email, password string) (*authapi.Response, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// ResetService drives the forgot-password sequence:
// RequestEmail -> VerifyCode -> SetPassword -> Done.
//
// Each step is threaded to the next by an opaque continuation token. Only its
// hash is stored, alongside the email entered in the first step and the step
// the holder may submit next.
type ResetService interface {
	// Start asks the backend to send a reset code and opens a session at the
	// VerifyCode step. Returns the raw token to hand to the browser.
	Start(ctx context.Context, email string) (*domain.ResetStart, error)

	// VerifyCode submits the code for the session's email and advances the
	// session to SetPassword when the backend accepts it.
	VerifyCode(ctx context.Context, token string, code int) error

	// SetPassword submits the new password and ends the session when the
	// backend accepts it.
	SetPassword(ctx context.Context, token, password string) error

	// Session returns the live session for token, for gating page views.
	// Returns ErrNoSession or ErrExpired when the token is unusable.
	Session(ctx context.Context, token string) (*domain.ResetSession, error)

	// Cancel drops the session for token. Idempotent.
	Cancel(ctx context.Context, token string) error

	// DeleteExpired removes expired sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)

	// SweepTask returns the periodic task that calls DeleteExpired.
	SweepTask() worker.Task
}

// ResetConfig configures the reset flow.
type ResetConfig struct {
	// TTL is how long a session stays usable after the first step.
	// Default: domain.ResetSessionDuration
	TTL time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

type resetService struct {
	store  store.ResetStore
	client ResetClient
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewResetService creates a new ResetService.
func NewResetService(st store.ResetStore, client ResetClient, cfg ResetConfig, logger *slog.Logger) ResetService {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.ResetSessionDuration
	}
	return &resetService{
		store:  st,
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
		now:    time.Now,
	}
}

func (s *resetService) Start(ctx context.Context, email string) (*domain.ResetStart, error) {
	const op = "ResetService.Start"
	step := string(domain.ResetStepRequestEmail)

	email = strings.TrimSpace(email)

	if _, err := s.client.RequestReset(ctx, email); err != nil {
		metrics.ResetTransition(step, metrics.OutcomeFailure)
		return nil, err
	}

	rawToken, err := generateResetToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate reset token")
	}

	now := s.now()
	session := &domain.ResetSession{
		TokenHash: hashResetToken(rawToken),
		Email:     email,
		Step:      domain.ResetStepVerifyCode,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, domain.Internal(err, op, "Failed to store reset session")
	}

	metrics.ResetTransition(step, metrics.OutcomeSuccess)
	s.logger.Info("reset session started", "expires_at", session.ExpiresAt)

	return &domain.ResetStart{Token: rawToken, ExpiresAt: session.ExpiresAt}, nil
}

func (s *resetService) VerifyCode(ctx context.Context, token string, code int) error {
	return s.advance(ctx, token, domain.ResetStepVerifyCode, func(session *domain.ResetSession) error {
		_, err := s.client.VerifyCode(ctx, session.Email, code)
		return err
	})
}

func (s *resetService) SetPassword(ctx context.Context, token, password string) error {
	return s.advance(ctx, token, domain.ResetStepSetPassword, func(session *domain.ResetSession) error {
		_, err := s.client.UpdatePassword(ctx, session.Email, password)
		return err
	})
}

// advance holds the session for the duration of call, which only runs if the
// session is live and at step. On success the session moves to the next step,
// or is deleted once the sequence is done.
func (s *resetService) advance(ctx context.Context, token string, step domain.ResetStep, call func(*domain.ResetSession) error) error {
	const op = "ResetService.advance"
	label := string(step)

	if token == "" {
		metrics.ResetTransition(label, metrics.OutcomeRejected)
		return ErrNoSession
	}
	hash := hashResetToken(token)

	session, err := s.store.Acquire(ctx, hash)
	switch {
	case errors.Is(err, store.ErrNotFound):
		metrics.ResetTransition(label, metrics.OutcomeRejected)
		return ErrNoSession
	case errors.Is(err, store.ErrInFlight):
		metrics.ResetTransition(label, metrics.OutcomeRejected)
		return ErrInFlight
	case err != nil:
		return domain.Internal(err, op, "Failed to load reset session")
	}

	// The release must happen even if the request was canceled mid-call.
	bg := context.WithoutCancel(ctx)

	if !s.now().Before(session.ExpiresAt) {
		if err := s.store.Delete(bg, hash); err != nil {
			s.logger.Error("failed to delete expired reset session", "error", err)
		}
		metrics.ResetTransition(label, metrics.OutcomeRejected)
		return ErrExpired
	}

	if !session.Allows(step) {
		s.release(bg, hash, session.Step)
		metrics.ResetTransition(label, metrics.OutcomeRejected)
		return ErrOutOfOrder
	}

	if err := call(session); err != nil {
		s.release(bg, hash, step)
		metrics.ResetTransition(label, metrics.OutcomeFailure)
		return err
	}

	next := step.Next()
	if next == domain.ResetStepDone {
		if err := s.store.Delete(bg, hash); err != nil {
			s.logger.Error("failed to delete finished reset session", "error", err)
		}
	} else {
		s.release(bg, hash, next)
	}

	metrics.ResetTransition(label, metrics.OutcomeSuccess)
	s.logger.Info("reset step completed", "step", step, "next", next)
	return nil
}

func (s *resetService) release(ctx context.Context, hash string, step domain.ResetStep) {
	if err := s.store.Release(ctx, hash, step); err != nil {
		s.logger.Error("failed to release reset session", "error", err, "step", step)
	}
}

func (s *resetService) Session(ctx context.Context, token string) (*domain.ResetSession, error) {
	const op = "ResetService.Session"

	if token == "" {
		return nil, ErrNoSession
	}
	session, err := s.store.Get(ctx, hashResetToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load reset session")
	}
	if !s.now().Before(session.ExpiresAt) {
		return nil, ErrExpired
	}
	return session, nil
}

func (s *resetService) Cancel(ctx context.Context, token string) error {
	const op = "ResetService.Cancel"

	if token == "" {
		return nil
	}
	if err := s.store.Delete(ctx, hashResetToken(token)); err != nil {
		return domain.Internal(err, op, "Failed to delete reset session")
	}
	return nil
}

func (s *resetService) DeleteExpired(ctx context.Context) (int64, error) {
	const op = "ResetService.DeleteExpired"

	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired reset sessions")
	}
	metrics.SessionsSwept(n)
	if n > 0 {
		s.logger.Info("expired reset sessions removed", "count", n)
	}
	return n, nil
}

func (s *resetService) SweepTask() worker.Task {
	return worker.TaskFunc{
		TaskName: "sweep_reset_sessions",
		Fn: func(ctx context.Context) error {
			_, err := s.DeleteExpired(ctx)
			return err
		},
	}
}

// generateResetToken creates a cryptographically secure random token.
func generateResetToken() (string, error) {
	bytes := make([]byte, domain.ResetTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashResetToken returns the hex SHA-256 of a raw token. Tokens are
// high-entropy random values, so a fast hash is enough.
func hashResetToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
