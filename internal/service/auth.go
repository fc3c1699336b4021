// Package service contains the business logic layer.
//
// Services orchestrate interactions between the session store, the identity
// provider and the backend auth API. They are responsible for:
// - Input validation
// - Step ordering for multi-step flows
// - Error translation (provider and API errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DukeRupert/authflow/internal/authapi"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/idp"
	"github.com/DukeRupert/authflow/internal/schema"
	"github.com/DukeRupert/authflow/internal/store"
)

// ErrRegistrationIncomplete is returned when the identity provider account was
// created but the backend record was not. The provider account is left behind,
// so registering again with the same email fails until support removes it.
var ErrRegistrationIncomplete = domain.Upstream(nil, "AuthService.Register",
	"Your sign-in account was created but your profile could not be saved. Please contact support before registering again.")

// RegisterClient is the part of the backend auth API account creation calls.
type RegisterClient interface {
	Register(ctx context.Context, firstName, lastName, email, password string) (*authapi.Response, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// AuthService defines sign-in, registration and sign-out.
//
// Credentials are checked by the identity provider; this service only records
// which identities a browser session has signed in as.
type AuthService interface {
	// Login checks email/password with the identity provider and appends the
	// identity to the session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, sessionID, email, password string) (*domain.Identity, error)

	// LoginWithGoogle signs in with a Google id_token and appends the identity
	// to the session. The recorded name is left empty.
	LoginWithGoogle(ctx context.Context, sessionID, idToken string) (*domain.Identity, error)

	// Register creates the provider account and then the backend record.
	// Returns *domain.ValidationError for invalid input and domain.ECONFLICT
	// if the email is taken.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error)

	// RegisterWithGoogle creates the backend record for a Google account.
	RegisterWithGoogle(ctx context.Context, idToken string) (*domain.Identity, error)

	// Logout forgets every identity of the session. Idempotent.
	Logout(ctx context.Context, sessionID string) error

	// CurrentIdentity returns the most recent identity, or nil if the session
	// has none.
	CurrentIdentity(ctx context.Context, sessionID string) (*domain.Identity, error)

	// FirstIdentity returns the identity the session first signed in as, or
	// nil if the session has none.
	FirstIdentity(ctx context.Context, sessionID string) (*domain.Identity, error)

	// Identities returns the session's identity history, oldest first.
	Identities(ctx context.Context, sessionID string) ([]domain.Identity, error)
}

// =============================================================================
// Implementation
// =============================================================================

type authService struct {
	identities store.IdentityStore
	provider   idp.Provider
	client     RegisterClient
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(identities store.IdentityStore, provider idp.Provider, client RegisterClient, logger *slog.Logger) AuthService {
	return &authService{
		identities: identities,
		provider:   provider,
		client:     client,
		logger:     logger,
	}
}

func (s *authService) Login(ctx context.Context, sessionID, email, password string) (*domain.Identity, error) {
	const op = "AuthService.Login"

	email = strings.TrimSpace(email)
	if errs := schema.ValidateLogin(schema.LoginForm{Email: email, Password: password}); !errs.Valid() {
		return nil, errs.Err(op)
	}

	user, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, providerError(err, op)
	}

	identity := domain.Identity{ID: user.UID, Name: user.DisplayName, Email: firstNonEmpty(user.Email, email)}
	if err := s.identities.Add(ctx, sessionID, identity); err != nil {
		return nil, domain.Internal(err, op, "Failed to record identity")
	}

	s.logger.Info("user signed in", "uid", identity.ID)
	return &identity, nil
}

func (s *authService) LoginWithGoogle(ctx context.Context, sessionID, idToken string) (*domain.Identity, error) {
	const op = "AuthService.LoginWithGoogle"

	user, err := s.provider.SignInWithIDToken(ctx, idp.ProviderGoogle, idToken)
	if err != nil {
		return nil, providerError(err, op)
	}

	identity := domain.Identity{ID: user.UID, Email: user.Email}
	if err := s.identities.Add(ctx, sessionID, identity); err != nil {
		return nil, domain.Internal(err, op, "Failed to record identity")
	}

	s.logger.Info("user signed in with google", "uid", identity.ID)
	return &identity, nil
}

func (s *authService) Register(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error) {
	const op = "AuthService.Register"

	params.Email = strings.TrimSpace(params.Email)

	// Handlers validate first; this guards other callers.
	errs := schema.ValidateRegister(schema.RegisterForm{
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		Email:           params.Email,
		Password:        params.Password,
		ConfirmPassword: params.Password,
	})
	if !errs.Valid() {
		return nil, errs.Err(op)
	}

	user, err := s.provider.SignUp(ctx, params.Email, params.Password)
	if err != nil {
		return nil, providerError(err, op)
	}

	email := firstNonEmpty(user.Email, params.Email)
	if _, err := s.client.Register(ctx, params.FirstName, params.LastName, email, params.Password); err != nil {
		s.logger.Error("backend registration failed after provider sign-up; provider account orphaned",
			"uid", user.UID,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrRegistrationIncomplete, apiError(err, op))
	}

	s.logger.Info("user registered", "uid", user.UID)
	return &domain.Identity{ID: user.UID, Name: params.FullName(), Email: email}, nil
}

func (s *authService) RegisterWithGoogle(ctx context.Context, idToken string) (*domain.Identity, error) {
	const op = "AuthService.RegisterWithGoogle"

	user, err := s.provider.SignInWithIDToken(ctx, idp.ProviderGoogle, idToken)
	if err != nil {
		return nil, providerError(err, op)
	}

	first, last := domain.SplitName(user.DisplayName)

	// Federated accounts never sign in with a password, but the backend
	// requires one; send a random value nobody knows.
	password, err := randomPassword()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate password")
	}

	if _, err := s.client.Register(ctx, first, last, user.Email, password); err != nil {
		return nil, apiError(err, op)
	}

	s.logger.Info("user registered with google", "uid", user.UID)
	return &domain.Identity{ID: user.UID, Name: user.DisplayName, Email: user.Email}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	const op = "AuthService.Logout"

	if sessionID == "" {
		return nil
	}
	if err := s.identities.Clear(ctx, sessionID); err != nil {
		return domain.Internal(err, op, "Failed to clear identities")
	}
	return nil
}

func (s *authService) CurrentIdentity(ctx context.Context, sessionID string) (*domain.Identity, error) {
	const op = "AuthService.CurrentIdentity"

	if sessionID == "" {
		return nil, nil
	}
	identity, ok, err := store.Current(ctx, s.identities, sessionID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load identity")
	}
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (s *authService) FirstIdentity(ctx context.Context, sessionID string) (*domain.Identity, error) {
	const op = "AuthService.FirstIdentity"

	if sessionID == "" {
		return nil, nil
	}
	identity, ok, err := store.First(ctx, s.identities, sessionID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load identity")
	}
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (s *authService) Identities(ctx context.Context, sessionID string) ([]domain.Identity, error) {
	const op = "AuthService.Identities"

	list, err := s.identities.List(ctx, sessionID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load identities")
	}
	return list, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// providerError translates identity provider failures into domain errors.
func providerError(err error, op string) error {
	switch {
	case errors.Is(err, idp.EInvalidCredentials):
		return domain.Wrap(err, domain.EUNAUTHORIZED, op, "Invalid email or password")
	case errors.Is(err, idp.EEmailExists):
		return domain.Wrap(err, domain.ECONFLICT, op, "An account with this email already exists")
	case errors.Is(err, idp.EWeakPassword):
		return domain.Wrap(err, domain.EINVALID, op, "Password was rejected, please choose a stronger one")
	case errors.Is(err, idp.EUserDisabled):
		return domain.Wrap(err, domain.EFORBIDDEN, op, "This account has been disabled")
	case errors.Is(err, idp.ETooManyAttempts):
		return domain.Wrap(err, domain.ERATELIMIT, op, "Too many attempts, please try again later")
	default:
		return domain.Upstream(err, op, "Sign-in is temporarily unavailable, please try again")
	}
}

// apiError translates backend auth API failures into domain errors.
func apiError(err error, op string) error {
	var apiErr *authapi.Error
	if errors.As(err, &apiErr) {
		return domain.Upstream(err, op, apiErr.Error())
	}
	return domain.Upstream(err, op, "The request could not be completed, please try again")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// randomPassword returns a password that satisfies the backend policy and is
// never shown to anyone.
func randomPassword() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "Aa1!" + base64.RawURLEncoding.EncodeToString(b), nil
}
