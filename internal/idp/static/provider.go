// Package static is an in-memory identity provider for development and tests.
package static

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/DukeRupert/authflow/internal/idp"
	"github.com/google/uuid"
)

type account struct {
	user     idp.User
	password string
}

// Provider keeps accounts in memory. Passwords are compared as given; it is
// never meant to face real users.
type Provider struct {
	logger *slog.Logger

	mu       sync.Mutex
	accounts map[string]account
	// IDTokens maps a federated id_token to the user it signs in.
	IDTokens map[string]idp.User

	// Configurable errors for testing
	SignInError            error
	SignUpError            error
	SignInWithIDTokenError error

	// Call tracking for testing
	SignInCalls            int
	SignUpCalls            int
	SignInWithIDTokenCalls int
}

// New creates an empty static provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger:   logger,
		accounts: make(map[string]account),
		IDTokens: make(map[string]idp.User),
	}
}

// AddUser seeds an account.
func (p *Provider) AddUser(email, password, displayName string) idp.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addLocked(email, password, displayName)
}

func (p *Provider) addLocked(email, password, displayName string) idp.User {
	u := idp.User{UID: uuid.NewString(), Email: email, DisplayName: displayName}
	p.accounts[strings.ToLower(email)] = account{user: u, password: password}
	return u
}

// SignInWithPassword checks the pair against seeded accounts
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*idp.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SignInCalls++

	if p.SignInError != nil {
		return nil, p.SignInError
	}

	a, ok := p.accounts[strings.ToLower(email)]
	if !ok || a.password != password {
		return nil, &idp.Error{Op: "signInWithPassword", Code: "INVALID_LOGIN_CREDENTIALS", Err: idp.EInvalidCredentials}
	}
	u := a.user
	return &u, nil
}

// SignUp adds an account unless the email is taken
func (p *Provider) SignUp(ctx context.Context, email, password string) (*idp.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SignUpCalls++

	if p.SignUpError != nil {
		return nil, p.SignUpError
	}

	if _, ok := p.accounts[strings.ToLower(email)]; ok {
		return nil, &idp.Error{Op: "signUp", Code: "EMAIL_EXISTS", Err: idp.EEmailExists}
	}
	u := p.addLocked(email, password, "")
	p.logger.Debug("static idp account created", "uid", u.UID)
	return &u, nil
}

// SignInWithIDToken looks the token up in IDTokens
func (p *Provider) SignInWithIDToken(ctx context.Context, providerID, idToken string) (*idp.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SignInWithIDTokenCalls++

	if p.SignInWithIDTokenError != nil {
		return nil, p.SignInWithIDTokenError
	}

	u, ok := p.IDTokens[idToken]
	if !ok {
		return nil, &idp.Error{Op: "signInWithIdp", Code: "INVALID_IDP_RESPONSE", Err: idp.EInvalidCredentials}
	}
	return &u, nil
}
