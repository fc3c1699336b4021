package idp

import (
	"context"
	"errors"
	"fmt"
)

// Provider defines the interface for the external identity provider that
// checks credentials and owns user accounts.
type Provider interface {
	// SignInWithPassword checks an email/password pair.
	SignInWithPassword(ctx context.Context, email, password string) (*User, error)

	// SignUp creates an email/password account.
	SignUp(ctx context.Context, email, password string) (*User, error)

	// SignInWithIDToken signs in with a credential issued by a federated
	// provider such as Google.
	SignInWithIDToken(ctx context.Context, providerID, idToken string) (*User, error)
}

// ProviderGoogle is the federated provider id for Google sign-in.
const ProviderGoogle = "google.com"

// User is the account returned by a successful sign-in.
type User struct {
	UID         string
	Email       string
	DisplayName string
}

// Error codes for identity provider operations
var (
	// EInvalidCredentials indicates an unknown email or wrong password
	EInvalidCredentials = errors.New("invalid credentials")

	// EEmailExists indicates sign-up for an email that already has an account
	EEmailExists = errors.New("email already in use")

	// EWeakPassword indicates the provider rejected the password
	EWeakPassword = errors.New("password rejected by provider")

	// EUserDisabled indicates the account has been disabled
	EUserDisabled = errors.New("account disabled")

	// ETooManyAttempts indicates the provider is throttling the account
	ETooManyAttempts = errors.New("too many attempts")

	// EUnavailable indicates the provider could not be reached
	EUnavailable = errors.New("identity provider unavailable")
)

// Error is a failed provider call. Code is the provider's own error code,
// Err the matching sentinel above when one applies.
type Error struct {
	Op   string
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("idp %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("idp %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode returns the provider error code carried by err, if any.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
