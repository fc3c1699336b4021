package identitytoolkit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/DukeRupert/authflow/internal/idp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(Config{APIKey: "test-key", BaseURL: srv.URL}, newTestLogger())
	require.NoError(t, err)
	return p
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, newTestLogger())
	assert.Error(t, err)
}

func TestSignInWithPassword(t *testing.T) {
	var gotPath, gotKey string
	var gotBody passwordRequest

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"localId":"uid-1","email":"ada@example.com","displayName":"Ada Lovelace","idToken":"tok"}`)
	})

	user, err := p.SignInWithPassword(context.Background(), "ada@example.com", "Abcdef1!")
	require.NoError(t, err)

	assert.Equal(t, "/accounts:signInWithPassword", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "ada@example.com", gotBody.Email)
	assert.True(t, gotBody.ReturnSecureToken)
	assert.Equal(t, &idp.User{UID: "uid-1", Email: "ada@example.com", DisplayName: "Ada Lovelace"}, user)
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`)
	})

	_, err := p.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, idp.EInvalidCredentials)
	assert.Equal(t, "INVALID_LOGIN_CREDENTIALS", idp.ErrorCode(err))
}

func TestSignUp_ErrorCodes(t *testing.T) {
	testCases := []struct {
		message string
		want    error
		code    string
	}{
		{"EMAIL_EXISTS", idp.EEmailExists, "EMAIL_EXISTS"},
		{"WEAK_PASSWORD : Password should be at least 6 characters", idp.EWeakPassword, "WEAK_PASSWORD"},
		{"TOO_MANY_ATTEMPTS_TRY_LATER", idp.ETooManyAttempts, "TOO_MANY_ATTEMPTS_TRY_LATER"},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": 400, "message": tc.message},
				})
			})

			_, err := p.SignUp(context.Background(), "ada@example.com", "Abcdef1!")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.code, idp.ErrorCode(err))
		})
	}
}

func TestSignUp_ServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.SignUp(context.Background(), "ada@example.com", "Abcdef1!")
	assert.ErrorIs(t, err, idp.EUnavailable)
	assert.Equal(t, "HTTP_502", idp.ErrorCode(err))
}

func TestSignInWithIDToken(t *testing.T) {
	var gotBody idpRequest

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signInWithIdp", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"localId":"uid-g","email":"g@example.com","fullName":"Grace Hopper"}`)
	})

	user, err := p.SignInWithIDToken(context.Background(), idp.ProviderGoogle, "google-jwt")
	require.NoError(t, err)

	form, err := url.ParseQuery(gotBody.PostBody)
	require.NoError(t, err)
	assert.Equal(t, "google-jwt", form.Get("id_token"))
	assert.Equal(t, "google.com", form.Get("providerId"))
	assert.Equal(t, "http://localhost", gotBody.RequestURI)
	assert.Equal(t, "Grace Hopper", user.DisplayName)
	assert.Equal(t, "uid-g", user.UID)
}

func TestSignInWithIDToken_Empty(t *testing.T) {
	calls := 0
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) { calls++ })

	_, err := p.SignInWithIDToken(context.Background(), idp.ProviderGoogle, "")
	assert.ErrorIs(t, err, idp.EInvalidCredentials)
	assert.Zero(t, calls)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	p, err := New(Config{APIKey: "k", BaseURL: base}, newTestLogger())
	require.NoError(t, err)

	_, err = p.SignInWithPassword(context.Background(), "a@b.co", "x")
	assert.ErrorIs(t, err, idp.EUnavailable)
}
