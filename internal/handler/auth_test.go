package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/authflow/internal/auth"
	"github.com/DukeRupert/authflow/internal/csrf"
	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/service"
	"github.com/DukeRupert/authflow/internal/session"
	"github.com/DukeRupert/authflow/internal/store"
	authpages "github.com/DukeRupert/authflow/internal/templ/pages/auth"
	"github.com/DukeRupert/authflow/internal/templ/shared"
)

// =============================================================================
// Mock AuthService Implementation
// =============================================================================

// mockAuthService implements the service.AuthService interface for testing.
type mockAuthService struct {
	LoginFunc              func(ctx context.Context, sessionID, email, password string) (*domain.Identity, error)
	LoginWithGoogleFunc    func(ctx context.Context, sessionID, idToken string) (*domain.Identity, error)
	RegisterFunc           func(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error)
	RegisterWithGoogleFunc func(ctx context.Context, idToken string) (*domain.Identity, error)
	LogoutFunc             func(ctx context.Context, sessionID string) error
	CurrentIdentityFunc    func(ctx context.Context, sessionID string) (*domain.Identity, error)
	FirstIdentityFunc      func(ctx context.Context, sessionID string) (*domain.Identity, error)
	IdentitiesFunc         func(ctx context.Context, sessionID string) ([]domain.Identity, error)

	calls int
}

func (m *mockAuthService) Login(ctx context.Context, sessionID, email, password string) (*domain.Identity, error) {
	m.calls++
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, sessionID, email, password)
	}
	return nil, errors.New("LoginFunc not implemented")
}

func (m *mockAuthService) LoginWithGoogle(ctx context.Context, sessionID, idToken string) (*domain.Identity, error) {
	m.calls++
	if m.LoginWithGoogleFunc != nil {
		return m.LoginWithGoogleFunc(ctx, sessionID, idToken)
	}
	return nil, errors.New("LoginWithGoogleFunc not implemented")
}

func (m *mockAuthService) Register(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error) {
	m.calls++
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("RegisterFunc not implemented")
}

func (m *mockAuthService) RegisterWithGoogle(ctx context.Context, idToken string) (*domain.Identity, error) {
	m.calls++
	if m.RegisterWithGoogleFunc != nil {
		return m.RegisterWithGoogleFunc(ctx, idToken)
	}
	return nil, errors.New("RegisterWithGoogleFunc not implemented")
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	m.calls++
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) CurrentIdentity(ctx context.Context, sessionID string) (*domain.Identity, error) {
	if m.CurrentIdentityFunc != nil {
		return m.CurrentIdentityFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) FirstIdentity(ctx context.Context, sessionID string) (*domain.Identity, error) {
	if m.FirstIdentityFunc != nil {
		return m.FirstIdentityFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) Identities(ctx context.Context, sessionID string) ([]domain.Identity, error) {
	if m.IdentitiesFunc != nil {
		return m.IdentitiesFunc(ctx, sessionID)
	}
	return nil, nil
}

// =============================================================================
// Mock Renderer
// =============================================================================

type renderCall struct {
	status int
	name   string
	data   any
}

// mockRenderer records render calls and writes only the status.
type mockRenderer struct {
	calls []renderCall
}

func (m *mockRenderer) RenderHTTP(w http.ResponseWriter, r *http.Request, name string, data any) {
	m.RenderHTTPStatus(w, r, http.StatusOK, name, data)
}

func (m *mockRenderer) RenderHTTPStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	m.calls = append(m.calls, renderCall{status: status, name: name, data: data})
	w.WriteHeader(status)
}

func (m *mockRenderer) last(t *testing.T) renderCall {
	t.Helper()
	require.NotEmpty(t, m.calls, "expected a page to be rendered")
	return m.calls[len(m.calls)-1]
}

// =============================================================================
// Test Helpers
// =============================================================================

const testSessionID = "7d5b0bd4-5f3f-4c53-9a55-6a3f0c0f0f01"

func newTestAuthHandler(svc *mockAuthService) (*AuthHandler, *mockRenderer) {
	renderer := &mockRenderer{}
	forms := service.NewFormGuard(store.NewMemoryStore(), discardLogger())
	return NewAuthHandler(svc, forms, renderer, discardLogger(), false, ""), renderer
}

// newFormRequest builds a POST as it arrives after the session and CSRF
// middleware ran.
func newFormRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ctx := auth.SetSessionID(req.Context(), testSessionID)
	ctx = csrf.NewContext(ctx, "test-csrf-token")
	return req.WithContext(ctx)
}

func newGetRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := auth.SetSessionID(req.Context(), testSessionID)
	ctx = csrf.NewContext(ctx, "test-csrf-token")
	return req.WithContext(ctx)
}

func validRegisterForm() url.Values {
	return url.Values{
		"firstName":       {"Ada"},
		"lastName":        {"Lovelace"},
		"email":           {"ada@example.com"},
		"password":        {"Secret#123"},
		"confirmPassword": {"Secret#123"},
	}
}

// =============================================================================
// ShowLogin Tests
// =============================================================================

func TestShowLogin_Flash(t *testing.T) {
	tests := []struct {
		query string
		want  *shared.Flash
	}{
		{"", nil},
		{"?registered=1", shared.SuccessFlash("Account created successfully! Please sign in.")},
		{"?reset=1", shared.SuccessFlash("Password reset successfully! Please sign in with your new password.")},
		{"?logout=1", shared.SuccessFlash("You have been signed out.")},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h, renderer := newTestAuthHandler(&mockAuthService{})
			rec := httptest.NewRecorder()
			h.ShowLogin(rec, newGetRequest("/auth/login"+tt.query))

			call := renderer.last(t)
			assert.Equal(t, http.StatusOK, call.status)
			assert.Equal(t, authpages.PageLogin, call.name)

			data := call.data.(authpages.LoginPageData)
			assert.Equal(t, tt.want, data.Flash)
			assert.Equal(t, "test-csrf-token", data.CSRFToken)
		})
	}
}

func TestShowLogin_DropsUnsafeReturnTo(t *testing.T) {
	h, renderer := newTestAuthHandler(&mockAuthService{})
	h.ShowLogin(httptest.NewRecorder(), newGetRequest("/auth/login?return_to=https://evil.example"))

	data := renderer.last(t).data.(authpages.LoginPageData)
	assert.Empty(t, data.ReturnTo)
}

// =============================================================================
// Login Tests
// =============================================================================

func TestLogin_InvalidInputNeverCallsService(t *testing.T) {
	svc := &mockAuthService{}
	h, renderer := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Login(rec, newFormRequest("/auth/login", url.Values{
		"email":    {"not-an-email"},
		"password": {"short"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, svc.calls, "service must not be called")

	data := renderer.last(t).data.(authpages.LoginPageData)
	assert.Equal(t, "Invalid email address", data.Errors["email"])
	assert.Equal(t, "Password must be at least 8 characters", data.Errors["password"])
	assert.Equal(t, "not-an-email", data.Form.Email)
}

func TestLogin_Success(t *testing.T) {
	var gotSession, gotEmail, gotPassword string
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, sessionID, email, password string) (*domain.Identity, error) {
			gotSession, gotEmail, gotPassword = sessionID, email, password
			return &domain.Identity{ID: "uid-1", Email: email}, nil
		},
	}
	h, renderer := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Login(rec, newFormRequest("/auth/login", url.Values{
		"email":    {"  ada@example.com "},
		"password": {"password123"},
	}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, renderer.calls)

	assert.Equal(t, testSessionID, gotSession)
	assert.Equal(t, "ada@example.com", gotEmail)
	assert.Equal(t, "password123", gotPassword)
}

func TestLogin_ReturnTo(t *testing.T) {
	tests := []struct {
		name     string
		returnTo string
		want     string
	}{
		{"safe relative", "/?tab=history", "/?tab=history"},
		{"absolute url", "https://evil.example/", "/"},
		{"protocol relative", "//evil.example", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				LoginFunc: func(ctx context.Context, sessionID, email, password string) (*domain.Identity, error) {
					return &domain.Identity{ID: "uid-1", Email: email}, nil
				},
			}
			h, _ := newTestAuthHandler(svc)

			rec := httptest.NewRecorder()
			h.Login(rec, newFormRequest("/auth/login", url.Values{
				"email":     {"ada@example.com"},
				"password":  {"password123"},
				"return_to": {tt.returnTo},
			}))

			assert.Equal(t, tt.want, rec.Header().Get("Location"))
		})
	}
}

func TestLogin_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantFlash  string
	}{
		{
			name:       "invalid credentials",
			err:        domain.Unauthorized("AuthService.Login", "Invalid email or password"),
			wantStatus: http.StatusUnauthorized,
			wantFlash:  "Invalid email or password",
		},
		{
			name:       "provider unavailable",
			err:        domain.Upstream(errors.New("dial tcp: timeout"), "AuthService.Login", "Sign-in is temporarily unavailable, please try again"),
			wantStatus: http.StatusBadGateway,
			wantFlash:  "Sign-in failed. Please try again later.",
		},
		{
			name:       "unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantFlash:  "Sign-in failed. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockAuthService{
				LoginFunc: func(ctx context.Context, sessionID, email, password string) (*domain.Identity, error) {
					return nil, tt.err
				},
			}
			h, renderer := newTestAuthHandler(svc)

			rec := httptest.NewRecorder()
			h.Login(rec, newFormRequest("/auth/login", url.Values{
				"email":    {"ada@example.com"},
				"password": {"password123"},
			}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			data := renderer.last(t).data.(authpages.LoginPageData)
			require.NotNil(t, data.Flash)
			assert.Equal(t, shared.FlashError, data.Flash.Type)
			assert.Equal(t, tt.wantFlash, data.Flash.Message)
			assert.Equal(t, "ada@example.com", data.Form.Email)
		})
	}
}

func TestLogin_DuplicateSubmitInFlight(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(ctx context.Context, sessionID, email, password string) (*domain.Identity, error) {
			return &domain.Identity{ID: "uid-1", Email: email}, nil
		},
	}
	h, renderer := newTestAuthHandler(svc)
	form := url.Values{"email": {"ada@example.com"}, "password": {"password123"}}

	release, err := h.forms.Acquire(context.Background(), testSessionID, service.FormLogin)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Login(rec, newFormRequest("/auth/login", form))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, svc.calls)
	data := renderer.last(t).data.(authpages.LoginPageData)
	require.NotNil(t, data.Flash)
	assert.Equal(t, shared.FlashInfo, data.Flash.Type)
	assert.Equal(t, "Your previous submission is still being processed.", data.Flash.Message)

	// Once the first submit finishes the form works again.
	release()
	rec = httptest.NewRecorder()
	h.Login(rec, newFormRequest("/auth/login", form))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 1, svc.calls)
}

// =============================================================================
// Google Sign-In Tests
// =============================================================================

func googleRequest(path, cookieToken, formToken, credential string) *http.Request {
	req := newFormRequest(path, url.Values{
		csrf.GoogleFieldName: {formToken},
		"credential":         {credential},
	})
	if cookieToken != "" {
		req.AddCookie(&http.Cookie{Name: csrf.GoogleFieldName, Value: cookieToken})
	}
	return req
}

func TestLoginGoogle_RejectsBadCSRF(t *testing.T) {
	svc := &mockAuthService{}
	h, _ := newTestAuthHandler(svc)

	for name, req := range map[string]*http.Request{
		"no cookie": googleRequest("/auth/login/google", "", "g-token", "jwt"),
		"mismatch":  googleRequest("/auth/login/google", "g-token", "other", "jwt"),
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.LoginGoogle(rec, req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
	assert.Zero(t, svc.calls)
}

func TestLoginGoogle_MissingCredential(t *testing.T) {
	svc := &mockAuthService{}
	h, _ := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.LoginGoogle(rec, googleRequest("/auth/login/google", "g-token", "g-token", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.calls)
}

func TestLoginGoogle_Success(t *testing.T) {
	var gotToken string
	svc := &mockAuthService{
		LoginWithGoogleFunc: func(ctx context.Context, sessionID, idToken string) (*domain.Identity, error) {
			gotToken = idToken
			return &domain.Identity{ID: "g-1", Email: "ada@example.com"}, nil
		},
	}
	h, _ := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.LoginGoogle(rec, googleRequest("/auth/login/google", "g-token", "g-token", "header.payload.sig"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "header.payload.sig", gotToken)
}

func TestRegisterGoogle_Success(t *testing.T) {
	svc := &mockAuthService{
		RegisterWithGoogleFunc: func(ctx context.Context, idToken string) (*domain.Identity, error) {
			return &domain.Identity{ID: "g-1", Email: "ada@example.com"}, nil
		},
	}
	h, _ := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.RegisterGoogle(rec, googleRequest("/auth/register/google", "g-token", "g-token", "jwt"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?registered=1", rec.Header().Get("Location"))
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegister_Success(t *testing.T) {
	var got domain.RegisterParams
	svc := &mockAuthService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error) {
			got = params
			return &domain.Identity{ID: "uid-1", Name: params.FullName(), Email: params.Email}, nil
		},
	}
	h, _ := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Register(rec, newFormRequest("/auth/register", validRegisterForm()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?registered=1", rec.Header().Get("Location"))
	assert.Equal(t, domain.RegisterParams{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "Secret#123",
	}, got)
}

func TestRegister_InvalidEmailNeverCallsService(t *testing.T) {
	svc := &mockAuthService{}
	h, renderer := newTestAuthHandler(svc)

	form := validRegisterForm()
	form.Set("email", "not-an-email")

	rec := httptest.NewRecorder()
	h.Register(rec, newFormRequest("/auth/register", form))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, svc.calls, "service must not be called")
	data := renderer.last(t).data.(authpages.RegisterPageData)
	assert.Equal(t, "Invalid email address", data.Errors["email"])
	assert.Equal(t, "not-an-email", data.Form.Email)
}

func TestRegister_DoubleClickReachesServiceOnce(t *testing.T) {
	started := make(chan struct{})
	proceed := make(chan struct{})
	svc := &mockAuthService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error) {
			close(started)
			<-proceed
			return &domain.Identity{ID: "uid-1", Email: params.Email}, nil
		},
	}
	h, renderer := newTestAuthHandler(svc)

	first := httptest.NewRecorder()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.Register(first, newFormRequest("/auth/register", validRegisterForm()))
	}()
	<-started

	second := httptest.NewRecorder()
	h.Register(second, newFormRequest("/auth/register", validRegisterForm()))

	close(proceed)
	wg.Wait()

	assert.Equal(t, http.StatusSeeOther, first.Code)
	assert.Equal(t, "/auth/login?registered=1", first.Header().Get("Location"))

	assert.Equal(t, http.StatusConflict, second.Code)
	data := renderer.last(t).data.(authpages.RegisterPageData)
	require.NotNil(t, data.Flash)
	assert.Equal(t, shared.FlashInfo, data.Flash.Type)
	assert.Equal(t, "Your previous submission is still being processed.", data.Flash.Message)
	assert.Empty(t, data.Errors, "the duplicate is not reported as a taken email")

	assert.Equal(t, 1, svc.calls)
}

func TestRegister_MismatchedPasswords(t *testing.T) {
	svc := &mockAuthService{}
	h, renderer := newTestAuthHandler(svc)

	form := validRegisterForm()
	form.Set("confirmPassword", "Secret#124")

	rec := httptest.NewRecorder()
	h.Register(rec, newFormRequest("/auth/register", form))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Zero(t, svc.calls)

	data := renderer.last(t).data.(authpages.RegisterPageData)
	assert.Equal(t, map[string]string{"confirmPassword": "Passwords must match"}, data.Errors)
	assert.Equal(t, authpages.FormData{Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}, data.Form)
}

func TestRegister_WeakPassword(t *testing.T) {
	svc := &mockAuthService{}
	h, renderer := newTestAuthHandler(svc)

	form := validRegisterForm()
	form.Set("password", "secret#123")
	form.Set("confirmPassword", "secret#123")

	rec := httptest.NewRecorder()
	h.Register(rec, newFormRequest("/auth/register", form))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	data := renderer.last(t).data.(authpages.RegisterPageData)
	assert.Equal(t, "Password must contain at least one uppercase letter", data.Errors["password"])
	assert.Zero(t, svc.calls)
}

func TestRegister_EmailTaken(t *testing.T) {
	svc := &mockAuthService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error) {
			return nil, domain.Conflict("AuthService.Register", "An account with this email already exists")
		},
	}
	h, renderer := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Register(rec, newFormRequest("/auth/register", validRegisterForm()))

	assert.Equal(t, http.StatusConflict, rec.Code)
	data := renderer.last(t).data.(authpages.RegisterPageData)
	assert.Equal(t, "An account with this email already exists", data.Errors["email"])
}

func TestRegister_BackendFailureShowsGenericFlash(t *testing.T) {
	svc := &mockAuthService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error) {
			return nil, domain.Upstream(errors.New("503"), "AuthService.Register", "Registration failed: unavailable")
		},
	}
	h, renderer := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Register(rec, newFormRequest("/auth/register", validRegisterForm()))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	data := renderer.last(t).data.(authpages.RegisterPageData)
	require.NotNil(t, data.Flash)
	assert.Equal(t, "Registration failed. Please try again later.", data.Flash.Message)
}

func TestRegister_IncompleteRegistrationShowsBanner(t *testing.T) {
	svc := &mockAuthService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.Identity, error) {
			return nil, fmt.Errorf("%w: %w", service.ErrRegistrationIncomplete, errors.New("backend 503"))
		},
	}
	h, renderer := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Register(rec, newFormRequest("/auth/register", validRegisterForm()))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	data := renderer.last(t).data.(authpages.RegisterPageData)
	require.NotNil(t, data.Flash)
	assert.Equal(t, shared.FlashError, data.Flash.Type)
	assert.Equal(t, domain.ErrorMessage(service.ErrRegistrationIncomplete), data.Flash.Message)
}

// =============================================================================
// Logout Tests
// =============================================================================

func TestLogout(t *testing.T) {
	var cleared string
	svc := &mockAuthService{
		LogoutFunc: func(ctx context.Context, sessionID string) error {
			cleared = sessionID
			return nil
		},
	}
	h, _ := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Logout(rec, newFormRequest("/auth/logout", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?logout=1", rec.Header().Get("Location"))
	assert.Equal(t, testSessionID, cleared)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "session cookie should be cleared")
	assert.Less(t, sessionCookie.MaxAge, 0)
}

func TestLogout_StoreErrorStillRedirects(t *testing.T) {
	svc := &mockAuthService{
		LogoutFunc: func(ctx context.Context, sessionID string) error {
			return errors.New("connection reset")
		},
	}
	h, _ := newTestAuthHandler(svc)

	rec := httptest.NewRecorder()
	h.Logout(rec, newFormRequest("/auth/logout", url.Values{}))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login?logout=1", rec.Header().Get("Location"))
}

// =============================================================================
// Redirect Validation Tests
// =============================================================================

func TestIsSafeRedirectURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"/", true},
		{"/?tab=history", true},
		{"/auth/login", true},
		{"", false},
		{"//evil.com", false},
		{"/\\evil.com", false},
		{"https://evil.com", false},
		{"javascript:alert(1)", false},
		{"evil.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, isSafeRedirectURL(tt.url))
		})
	}
}
