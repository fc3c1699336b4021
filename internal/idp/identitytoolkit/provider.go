// Package identitytoolkit implements idp.Provider against the Google Identity
// Toolkit REST API, the service behind Firebase Authentication.
package identitytoolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DukeRupert/authflow/internal/idp"
	"github.com/DukeRupert/authflow/internal/metrics"
)

const (
	// APIBaseURL is the base URL for the Identity Toolkit API
	APIBaseURL = "https://identitytoolkit.googleapis.com/v1"

	// DefaultTimeout bounds a single request
	DefaultTimeout = 15 * time.Second
)

// Config contains configuration for the Identity Toolkit provider
type Config struct {
	APIKey  string
	BaseURL string
	// RequestURI is sent with federated sign-ins; the API requires a valid URL.
	RequestURI string
	Timeout    time.Duration
}

// Provider implements idp.Provider using the Identity Toolkit REST API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Identity Toolkit provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("identity toolkit API key is required")
	}

	// Set defaults
	if config.BaseURL == "" {
		config.BaseURL = APIBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.RequestURI == "" {
		config.RequestURI = "http://localhost"
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Provider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type idpRequest struct {
	PostBody            string `json:"postBody"`
	RequestURI          string `json:"requestUri"`
	ReturnSecureToken   bool   `json:"returnSecureToken"`
	ReturnIdpCredential bool   `json:"returnIdpCredential"`
}

type accountResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword calls accounts:signInWithPassword
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*idp.User, error) {
	return p.account(ctx, "signInWithPassword", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
}

// SignUp calls accounts:signUp
func (p *Provider) SignUp(ctx context.Context, email, password string) (*idp.User, error) {
	return p.account(ctx, "signUp", passwordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
}

// SignInWithIDToken calls accounts:signInWithIdp with a provider-issued id_token
func (p *Provider) SignInWithIDToken(ctx context.Context, providerID, idToken string) (*idp.User, error) {
	if idToken == "" {
		return nil, &idp.Error{Op: "signInWithIdp", Code: "MISSING_ID_TOKEN", Err: idp.EInvalidCredentials}
	}

	postBody := url.Values{}
	postBody.Set("id_token", idToken)
	postBody.Set("providerId", providerID)

	return p.account(ctx, "signInWithIdp", idpRequest{
		PostBody:            postBody.Encode(),
		RequestURI:          p.config.RequestURI,
		ReturnSecureToken:   true,
		ReturnIdpCredential: true,
	})
}

// account posts body to accounts:<method> and decodes the account
func (p *Provider) account(ctx context.Context, method string, body any) (*idp.User, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/accounts:%s?key=%s", p.config.BaseURL, method, url.QueryEscape(p.config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	user, err := p.execute(req, method)
	metrics.IDPCall(method, err == nil)
	if err != nil {
		p.logger.Warn("identity provider call failed", "method", method, "code", idp.ErrorCode(err))
		return nil, err
	}
	return user, nil
}

// execute runs a single request
func (p *Provider) execute(req *http.Request, method string) (*idp.User, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &idp.Error{Op: method, Err: errors.Join(idp.EUnavailable, err)}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &idp.Error{Op: method, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapAPIError(method, resp.StatusCode, bodyBytes)
	}

	var account accountResponse
	if err := json.Unmarshal(bodyBytes, &account); err != nil {
		return nil, &idp.Error{Op: method, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	name := account.DisplayName
	if name == "" {
		name = account.FullName
	}
	return &idp.User{
		UID:         account.LocalID,
		Email:       account.Email,
		DisplayName: name,
	}, nil
}

// mapAPIError maps an Identity Toolkit error body to an idp.Error
func mapAPIError(method string, statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	// Messages look like "WEAK_PASSWORD : Password should be at least 6 characters".
	code, _, _ := strings.Cut(errResp.Error.Message, " ")
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", statusCode)
	}

	var sentinel error
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "INVALID_IDP_RESPONSE":
		sentinel = idp.EInvalidCredentials
	case "EMAIL_EXISTS":
		sentinel = idp.EEmailExists
	case "WEAK_PASSWORD":
		sentinel = idp.EWeakPassword
	case "USER_DISABLED":
		sentinel = idp.EUserDisabled
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		sentinel = idp.ETooManyAttempts
	default:
		if statusCode >= 500 {
			sentinel = idp.EUnavailable
		} else {
			sentinel = fmt.Errorf("identity provider error (status %d)", statusCode)
		}
	}

	return &idp.Error{Op: method, Code: code, Err: sentinel}
}
