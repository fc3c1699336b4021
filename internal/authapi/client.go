// Package authapi is the client for the backend auth REST API: account
// registration and the three calls behind the forgot-password flow.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/DukeRupert/authflow/internal/metrics"
)

// DefaultTimeout bounds a single call when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Op identifies a backend operation.
type Op string

const (
	OpRegister       Op = "register"
	OpRequestReset   Op = "request_reset"
	OpVerifyCode     Op = "verify_code"
	OpUpdatePassword Op = "update_password"
)

// successRule decides whether a status code counts as success.
type successRule func(status int) bool

func any2xx(status int) bool     { return status >= 200 && status < 300 }
func exactly200(status int) bool { return status == http.StatusOK }

// endpoint describes how one operation is sent and judged.
type endpoint struct {
	path    string
	label   string
	success successRule
}

// endpoints is the single table of paths and success criteria. Verify-code
// and update-password only succeed on 200; the others accept any 2xx.
var endpoints = map[Op]endpoint{
	OpRegister:       {path: "/api/register", label: "Registration", success: any2xx},
	OpRequestReset:   {path: "/api/reset-password", label: "Password reset", success: any2xx},
	OpVerifyCode:     {path: "/api/verify-code", label: "Code verification", success: exactly200},
	OpUpdatePassword: {path: "/api/update-password", label: "Password update", success: exactly200},
}

func (o Op) label() string {
	if ep, ok := endpoints[o]; ok {
		return ep.label
	}
	return string(o)
}

// Response is a successful call's status and decoded payload.
type Response struct {
	StatusCode int
	Message    string
	Data       json.RawMessage
}

// Config contains configuration for the client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the backend auth API. It never retries and never caches.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the API rooted at cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("auth API base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    cfg.HTTPClient,
		logger:  logger,
	}, nil
}

// Register creates the account record on the backend.
func (c *Client) Register(ctx context.Context, firstName, lastName, email, password string) (*Response, error) {
	return c.call(ctx, OpRegister, map[string]any{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     email,
		"password":  password,
	})
}

// RequestReset asks the backend to send a reset code to email.
func (c *Client) RequestReset(ctx context.Context, email string) (*Response, error) {
	return c.call(ctx, OpRequestReset, map[string]any{"email": email})
}

// VerifyCode checks the reset code sent to email.
func (c *Client) VerifyCode(ctx context.Context, email string, code int) (*Response, error) {
	return c.call(ctx, OpVerifyCode, map[string]any{"email": email, "code": code})
}

// UpdatePassword sets a new password for email.
func (c *Client) UpdatePassword(ctx context.Context, email, password string) (*Response, error) {
	return c.call(ctx, OpUpdatePassword, map[string]any{"email": email, "password": password})
}

// apiMessage is the part of a response body the client reads.
type apiMessage struct {
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, op Op, body any) (*Response, error) {
	ep := endpoints[op]
	start := time.Now()

	resp, err := c.do(ctx, op, ep, body)
	metrics.AuthAPICall(string(op), err == nil, time.Since(start))
	if err != nil {
		c.logger.Warn("auth API call failed",
			"op", op,
			"status", statusOf(err),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	c.logger.Debug("auth API call succeeded",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (c *Client) do(ctx context.Context, op Op, ep endpoint, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ep.path, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error(), StatusCode: resp.StatusCode, Err: err}
	}

	var msg apiMessage
	_ = json.Unmarshal(raw, &msg)

	if !ep.success(resp.StatusCode) {
		message := msg.Message
		if message == "" {
			message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return nil, &Error{Op: op, Message: message, StatusCode: resp.StatusCode}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Message:    msg.Message,
		Data:       json.RawMessage(raw),
	}, nil
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
