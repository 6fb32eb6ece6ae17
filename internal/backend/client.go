// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/citeview/internal/config"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/pkg/logger"
)

const (
	// MaxResponseSize caps every response body.
	MaxResponseSize = 1 << 20

	// askTimeout bounds a question. Answers take longer than listings.
	askTimeout = 2 * time.Minute
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("backend error [%s] (HTTP %d): %s", e.Type, e.Status, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// ErrResponseTooLarge indicates a body exceeded MaxResponseSize.
var ErrResponseTooLarge = errors.New("response too large")

// Client is the backend API client.
type Client struct {
	baseURL    string
	tokens     source.TokenSource
	httpClient *http.Client
	askClient  *http.Client
	sources    *source.Client
}

var (
	_ session.Store     = (*Client)(nil)
	_ session.Responder = (*Client)(nil)
	_ source.Resolver   = (*Client)(nil)
)

// New creates a client for the backend at baseURL.
func New(baseURL string, tokens source.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = source.DefaultTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		askClient:  &http.Client{Timeout: askTimeout},
		sources:    source.NewClient(baseURL, tokens).WithTimeout(timeout),
	}
}

// FromConfig builds a client from the [backend] section. TokenEnv wins over
// a literal token.
func FromConfig(cfg config.BackendConfig) *Client {
	return New(cfg.BaseURL, Tokens(cfg), cfg.Timeout())
}

// Tokens returns the token source configured in cfg.
func Tokens(cfg config.BackendConfig) source.TokenSource {
	if cfg.TokenEnv != "" {
		return source.EnvToken(cfg.TokenEnv)
	}
	return source.StaticToken(cfg.Token)
}

// WithHTTPClient replaces the transport used for every request. Intended
// for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
		c.askClient = hc
		c.sources.WithHTTPClient(hc)
	}
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Sources returns the underlying source view client.
func (c *Client) Sources() *source.Client {
	return c.sources
}

// =============================================================================
// SESSIONS
// =============================================================================

type sessionList struct {
	Sessions []model.SessionMeta `json:"sessions"`
}

// ListSessions returns GET /api/sessions.
func (c *Client) ListSessions(ctx context.Context) ([]model.SessionMeta, error) {
	var out sessionList
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	if out.Sessions == nil {
		out.Sessions = []model.SessionMeta{}
	}
	return out.Sessions, nil
}

// CreateSession posts a new session.
func (c *Client) CreateSession(ctx context.Context, title string) (model.SessionMeta, error) {
	var meta model.SessionMeta
	body := map[string]string{"title": strings.TrimSpace(title)}
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/api/sessions", body, &meta); err != nil {
		return model.SessionMeta{}, err
	}
	return meta, nil
}

// RenameSession patches the session title.
func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	title, ok := session.NormalizeTitle(title)
	if !ok {
		return session.ErrEmptyTitle
	}
	return c.do(ctx, c.httpClient, http.MethodPatch, sessionPath(id), map[string]string{"title": title}, nil)
}

// DeleteSession deletes the session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, c.httpClient, http.MethodDelete, sessionPath(id), nil, nil)
}

type messageList struct {
	Messages []model.Message `json:"messages"`
}

// Messages returns the session's messages, NFC-normalized.
func (c *Client) Messages(ctx context.Context, id string) ([]model.Message, error) {
	var out messageList
	if err := c.do(ctx, c.httpClient, http.MethodGet, sessionPath(id)+"/messages", nil, &out); err != nil {
		return nil, err
	}
	for i := range out.Messages {
		normalize(&out.Messages[i])
	}
	if out.Messages == nil {
		out.Messages = []model.Message{}
	}
	return out.Messages, nil
}

// Ask posts a question and returns the assistant reply.
func (c *Client) Ask(ctx context.Context, sessionID, question string) (*model.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, session.ErrEmptyQuestion
	}
	var reply model.Message
	body := map[string]string{"content": question}
	if err := c.do(ctx, c.askClient, http.MethodPost, sessionPath(sessionID)+"/messages", body, &reply); err != nil {
		return nil, err
	}
	normalize(&reply)
	if reply.Role == "" {
		reply.Role = model.RoleAssistant
	}
	return &reply, nil
}

// View resolves a source through GET /api/sources/{id}/view.
func (c *Client) View(ctx context.Context, sourceID string) (*source.Locator, error) {
	return c.sources.View(ctx, sourceID)
}

func sessionPath(id string) string {
	return "/api/sessions/" + url.PathEscape(id)
}

func normalize(m *model.Message) {
	m.Content = norm.NFC.String(m.Content)
	for i := range m.Citations {
		m.Citations[i].Text = norm.NFC.String(m.Citations[i].Text)
	}
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		logger.WithFields(logrus.Fields{"method": method, "path": path}).Warn("BACKEND_REQUEST_FAILED")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	logger.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("BACKEND_RESPONSE")

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return ErrResponseTooLarge
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError maps a failed response. Session 404s become
// session.ErrSessionNotFound so callers can use errors.Is against the
// same sentinel as the in-memory store.
func apiError(status int, body []byte) error {
	var env struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &env)

	msg := env.Detail
	if msg == "" {
		msg = env.Error.Message
	}
	apiErr := &APIError{Status: status, Type: env.Error.Type, Message: msg}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", session.ErrSessionNotFound, apiErr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", source.ErrAuthFailed, apiErr)
	}
	return apiErr
}
