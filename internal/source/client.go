// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package source

import (
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

	"github.com/jeranaias/citeview/pkg/logger"
)

const (
	// DefaultTimeout bounds one view request.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps the locator response body.
	MaxResponseSize = 1 << 20

	defaultUserAgent = "citeview/1.0"
)

var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	Timeout: DefaultTimeout,
}

var (
	// ErrNoSourceID indicates the citation has no source to view.
	ErrNoSourceID = errors.New("source id missing")

	// ErrNoToken indicates no bearer token is available.
	ErrNoToken = errors.New("no auth token available")

	// ErrAuthFailed indicates the backend rejected the token.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound indicates the backend does not know the source.
	ErrNotFound = errors.New("source not found")

	// ErrEmptyLocator indicates a successful response without a URL.
	ErrEmptyLocator = errors.New("view response has no url")

	// ErrResponseTooLarge indicates the body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")
)

// StatusError is a non-2xx response that did not map to a sentinel.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Locator is the backend's answer to a view request.
type Locator struct {
	URL string `json:"url"`
}

// Resolver turns a source id into a viewing locator.
type Resolver interface {
	View(ctx context.Context, sourceID string) (*Locator, error)
}

// Client calls the backend's source view endpoint.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: sharedHTTPClient,
		userAgent:  defaultUserAgent,
	}
}

// WithHTTPClient replaces the pooled HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithTimeout sets the request timeout without touching the shared client.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = timeout
		c.httpClient = &hc
	}
	return c
}

// WithUserAgent overrides the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ViewURL returns the endpoint for a source id.
func (c *Client) ViewURL(sourceID string) string {
	return c.baseURL + "/api/sources/" + url.PathEscape(sourceID) + "/view"
}

// View performs exactly one GET request for the locator of sourceID.
func (c *Client) View(ctx context.Context, sourceID string) (*Locator, error) {
	if strings.TrimSpace(sourceID) == "" {
		return nil, ErrNoSourceID
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ViewURL(sourceID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	// Headers and body may carry credentials; only the path is logged.
	logger.WithFields(logrus.Fields{"path": req.URL.Path}).Debug("SOURCE_VIEW_REQUEST")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	logger.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("SOURCE_VIEW_RESPONSE")

	body, err := readResponse(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}

	var loc Locator
	if err := json.Unmarshal(body, &loc); err != nil {
		return nil, fmt.Errorf("decode view response: %w", err)
	}
	if strings.TrimSpace(loc.URL) == "" {
		return nil, ErrEmptyLocator
	}
	return &loc, nil
}

func readResponse(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}

// statusError maps a failed response onto the package sentinels. The body
// may be a {"detail": "..."} or {"error": {"message": "..."}} envelope.
func statusError(status int, body []byte) error {
	msg := errorMessage(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
		}
		return ErrAuthFailed
	case http.StatusNotFound:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return ErrNotFound
	default:
		return &StatusError{Status: status, Message: msg}
	}
}

func errorMessage(body []byte) string {
	var env struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Detail != "" {
		return env.Detail
	}
	return env.Error.Message
}
