// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/config"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/pkg/logger"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize caps request bodies.
	MaxRequestBodySize = 1 << 20

	// MaxContentRunes caps message content accepted for segmenting and
	// rendering.
	MaxContentRunes = 100000

	// MaxRenderWidth caps the text render width.
	MaxRenderWidth = 200

	shutdownTimeout = 10 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Options wires the server to its collaborators.
type Options struct {
	Version string

	// BackendURL and BackendTokens configure the source view gateway.
	BackendURL    string
	BackendTokens source.TokenSource
	BackendClient *http.Client

	// CodeStyle is the chroma style for HTML code blocks.
	CodeStyle string
}

// Server is the render service and source view gateway.
type Server struct {
	cfg     config.ServerConfig
	opts    Options
	mux     *http.ServeMux
	handler http.Handler
	server  *http.Server

	auth    *AuthConfig
	ips     *ClientIPResolver
	limiter *RateLimiter

	html      *render.HTML
	termMu    sync.Mutex
	terminals map[int]*render.Terminal

	startTime time.Time
}

// New creates a Server from the [server] config section.
func New(cfg config.ServerConfig, opts Options) *Server {
	proxies := cfg.TrustedProxies
	if len(proxies) == 0 {
		proxies = DefaultTrustedProxies
	}

	s := &Server{
		cfg:       cfg,
		opts:      opts,
		mux:       http.NewServeMux(),
		auth:      &AuthConfig{Enabled: cfg.AuthToken != "", BearerToken: cfg.AuthToken},
		ips:       NewClientIPResolver(proxies),
		html:      render.NewHTML(opts.CodeStyle),
		terminals: make(map[int]*render.Terminal),
		startTime: time.Now(),
	}
	s.setupRoutes()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		RequestIDMiddleware(),
		LoggingMiddleware(s.ips),
		CORSMiddleware(DefaultCORSConfig(cfg.AllowedOrigins)),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		middlewares = append(middlewares, RateLimitMiddleware(s.limiter, s.ips))
	}
	middlewares = append(middlewares, AuthMiddleware(s.auth, s.ips))
	s.handler = Chain(middlewares...)(s.mux)

	return s
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/segment", s.handleSegment)
	s.mux.HandleFunc("POST /api/render", s.handleRender)
	s.mux.HandleFunc("GET /api/sources/{id}/view", s.handleSourceView)
	s.mux.HandleFunc("/", s.handleNotFound)
}

// ============================================================================
// HEALTH
// ============================================================================

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.opts.Version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// ============================================================================
// SEGMENT
// ============================================================================

// SegmentRequest is the body of POST /api/segment.
type SegmentRequest struct {
	Content   string           `json:"content"`
	Citations []model.Citation `json:"citations"`
}

// SegmentResponse is the result of POST /api/segment.
type SegmentResponse struct {
	Segments   []citation.Segment `json:"segments"`
	HasMarkers bool               `json:"has_markers"`
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req SegmentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !checkContent(w, req.Content) {
		return
	}

	segs := citation.Split(req.Content, req.Citations)
	writeJSON(w, http.StatusOK, SegmentResponse{
		Segments:   segs,
		HasMarkers: citation.HasMarkers(segs),
	})
}

// ============================================================================
// RENDER
// ============================================================================

// RenderRequest is the body of POST /api/render.
type RenderRequest struct {
	Message model.Message `json:"message"`
	Format  string        `json:"format"`
	Width   int           `json:"width"`
}

// SourceEntry is one line of the sources footer.
type SourceEntry struct {
	Number   int    `json:"number"`
	Label    string `json:"label"`
	SourceID string `json:"source_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Viewable bool   `json:"viewable"`
}

// RenderResponse is the result of POST /api/render.
type RenderResponse struct {
	Content string        `json:"content"`
	Sources []SourceEntry `json:"sources"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !checkContent(w, req.Message.Content) {
		return
	}
	if req.Message.Role == "" {
		req.Message.Role = model.RoleAssistant
	}
	if !req.Message.Role.Valid() {
		writeError(w, http.StatusBadRequest, "role must be user or assistant", "invalid_request_error")
		return
	}

	var content string
	switch strings.ToLower(req.Format) {
	case "", "html":
		out, err := s.html.RenderMessage(&req.Message)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err.Error()}).Error("RENDER_FAILED")
			writeError(w, http.StatusInternalServerError, "Render failed", "server_error")
			return
		}
		content = out
	case "text":
		term, err := s.terminal(req.Width)
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err.Error()}).Error("RENDER_FAILED")
			writeError(w, http.StatusInternalServerError, "Render failed", "server_error")
			return
		}
		content = term.RenderMessage(&req.Message, render.NoFocus)
		if req.Message.IsAssistant() {
			if footer := render.PlainFooter(req.Message.Citations); footer != "" {
				content = strings.TrimRight(content, "\n") + "\n\n" + footer + "\n"
			}
		}
	default:
		writeError(w, http.StatusBadRequest, "format must be html or text", "invalid_request_error")
		return
	}

	sources := []SourceEntry{}
	if req.Message.IsAssistant() {
		for _, e := range render.Footer(req.Message.Citations) {
			sources = append(sources, SourceEntry{
				Number:   e.Number,
				Label:    e.Label,
				SourceID: e.Citation.SourceID,
				URL:      e.Citation.URL,
				Viewable: e.Citation.Viewable(),
			})
		}
	}
	writeJSON(w, http.StatusOK, RenderResponse{Content: content, Sources: sources})
}

// terminal returns a cached plain-style renderer for width.
func (s *Server) terminal(width int) (*render.Terminal, error) {
	if width <= 0 {
		width = 80
	}
	if width > MaxRenderWidth {
		width = MaxRenderWidth
	}

	s.termMu.Lock()
	defer s.termMu.Unlock()
	if t, ok := s.terminals[width]; ok {
		return t, nil
	}
	t, err := render.NewTerminal(render.TerminalOptions{Width: width, Style: "notty"})
	if err != nil {
		return nil, err
	}
	s.terminals[width] = t
	return t, nil
}

// ============================================================================
// SOURCE VIEW GATEWAY
// ============================================================================

// ViewResponse is the result of GET /api/sources/{id}/view.
type ViewResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found", "not_found")
}

func (s *Server) handleSourceView(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusNotFound, source.NoticeNotAvailable, "not_found")
		return
	}

	client := source.NewClient(s.opts.BackendURL, s.gatewayTokens(r)).WithHTTPClient(s.opts.BackendClient)
	loc, err := client.View(r.Context(), id)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"source_id":  id,
			"error":      err.Error(),
			"request_id": RequestIDFrom(r.Context()),
		}).Warn("SOURCE_VIEW_FAILED")
		writeError(w, http.StatusBadGateway, source.NoticeFailed, "upstream_error")
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{URL: loc.URL})
}

// gatewayTokens forwards the caller's bearer token when the server itself
// is not authenticating callers. Otherwise the Authorization header holds
// the server's own token and the configured backend token is used.
func (s *Server) gatewayTokens(r *http.Request) source.TokenSource {
	if !s.auth.Enabled {
		if token, ok := bearerToken(r); ok {
			return source.StaticToken(token)
		}
	}
	if s.opts.BackendTokens == nil {
		return source.StaticToken("")
	}
	return s.opts.BackendTokens
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": s.Addr(), "version": s.opts.Version, "auth": s.auth.Enabled}).Info("SERVER_START")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Infof("SERVER_SHUTDOWN | starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(shutdownCtx)
	s.close()
	return err
}

func (s *Server) close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize), "invalid_request_error")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request format", "invalid_request_error")
		return false
	}
	return true
}

func checkContent(w http.ResponseWriter, content string) bool {
	if utf8.RuneCountInString(content) > MaxContentRunes {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("content exceeds maximum length of %d characters", MaxContentRunes), "invalid_request_error")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeError(w http.ResponseWriter, status int, message, errType string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Message: message, Type: errType, Code: status}})
}
