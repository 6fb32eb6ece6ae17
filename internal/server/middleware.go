// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jeranaias/citeview/pkg/logger"
)

// ============================================================================
// Auth Middleware
// ============================================================================

// AuthConfig contains authentication configuration options.
type AuthConfig struct {
	// Enabled indicates whether authentication is required.
	Enabled bool

	// BearerToken is the expected bearer token. If empty and Enabled is
	// true, every request is rejected.
	BearerToken string
}

// AuthMiddleware rejects requests without the configured bearer token.
// /health stays open so load balancers can check the server.
func AuthMiddleware(config *AuthConfig, ips *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled || r.URL.Path == "/health" || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok || !ValidateBearerToken(token, config.BearerToken) {
				reason := "invalid_token"
				if !ok {
					reason = "missing_auth_header"
				}
				logger.WithFields(logrus.Fields{
					"ip":         ips.ClientIP(r),
					"reason":     reason,
					"request_id": RequestIDFrom(r.Context()),
				}).Warn("AUTH_DENIED")
				writeError(w, http.StatusUnauthorized, "Unauthorized", "authentication_error")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ValidateBearerToken compares tokens in constant time. Empty tokens never
// match.
func ValidateBearerToken(token, expected string) bool {
	if token == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return token, token != ""
}

// ============================================================================
// CORS Middleware
// ============================================================================

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// AllowedOrigins lists exact origins, "*.example.com" wildcards, or "*".
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// DefaultCORSConfig returns a CORS configuration for the given origins.
func DefaultCORSConfig(origins []string) *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
		MaxAge:         86400,
	}
}

func (c *CORSConfig) allowedOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	for _, allowed := range c.AllowedOrigins {
		switch {
		case allowed == "*":
			return "*", true
		case allowed == origin:
			return origin, true
		case strings.HasPrefix(allowed, "*.") && strings.HasSuffix(origin, allowed[1:]):
			return origin, true
		}
	}
	return "", false
}

// CORSMiddleware sets Access-Control headers for allowed origins and
// answers preflight requests.
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allow, ok := config.allowedOrigin(r.Header.Get("Origin")); ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allow)
				h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
				h.Set("Access-Control-Max-Age", fmt.Sprintf("%d", config.MaxAge))
				if allow != "*" {
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Rate Limiter
// ============================================================================

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor

	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps requests per second per IP with the given
// burst. Idle IPs are forgotten after a few minutes.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      3 * time.Minute,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request from ip may proceed now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()
	return v.limiter.Allow()
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > rl.ttl {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimitMiddleware answers 429 once a client exhausts its bucket.
func RateLimitMiddleware(limiter *RateLimiter, ips *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ips.ClientIP(r)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%g", float64(limiter.limit)))

			if !limiter.Allow(clientIP) {
				w.Header().Set("Retry-After", "1")
				logger.WithFields(logrus.Fields{"ip": clientIP, "path": r.URL.Path}).Warn("RATE_LIMIT_EXCEEDED")
				writeError(w, http.StatusTooManyRequests, "Too Many Requests", "rate_limit_error")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Request ID and Logging
// ============================================================================

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFrom returns the request id stored by RequestIDMiddleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestIDMiddleware assigns every request an id, echoed in X-Request-Id.
// A well-formed incoming id is kept so calls can be traced across services.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration of every
// request. Query strings and headers are left out since they may carry
// tokens.
func LoggingMiddleware(ips *ClientIPResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     wrapped.statusCode,
				"duration":   time.Since(start).String(),
				"ip":         ips.ClientIP(r),
				"request_id": RequestIDFrom(r.Context()),
			}).Info("HTTP_REQUEST")
		})
	}
}

// ============================================================================
// Security Headers and Recovery
// ============================================================================

// SecurityHeadersMiddleware adds security headers suited to a JSON API.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Cache-Control", "no-store")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500 and logs the stack.
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.WithFields(logrus.Fields{
						"method": r.Method,
						"path":   r.URL.Path,
						"error":  fmt.Sprint(err),
						"stack":  string(debug.Stack()),
					}).Error("PANIC_RECOVERED")
					writeError(w, http.StatusInternalServerError, "Internal Server Error", "server_error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Chain composes middleware so they execute in the order given.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ============================================================================
// Client IP
// ============================================================================

// DefaultTrustedProxies are loopback and private ranges.
var DefaultTrustedProxies = []string{
	"127.0.0.1/32",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fc00::/7",
}

// ClientIPResolver extracts the client address, trusting forwarding
// headers only from configured proxies.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses CIDRs or bare IPs. Invalid entries are logged
// and skipped.
func NewClientIPResolver(proxies []string) *ClientIPResolver {
	res := &ClientIPResolver{}
	for _, p := range proxies {
		if !strings.Contains(p, "/") {
			if ip := net.ParseIP(p); ip != nil && ip.To4() != nil {
				p += "/32"
			} else {
				p += "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(p)
		if err != nil {
			logger.WithFields(logrus.Fields{"proxy": p}).Warn("TRUSTED_PROXY_INVALID")
			continue
		}
		res.trusted = append(res.trusted, ipNet)
	}
	return res
}

func (c *ClientIPResolver) isTrusted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the request's client IP. X-Forwarded-For and X-Real-IP
// are honoured only when the connection comes from a trusted proxy.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	connIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		connIP = r.RemoteAddr
	}
	if !c.isTrusted(connIP) {
		return connIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return connIP
}
