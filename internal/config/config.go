// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/citeview/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete citeview configuration.
type Config struct {
	Backend BackendConfig `toml:"backend" json:"backend"`
	Server  ServerConfig  `toml:"server" json:"server"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
	Export  ExportConfig  `toml:"export" json:"export"`
}

// BackendConfig points at the external chat backend that owns sessions,
// messages and source files.
type BackendConfig struct {
	BaseURL string `toml:"base_url" json:"base_url"`

	// Token is the bearer token. TokenEnv names an environment variable to
	// read it from on every request instead.
	Token    string `toml:"token" json:"token"`
	TokenEnv string `toml:"token_env" json:"token_env"`

	TimeoutSeconds int `toml:"timeout_seconds" json:"timeout_seconds"`
}

// ServerConfig configures `citeview serve`.
type ServerConfig struct {
	Bind           string   `toml:"bind" json:"bind"`
	Port           int      `toml:"port" json:"port"`
	AuthToken      string   `toml:"auth_token" json:"auth_token"`
	RateLimitRPS   float64  `toml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `toml:"rate_limit_burst" json:"rate_limit_burst"`
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	TrustedProxies []string `toml:"trusted_proxies" json:"trusted_proxies"`
}

// UIConfig configures terminal rendering.
type UIConfig struct {
	// Theme is a glamour style: auto, dark, light, notty, dracula, pink,
	// tokyo-night or ascii.
	Theme     string `toml:"theme" json:"theme"`
	WordWrap  int    `toml:"word_wrap" json:"word_wrap"`
	ShowCost  bool   `toml:"show_cost" json:"show_cost"`
	CodeStyle string `toml:"code_style" json:"code_style"`
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`

	// File receives log output. Interactive commands always log to a file
	// so the screen is not corrupted.
	File string `toml:"file" json:"file"`
}

// ExportConfig configures session export.
type ExportConfig struct {
	OutputDir       string `toml:"output_dir" json:"output_dir"`
	OpenAfterExport bool   `toml:"open_after_export" json:"open_after_export"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultBackendURL     = "http://localhost:8000"
	DefaultTimeoutSeconds = 30
	DefaultServerBind     = "127.0.0.1"
	DefaultServerPort     = 8790
	DefaultRateLimitRPS   = 10
	DefaultRateLimitBurst = 20
	DefaultTheme          = "auto"
	DefaultWordWrap       = 100
	DefaultCodeStyle      = "monokai"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

var validThemes = map[string]bool{
	"auto": true, "dark": true, "light": true, "notty": true, "ascii": true,
	"dracula": true, "pink": true, "tokyo-night": true,
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Default returns a configuration with every field set to its default.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        DefaultBackendURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Server: ServerConfig{
			Bind:           DefaultServerBind,
			Port:           DefaultServerPort,
			RateLimitRPS:   DefaultRateLimitRPS,
			RateLimitBurst: DefaultRateLimitBurst,
		},
		UI: UIConfig{
			Theme:     DefaultTheme,
			WordWrap:  DefaultWordWrap,
			ShowCost:  true,
			CodeStyle: DefaultCodeStyle,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the citeview configuration directory.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CITEVIEW_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".citeview"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns the log file used by interactive commands.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "citeview.log"), nil
}

// ensureSecurePermissions tightens a config file to 0600. The file may
// hold bearer tokens.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the default config file, falling back to defaults when it
// does not exist.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath reads a TOML config file. Unset keys keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveTOML writes cfg to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# citeview configuration file\n")
	buf.WriteString("# Environment variables (CITEVIEW_*) override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// DEFAULTS, ENV, VALIDATION
// =============================================================================

// SetDefaults fills zero values that must not stay zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = d.Backend.TimeoutSeconds
	}
	if c.Server.Bind == "" {
		c.Server.Bind = d.Server.Bind
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = d.Server.RateLimitBurst
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.CodeStyle == "" {
		c.UI.CodeStyle = d.UI.CodeStyle
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// ApplyEnvOverrides applies CITEVIEW_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CITEVIEW_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("CITEVIEW_TOKEN"); v != "" {
		c.Backend.Token = v
	}
	if v := os.Getenv("CITEVIEW_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("CITEVIEW_SERVER_BIND"); v != "" {
		c.Server.Bind = v
	}
	if v := os.Getenv("CITEVIEW_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("CITEVIEW_SERVER_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
	if v := os.Getenv("CITEVIEW_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("CITEVIEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CITEVIEW_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if u, err := url.Parse(c.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("backend.base_url", "must be an http(s) URL")
	}
	if c.Backend.TimeoutSeconds < 1 || c.Backend.TimeoutSeconds > 600 {
		add("backend.timeout_seconds", "must be between 1 and 600")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535")
	}
	if c.Server.RateLimitRPS < 0 {
		add("server.rate_limit_rps", "must not be negative")
	}
	if c.Server.RateLimitBurst < 0 {
		add("server.rate_limit_burst", "must not be negative")
	}
	for _, cidr := range c.Server.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil && net.ParseIP(cidr) == nil {
			add("server.trusted_proxies", fmt.Sprintf("%q is not an IP or CIDR", cidr))
		}
	}
	if !validThemes[c.UI.Theme] {
		add("ui.theme", fmt.Sprintf("unknown theme %q", c.UI.Theme))
	}
	if c.UI.WordWrap != 0 && c.UI.WordWrap < 20 {
		add("ui.word_wrap", "must be 0 (terminal width) or at least 20")
	}
	if !validLevels[c.Logging.Level] {
		add("logging.level", "must be debug, info, warn or error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		add("logging.format", "must be text or json")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String renders the config as JSON with secrets redacted.
func (c *Config) String() string {
	safe := *c
	if safe.Backend.Token != "" {
		safe.Backend.Token = "[REDACTED]"
	}
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// GLOBAL INSTANCE
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global configuration.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
