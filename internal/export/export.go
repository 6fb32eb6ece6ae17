// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/source"
	"github.com/jeranaias/citeview/internal/util"
	"github.com/jeranaias/citeview/pkg/logger"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for session exporters.
type Exporter interface {
	// Export converts a session to the target format and returns the content.
	Export(sess *model.Session) ([]byte, error)

	// FileExtension returns the file extension, including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

// ErrNilSession is returned when asked to export nothing.
var ErrNilSession = errors.New("session is nil")

// ParseFormat accepts the usual spellings of each format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ForFormat returns the exporter for f.
func ForFormat(f Format, opts *Options) (Exporter, error) {
	switch f {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatHTML:
		return NewHTMLExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", f)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	OutputDir string

	// OpenAfterExport opens the file with Opener once written.
	OpenAfterExport bool

	// Opener defaults to source.BrowserOpener.
	Opener source.Opener

	// IncludeMetadata adds a metadata header (dates, message count).
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool

	// Theme for HTML export, "light" or "dark".
	Theme string

	// CodeStyle is the chroma style for HTML code blocks.
	CodeStyle string

	now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
		CodeStyle:         "monokai",
	}
}

func (o *Options) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a session using exporter and writes it atomically
// into opts.OutputDir. It returns the output path. A failure to open the
// file afterwards is logged, not returned, since the file exists.
func ExportToFile(sess *model.Session, exporter Exporter, opts *Options) (string, error) {
	if sess == nil {
		return "", ErrNilSession
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(sess)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("session_%s_%s%s",
		sanitizeFilename(sess.DisplayTitle()),
		opts.clock().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, filename)

	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"session": sess.ID,
		"path":    outputPath,
		"bytes":   len(content),
	}).Info("SESSION_EXPORTED")

	if opts.OpenAfterExport {
		opener := opts.Opener
		if opener == nil {
			opener = source.BrowserOpener{}
		}
		if err := opener.Open(outputPath); err != nil {
			logger.WithFields(logrus.Fields{"path": outputPath, "error": err.Error()}).Warn("EXPORT_OPEN_FAILED")
		}
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > 50 {
		runes = runes[:50]
	}

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	out := strings.Trim(string(result), ".")
	if out == "" {
		return "session"
	}
	return out
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
