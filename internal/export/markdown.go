// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown. Citation markers are kept
// as written so the file reads like the original answer.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, ErrNilSession
	}
	title := sess.DisplayTitle()

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(title)))
		if !sess.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("date: %s\n", sess.CreatedAt.Format(time.RFC3339)))
		}
		if !sess.UpdatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("updated: %s\n", sess.UpdatedAt.Format(time.RFC3339)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(sess.Messages)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", e.options.clock().Format(time.RFC3339)))
		sb.WriteString("generator: citeview\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(title)))

	for i, msg := range sess.Messages {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.IsAssistant() {
			if sources := e.formatSources(msg.Citations); sources != "" {
				sb.WriteString(sources)
				sb.WriteString("\n")
			}
			if cost := msg.FormatCost(); cost != "" {
				sb.WriteString(fmt.Sprintf("<sub>Cost: %s</sub>\n\n", cost))
			}
		}

		if i < len(sess.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// formatSources renders the footer as a Markdown list. Web citations link
// to their URL.
func (e *MarkdownExporter) formatSources(citations []model.Citation) string {
	entries := render.Footer(citations)
	if entries == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("**" + render.FooterHeading + "**\n\n")
	for _, entry := range entries {
		label := escapeMarkdown(entry.Label)
		if entry.Citation.URL != "" {
			label = fmt.Sprintf("[%s](%s)", label, entry.Citation.URL)
		}
		sb.WriteString(fmt.Sprintf("- \\[%d\\] %s\n", entry.Number, label))
	}
	return sb.String()
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes a frontmatter value when it contains YAML syntax.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
