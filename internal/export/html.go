// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to a standalone HTML page. Message bodies
// go through render.HTML, so they are sanitized and carry citation anchors
// that link to each message's sources footer.
type HTMLExporter struct {
	options  *Options
	renderer *render.HTML
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, renderer: render.NewHTML(opts.CodeStyle)}
}

// Export converts a session to HTML.
func (e *HTMLExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, ErrNilSession
	}
	title := html.EscapeString(sess.DisplayTitle())

	codeCSS, err := e.renderer.HighlightCSS()
	if err != nil {
		return nil, fmt.Errorf("highlight css: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", title))
	sb.WriteString("    <meta name=\"generator\" content=\"citeview\">\n")
	if !sess.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", sess.CreatedAt.Format(time.RFC3339)))
	}
	sb.WriteString("    <style>\n")
	sb.WriteString(pageCSS)
	sb.WriteString(codeCSS)
	sb.WriteString("    </style>\n")
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.theme()))
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", title))
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		if !sess.CreatedAt.IsZero() {
			sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(sess.CreatedAt)))
		}
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(sess.Messages)))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"conversation\">\n")
	for i := range sess.Messages {
		block, err := e.renderMessage(&sess.Messages[i])
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", sess.Messages[i].ID, err)
		}
		sb.WriteString(block)
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>citeview</strong> on %s</p>\n",
		e.options.clock().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

func (e *HTMLExporter) theme() string {
	if e.options.Theme == "light" {
		return "light"
	}
	return "dark"
}

// renderMessage renders a single message block.
func (e *HTMLExporter) renderMessage(msg *model.Message) (string, error) {
	body, err := e.renderer.RenderMessage(msg)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	roleClass := "user"
	if msg.IsAssistant() {
		roleClass = "assistant"
	}
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", roleClass))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", html.EscapeString(msg.Role.DisplayName())))
	if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.CreatedAt)))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(body)
	sb.WriteString("                </div>\n")
	if cost := msg.FormatCost(); cost != "" && msg.IsAssistant() {
		sb.WriteString(fmt.Sprintf("                <div class=\"message-stats\">Cost: %s</div>\n", cost))
	}
	sb.WriteString("            </div>\n")
	return sb.String(), nil
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            --font-mono: "SF Mono", "Monaco", "Inconsolata", "Fira Code", "Source Code Pro", monospace;
        }

        .dark-theme {
            --bg-primary: #0f0f17;
            --bg-secondary: #1a1a2e;
            --bg-tertiary: #2a2a3e;
            --text-primary: #e2e8f0;
            --text-muted: #94a3b8;
            --border-color: #3a3a4e;
            --accent: #a855f7;
            --accent-user: #06b6d4;
            --unresolved: #64748b;
        }

        .light-theme {
            --bg-primary: #ffffff;
            --bg-secondary: #f8fafc;
            --bg-tertiary: #e2e8f0;
            --text-primary: #1e293b;
            --text-muted: #64748b;
            --border-color: #e2e8f0;
            --accent: #7c3aed;
            --accent-user: #0891b2;
            --unresolved: #94a3b8;
        }

        body {
            font-family: var(--font-sans);
            line-height: 1.6;
            color: var(--text-primary);
            background: var(--bg-primary);
            padding: 20px;
        }

        .container { max-width: 900px; margin: 0 auto; background: var(--bg-secondary); border-radius: 12px; overflow: hidden; }
        .header { padding: 32px; background: var(--bg-tertiary); }
        .header h1 { font-size: 26px; margin-bottom: 12px; }
        .metadata { display: flex; gap: 16px; font-size: 14px; color: var(--text-muted); }
        .conversation { padding: 24px 32px; }

        .message { margin-bottom: 24px; padding: 20px; border-radius: 8px; border-left: 4px solid transparent; }
        .user-message { border-left-color: var(--accent-user); }
        .assistant-message { border-left-color: var(--accent); }
        .message-header { display: flex; justify-content: space-between; margin-bottom: 12px; font-size: 14px; }
        .role-label { font-weight: 600; }
        .timestamp { color: var(--text-muted); font-family: var(--font-mono); }
        .message-content p { margin-bottom: 12px; }
        .message-content pre { padding: 16px; border-radius: 8px; overflow-x: auto; font-family: var(--font-mono); }
        .message-stats { margin-top: 12px; font-size: 13px; color: var(--text-muted); }

        sup.citation a { color: var(--accent); text-decoration: none; font-weight: 600; }
        sup.citation-unresolved { color: var(--unresolved); text-decoration: line-through; }
        .sources { margin-top: 16px; padding-top: 12px; border-top: 1px solid var(--border-color); font-size: 14px; }
        .sources h4 { color: var(--text-muted); margin-bottom: 6px; }
        .sources ul { list-style: none; }
        .sources li:target { background: var(--bg-tertiary); }
        .sources a { color: var(--accent); }

        .footer { padding: 20px 32px; text-align: center; font-size: 14px; color: var(--text-muted); }

        @media print {
            body { padding: 0; }
            .message { page-break-inside: avoid; }
        }
`
