// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmutil "github.com/yuin/goldmark/util"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/pkg/logger"
)

// DefaultCodeStyle is the chroma style used for fenced code.
const DefaultCodeStyle = "monokai"

var classPattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// HTML renders messages as sanitized HTML fragments.
type HTML struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

// NewHTML creates an HTML renderer using the named chroma style for code.
func NewHTML(codeStyle string) *HTML {
	style := chromaStyles.Get(codeStyle)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := chromahtml.New(chromahtml.WithClasses(true))

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			renderer.WithNodeRenderers(
				gmutil.Prioritized(&codeBlockRenderer{formatter: formatter, style: style}, 200),
			),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(classPattern).OnElements("span", "pre", "code", "div")

	return &HTML{md: md, policy: policy, formatter: formatter, style: style}
}

// Render converts assistant content to HTML with citation anchors. anchor
// prefixes the footer ids the markers link to ("source" gives #source-1).
func (h *HTML) Render(content string, citations []model.Citation, anchor string) (string, error) {
	if anchor == "" {
		anchor = "source"
	}

	segs := citation.Split(content, citations)
	if !citation.HasMarkers(segs) {
		return h.markdown(content)
	}

	if !placeholderSafe(segs) {
		return h.Plain(segs, anchor), nil
	}

	m := withPlaceholders(segs)
	out, err := h.markdown(m.text)
	if err != nil {
		return "", err
	}
	if m.dropped(out) {
		logger.WithFields(logrus.Fields{"markers": len(m.markers)}).Debug("RENDER_MARKER_DROPPED")
		return h.Plain(segs, anchor), nil
	}
	body, ok := m.anchors(out, anchor)
	if !ok {
		return h.Plain(segs, anchor), nil
	}
	return body, nil
}

// Plain renders segments as escaped text with citation anchors and no
// markdown. Blank lines separate paragraphs.
func (h *HTML) Plain(segs []citation.Segment, anchor string) string {
	if anchor == "" {
		anchor = "source"
	}
	var b strings.Builder
	for _, s := range segs {
		if s.Kind == citation.KindCitation {
			b.WriteString(citationHTML(s, anchor, true))
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}

	var out strings.Builder
	for _, para := range strings.Split(b.String(), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		out.WriteString("<p>" + strings.ReplaceAll(para, "\n", "<br>\n") + "</p>\n")
	}
	return out.String()
}

var (
	anchorOpenPattern  = regexp.MustCompile(`<a[\s>]`)
	anchorClosePattern = regexp.MustCompile(`</a>`)
)

// anchors substitutes the intact placeholders in rendered with citation
// HTML. A marker inside link text gets no link of its own. ok is false when
// a placeholder landed inside a tag, such as image alt text.
func (m marked) anchors(rendered, anchor string) (string, bool) {
	var b strings.Builder
	inTag, inLink := false, false
	prev := 0
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(rendered, -1) {
		chunk := rendered[prev:loc[0]]
		inTag = tagState(inTag, chunk)
		inLink = linkState(inLink, chunk)
		if inTag {
			return "", false
		}
		b.WriteString(chunk)

		r, _ := utf8.DecodeRuneInString(rendered[loc[4]:loc[5]])
		ordinal := int(r) - placeholderBase
		if ordinal < 0 || ordinal >= len(m.markers) {
			b.WriteString("[" + rendered[loc[2]:loc[3]] + "]")
		} else {
			b.WriteString(citationHTML(m.markers[ordinal], anchor, !inLink))
		}
		prev = loc[1]
	}
	b.WriteString(rendered[prev:])
	return restoreBroken(b.String()), true
}

// tagState reports whether the text after chunk is still inside a tag.
// Sanitized output escapes '<' and '>' outside markup.
func tagState(inside bool, chunk string) bool {
	lt, gt := strings.LastIndexByte(chunk, '<'), strings.LastIndexByte(chunk, '>')
	if lt == gt {
		return inside
	}
	return lt > gt
}

func linkState(inside bool, chunk string) bool {
	open, closing := lastMatch(anchorOpenPattern, chunk), lastMatch(anchorClosePattern, chunk)
	if open == closing {
		return inside
	}
	return open > closing
}

func lastMatch(re *regexp.Regexp, s string) int {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return -1
	}
	return locs[len(locs)-1][0]
}

// RenderMessage renders a whole message: escaped text for user turns,
// markdown with citations and a sources footer for assistant turns.
func (h *HTML) RenderMessage(msg *model.Message) (string, error) {
	if msg.Role != model.RoleAssistant {
		return "<p>" + strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>\n") + "</p>\n", nil
	}
	anchor := "source-" + shortID(msg.ID)
	body, err := h.Render(msg.Content, msg.Citations, anchor)
	if err != nil {
		return "", err
	}
	return body + h.Footer(msg.Citations, anchor), nil
}

// Footer renders the sources list, or "" when there are no citations.
func (h *HTML) Footer(citations []model.Citation, anchor string) string {
	entries := Footer(citations)
	if entries == nil {
		return ""
	}
	if anchor == "" {
		anchor = "source"
	}

	var b strings.Builder
	b.WriteString(`<section class="sources">` + "\n")
	b.WriteString("<h4>" + FooterHeading + "</h4>\n<ul>\n")
	seen := make(map[int]bool)
	for _, e := range entries {
		id := ""
		if !seen[e.Number] {
			id = fmt.Sprintf(` id="%s-%d"`, anchor, e.Number)
			seen[e.Number] = true
		}
		name := html.EscapeString(e.Label)
		if e.Citation.URL != "" {
			name = fmt.Sprintf(`<a href="%s" rel="noopener noreferrer">%s</a>`, html.EscapeString(e.Citation.URL), name)
		}
		fmt.Fprintf(&b, "<li%s>[%d] %s</li>\n", id, e.Number, name)
	}
	b.WriteString("</ul>\n</section>\n")
	return b.String()
}

// HighlightCSS returns the stylesheet for highlighted code blocks.
func (h *HTML) HighlightCSS() (string, error) {
	var buf bytes.Buffer
	if err := h.formatter.WriteCSS(&buf, h.style); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *HTML) markdown(s string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(s), &buf); err != nil {
		return "", err
	}
	return h.policy.Sanitize(buf.String()), nil
}

// citationHTML renders one marker. linked is false inside link text, where
// a nested anchor would be invalid.
func citationHTML(seg citation.Segment, anchor string, linked bool) string {
	text := html.EscapeString(label(seg))
	if seg.Citation == nil {
		return `<sup class="citation citation-unresolved">` + text + `</sup>`
	}
	pop := NewPopover(seg, "")
	title := html.EscapeString(pop.Title + ": " + pop.Body)
	if !linked {
		return fmt.Sprintf(`<sup class="citation" data-number="%d" data-source-id="%s" title="%s">%s</sup>`,
			seg.Number, html.EscapeString(seg.Citation.SourceID), title, text)
	}
	return fmt.Sprintf(`<sup class="citation" data-number="%d" data-source-id="%s"><a href="#%s-%d" title="%s">%s</a></sup>`,
		seg.Number, html.EscapeString(seg.Citation.SourceID), anchor, seg.Number, title, text)
}

func shortID(id string) string {
	var b strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 8 {
			break
		}
	}
	if b.Len() == 0 {
		return "msg"
	}
	return b.String()
}

// codeBlockRenderer highlights fenced code with chroma CSS classes.
type codeBlockRenderer struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w gmutil.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lexer := lexers.Get(string(n.Language(source)))
	if lexer == nil {
		lexer = lexers.Analyse(code.String())
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code.String())
	if err == nil {
		err = r.formatter.Format(w, r.style, iterator)
	}
	if err != nil {
		_, _ = w.WriteString("<pre><code>" + html.EscapeString(code.String()) + "</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}
