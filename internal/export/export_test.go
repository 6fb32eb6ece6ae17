// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/source"
)

var fixedNow = time.Date(2025, 4, 2, 15, 4, 5, 0, time.UTC)

func testOptions(dir string) *Options {
	opts := DefaultOptions()
	opts.OutputDir = dir
	opts.now = func() time.Time { return fixedNow }
	return opts
}

func testSession() *model.Session {
	cost := 0.0123
	return &model.Session{
		SessionMeta: model.SessionMeta{
			ID:        "sess-1",
			Title:     "Q3: Review",
			CreatedAt: fixedNow.Add(-time.Hour),
			UpdatedAt: fixedNow,
		},
		Messages: []model.Message{
			{ID: "m1", Role: model.RoleUser, Content: "What changed <b>?", CreatedAt: fixedNow},
			{
				ID:        "m2",
				Role:      model.RoleAssistant,
				Content:   "Revenue rose [1] while costs fell [2]. See [9].\n\n```go\nfmt.Println(1)\n```",
				CostUSD:   &cost,
				CreatedAt: fixedNow,
				Citations: []model.Citation{
					{Number: 1, SourceID: "s1", SourceName: "Annual report", Text: "up 12%", FilePath: "r.pdf"},
					{Number: 2, SourceID: "s2", Title: "News", URL: "https://example.com/news"},
				},
			},
		},
	}
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "markdown": FormatMarkdown, "HTML": FormatHTML, "htm": FormatHTML, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)

	_, err = ForFormat(Format("pdf"), nil)
	assert.Error(t, err)
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions("")).Export(testSession())
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, `title: "Q3: Review"`)
	assert.Contains(t, md, "# Q3: Review")
	assert.Contains(t, md, "### You")
	assert.Contains(t, md, "Revenue rose [1] while costs fell [2]. See [9].", "markers kept verbatim")
	assert.Contains(t, md, "**Sources:**")
	assert.Contains(t, md, `- \[1\] Annual report`)
	assert.Contains(t, md, `- \[2\] [News](https://example.com/news)`)
	assert.Contains(t, md, "<sub>Cost: $0.0123</sub>")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false
	out, err := NewMarkdownExporter(opts).Export(testSession())
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(out), "---"))
	assert.NotContains(t, string(out), "<sub>15:04:05</sub>")
}

func TestHTMLExport(t *testing.T) {
	out, err := NewHTMLExporter(testOptions("")).Export(testSession())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<title>Q3: Review</title>")
	assert.Contains(t, page, `class="dark-theme"`)
	assert.Contains(t, page, "What changed &lt;b&gt;?", "user text escaped")
	assert.Contains(t, page, `<sup class="citation"`)
	assert.Contains(t, page, `<sup class="citation citation-unresolved">[9]</sup>`)
	assert.Contains(t, page, `<section class="sources">`)
	assert.Contains(t, page, `href="https://example.com/news"`)
	assert.Contains(t, page, "Cost: $0.0123")
	assert.Contains(t, page, ".chroma", "code highlighting css")
}

func TestHTMLExport_ThemeIsWhitelisted(t *testing.T) {
	opts := testOptions("")
	opts.Theme = `x" onload="alert(1)`
	out, err := NewHTMLExporter(opts).Export(testSession())
	require.NoError(t, err)
	assert.Contains(t, string(out), `class="dark-theme"`)
	assert.NotContains(t, string(out), "onload")
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter(testOptions("")).Export(testSession())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "sess-1", doc.ID)
	assert.True(t, doc.Exported.Equal(fixedNow))
	require.Len(t, doc.Messages, 2)
	assert.Empty(t, doc.Messages[0].Segments, "user messages are not segmented")

	segs := doc.Messages[1].Segments
	require.NotEmpty(t, segs)
	var numbers []int
	for _, s := range segs {
		if s.IsCitation() {
			numbers = append(numbers, s.Number)
		}
	}
	assert.Equal(t, []int{1, 2, 9}, numbers)
	assert.True(t, segs[1].Resolved())
}

func TestNilSession(t *testing.T) {
	for _, exp := range []Exporter{NewMarkdownExporter(nil), NewHTMLExporter(nil), NewJSONExporter(nil)} {
		_, err := exp.Export(nil)
		assert.ErrorIs(t, err, ErrNilSession)
	}
	_, err := ExportToFile(nil, NewJSONExporter(nil), nil)
	assert.ErrorIs(t, err, ErrNilSession)
}

// =============================================================================
// FILE TESTS
// =============================================================================

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(filepath.Join(dir, "nested"))

	var opened string
	opts.OpenAfterExport = true
	opts.Opener = source.OpenerFunc(func(path string) error {
		opened = path
		return nil
	})

	path, err := ExportToFile(testSession(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nested", "session_Q3-_Review_20250402_150405.md"), path)
	assert.Equal(t, path, opened)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Q3: Review")
}

func TestExportToFile_OpenFailureIsNotFatal(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.OpenAfterExport = true
	opts.Opener = source.OpenerFunc(func(string) error { return errors.New("no desktop") })

	path, err := ExportToFile(testSession(), NewJSONExporter(opts), opts)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Simple", "Simple"},
		{"a/b\\c:d", "a-b-c-d"},
		{"with space\ttab", "with_space_tab"},
		{"..", "session"},
		{"", "session"},
		{"bell\x07", "bell-"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
