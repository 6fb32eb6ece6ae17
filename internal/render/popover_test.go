// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/model"
)

func TestNewPopover(t *testing.T) {
	segs := citation.Markers(citation.Split("[1] [2] [3]", testCitations))
	require.Len(t, segs, 3)

	p := NewPopover(segs[0], "")
	assert.Equal(t, "[1] Annual report", p.Heading())
	assert.Equal(t, `"Revenue rose 12%"`, p.Body)
	assert.True(t, p.Quoted)
	assert.True(t, p.CanView)
	assert.False(t, p.Loading)

	p = NewPopover(segs[1], "")
	assert.Equal(t, "Blog post", p.Title)
	assert.Equal(t, NoExcerptText, p.Body)
	assert.False(t, p.CanView)

	p = NewPopover(segs[2], "")
	assert.False(t, p.Resolved)
	assert.Equal(t, "Source", p.Title)
	assert.Equal(t, "Referenced from this source", p.Body)
}

func TestNewPopover_Loading(t *testing.T) {
	seg := citation.Markers(citation.Split("[1]", testCitations))[0]

	assert.True(t, NewPopover(seg, "s1").Loading)
	assert.False(t, NewPopover(seg, "other").Loading)
	assert.Contains(t, NewPopover(seg, "s1").String(), "Opening...")
	assert.Contains(t, NewPopover(seg, "").String(), "View source")
}

func TestFooter(t *testing.T) {
	entries := Footer(testCitations)
	require.Len(t, entries, 2)
	assert.Equal(t, "[1] Annual report", entries[0].String())
	assert.Equal(t, "[2] Blog post", entries[1].String())

	assert.Nil(t, Footer(nil))
	assert.Equal(t, "", PlainFooter(nil))
	assert.Equal(t, "Sources:\n[1] Annual report\n[2] Blog post", PlainFooter(testCitations))
	assert.Equal(t, "[4] Source", Footer([]model.Citation{{Number: 4}})[0].String())
}
