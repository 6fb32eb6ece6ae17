// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// DefaultSourceName labels a citation whose source has no name.
const DefaultSourceName = "Source"

// Citation is the metadata behind one inline [n] marker. Citations arrive
// with their message and are treated as read-only.
type Citation struct {
	// Number is the marker index as it appears in text: [3] refers to 3.
	Number int `json:"number"`

	// SourceID identifies the source document. Empty means absent.
	SourceID string `json:"source_id,omitempty"`

	SourceName string `json:"source_name,omitempty"`

	// Text is an optional excerpt backing the claim.
	Text string `json:"text,omitempty"`

	// FilePath is set when the source has a viewable file behind it.
	FilePath string `json:"file_path,omitempty"`

	// Web citations (url annotations mapped by the backend).
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// HasSource reports whether the citation carries a source id.
func (c Citation) HasSource() bool {
	return strings.TrimSpace(c.SourceID) != ""
}

// Viewable reports whether a "view source" action should be offered.
func (c Citation) Viewable() bool {
	return c.FilePath != ""
}

// DisplayName returns the label shown in popovers and footers.
func (c Citation) DisplayName() string {
	if c.SourceName != "" {
		return c.SourceName
	}
	if c.Title != "" {
		return c.Title
	}
	return DefaultSourceName
}
