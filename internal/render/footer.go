// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/jeranaias/citeview/internal/model"
)

// FooterHeading introduces the list of cited sources under a message.
const FooterHeading = "Sources:"

// FooterEntry is one line of the sources footer.
type FooterEntry struct {
	Number   int
	Label    string
	Citation model.Citation
}

// String returns "[n] label".
func (e FooterEntry) String() string {
	return fmt.Sprintf("[%d] %s", e.Number, e.Label)
}

// Footer lists every citation of a message in the order given. It returns
// nil when there is nothing to list.
func Footer(citations []model.Citation) []FooterEntry {
	if len(citations) == 0 {
		return nil
	}
	entries := make([]FooterEntry, 0, len(citations))
	for _, c := range citations {
		entries = append(entries, FooterEntry{Number: c.Number, Label: c.DisplayName(), Citation: c})
	}
	return entries
}

// PlainFooter renders the footer as text lines, or "" for no citations.
func PlainFooter(citations []model.Citation) string {
	entries := Footer(citations)
	if entries == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(FooterHeading)
	for _, e := range entries {
		b.WriteString("\n")
		b.WriteString(e.String())
	}
	return b.String()
}
