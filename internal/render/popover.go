// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/model"
)

// NoExcerptText is the popover body when a citation carries no excerpt.
const NoExcerptText = "Referenced from this source"

// Popover is the detail card shown for a focused citation marker.
type Popover struct {
	Number int
	Title  string

	// Body is the quoted excerpt or NoExcerptText.
	Body   string
	Quoted bool

	SourceID string

	// CanView is true when a "View" action should be offered.
	CanView bool

	// Loading is true while this popover's source is being fetched.
	Loading bool

	Resolved bool
}

// NewPopover builds the popover for a citation segment. loadingID is the
// source currently being fetched, if any.
func NewPopover(seg citation.Segment, loadingID string) Popover {
	p := Popover{
		Number: seg.Number,
		Title:  model.DefaultSourceName,
		Body:   NoExcerptText,
	}
	if seg.Citation == nil {
		return p
	}

	c := seg.Citation
	p.Resolved = true
	p.Title = c.DisplayName()
	p.SourceID = c.SourceID
	if c.Text != "" {
		p.Body = `"` + c.Text + `"`
		p.Quoted = true
	}
	p.CanView = c.Viewable()
	p.Loading = p.CanView && loadingID != "" && loadingID == c.SourceID
	return p
}

// Heading returns "[n] Title".
func (p Popover) Heading() string {
	return fmt.Sprintf("[%d] %s", p.Number, p.Title)
}

// String renders the popover as plain text, one field per line.
func (p Popover) String() string {
	s := p.Heading() + "\n" + p.Body
	if p.Loading {
		s += "\nOpening..."
	} else if p.CanView {
		s += "\nView source"
	}
	return s
}
