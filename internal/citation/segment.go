// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package citation

import (
	"fmt"
	"strconv"

	"github.com/jeranaias/citeview/internal/model"
)

// Kind tags a Segment.
type Kind int

const (
	KindText Kind = iota
	KindCitation
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCitation:
		return "citation"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "text":
		*k = KindText
	case "citation":
		*k = KindCitation
	default:
		return fmt.Errorf("unknown segment kind %q", b)
	}
	return nil
}

// Segment is one piece of a split message: either a run of literal text or
// a citation marker.
type Segment struct {
	Kind Kind `json:"kind"`

	// Text holds the literal run for KindText.
	Text string `json:"text,omitempty"`

	// Number and Literal describe a KindCitation marker. Literal is the
	// marker exactly as written, e.g. "[07]".
	Number  int    `json:"number,omitempty"`
	Literal string `json:"literal,omitempty"`

	// Citation is a copy of the resolved metadata, nil when no citation
	// carries Number.
	Citation *model.Citation `json:"citation,omitempty"`

	// Byte offsets into the original content.
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsCitation reports whether the segment is a marker.
func (s Segment) IsCitation() bool {
	return s.Kind == KindCitation
}

// Resolved reports whether the marker found its citation.
func (s Segment) Resolved() bool {
	return s.Kind == KindCitation && s.Citation != nil
}

// Raw returns the original bytes the segment covers.
func (s Segment) Raw() string {
	if s.Kind == KindCitation {
		if s.Literal != "" {
			return s.Literal
		}
		return "[" + strconv.Itoa(s.Number) + "]"
	}
	return s.Text
}
