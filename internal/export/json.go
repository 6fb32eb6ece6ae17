// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/citeview/internal/citation"
	"github.com/jeranaias/citeview/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// Document is the JSON export shape.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Exported  time.Time         `json:"exported_at"`
	Messages  []DocumentMessage `json:"messages"`
}

// DocumentMessage is a message plus its citation segments. Segments are
// present for assistant messages only.
type DocumentMessage struct {
	model.Message
	Segments []citation.Segment `json:"segments,omitempty"`
}

// NewDocument converts a session into the JSON export shape.
func NewDocument(sess *model.Session, exported time.Time) *Document {
	doc := &Document{
		ID:        sess.ID,
		Title:     sess.DisplayTitle(),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Exported:  exported,
		Messages:  make([]DocumentMessage, 0, len(sess.Messages)),
	}
	for _, msg := range sess.Messages {
		dm := DocumentMessage{Message: msg}
		if msg.IsAssistant() {
			dm.Segments = citation.Split(msg.Content, msg.Citations)
		}
		doc.Messages = append(doc.Messages, dm)
	}
	return doc
}

// JSONExporter exports sessions to JSON. The output always carries the
// complete session; metadata and timestamp options do not apply.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a session to indented JSON.
func (e *JSONExporter) Export(sess *model.Session) ([]byte, error) {
	if sess == nil {
		return nil, ErrNilSession
	}
	return json.MarshalIndent(NewDocument(sess, e.options.clock()), "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
