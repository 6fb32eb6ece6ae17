// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package source

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/pkg/logger"
)

// User-facing notices.
const (
	NoticeNotAvailable = "Source not available"
	NoticeFailed       = "Failed to open source"
)

// Status is the outcome of a view action.
type Status int

const (
	StatusOpened Status = iota
	StatusNotAvailable
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOpened:
		return "opened"
	case StatusNotAvailable:
		return "not_available"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes what happened to one view action.
type Result struct {
	SourceID string
	Status   Status
	URL      string

	// Notice is the short message to show the user, empty on success.
	Notice string

	Err error
}

// OK reports whether the source was opened.
func (r Result) OK() bool {
	return r.Status == StatusOpened
}

// Viewer runs "view source" actions.
type Viewer struct {
	resolver Resolver
	opener   Opener
	loading  *LoadingTracker
}

// NewViewer builds a viewer around a resolver and opener.
func NewViewer(resolver Resolver, opener Opener) *Viewer {
	return &Viewer{
		resolver: resolver,
		opener:   opener,
		loading:  &LoadingTracker{},
	}
}

// Loading exposes the tracker so views can render the pending state.
func (v *Viewer) Loading() *LoadingTracker {
	return v.loading
}

// Open resolves and opens the source behind c. A citation without a source
// id fails immediately without any request. The loading indicator is set
// for the duration of the request and cleared on every path.
func (v *Viewer) Open(ctx context.Context, c model.Citation) Result {
	if !c.HasSource() {
		logger.WithFields(logrus.Fields{"number": c.Number}).Warn("SOURCE_VIEW_UNAVAILABLE")
		return Result{Status: StatusNotAvailable, Notice: NoticeNotAvailable, Err: ErrNoSourceID}
	}

	id := c.SourceID
	v.loading.Begin(id)
	defer v.loading.End(id)

	loc, err := v.resolver.View(ctx, id)
	if err == nil && loc == nil {
		err = ErrEmptyLocator
	}
	if err == nil && loc.URL == "" {
		err = ErrEmptyLocator
	}
	if err != nil {
		return v.failed(id, err)
	}

	if err := v.opener.Open(loc.URL); err != nil {
		return v.failed(id, err)
	}

	logger.WithFields(logrus.Fields{"source_id": id}).Info("SOURCE_VIEW_OPENED")
	return Result{SourceID: id, Status: StatusOpened, URL: loc.URL}
}

func (v *Viewer) failed(id string, err error) Result {
	fields := logrus.Fields{"source_id": id, "error": err.Error()}
	var se *StatusError
	if errors.As(err, &se) {
		fields["status"] = se.Status
	}
	logger.WithFields(fields).Warn("SOURCE_VIEW_FAILED")
	return Result{SourceID: id, Status: StatusFailed, Notice: NoticeFailed, Err: err}
}
