// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"

	"github.com/jeranaias/citeview/internal/model"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyTitle is returned when a rename would leave no title.
	ErrEmptyTitle = errors.New("title must not be empty")

	// ErrEmptyQuestion is returned when asking with blank input.
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// Store is the external session store.
type Store interface {
	// ListSessions returns sessions, most recently updated first.
	ListSessions(ctx context.Context) ([]model.SessionMeta, error)
	CreateSession(ctx context.Context, title string) (model.SessionMeta, error)
	RenameSession(ctx context.Context, id, title string) error
	DeleteSession(ctx context.Context, id string) error

	// Messages returns a session's messages in chronological order.
	Messages(ctx context.Context, id string) ([]model.Message, error)
}

// Responder answers a question within a session. The returned message is
// the assistant reply; the store is expected to have recorded both turns.
type Responder interface {
	Ask(ctx context.Context, sessionID, question string) (*model.Message, error)
}
