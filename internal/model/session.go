// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// DefaultSessionTitle is shown for sessions without a title.
const DefaultSessionTitle = "New Chat"

// SessionMeta is the sidebar summary of a chat thread.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// DisplayTitle returns the title or the default when blank.
func (m SessionMeta) DisplayTitle() string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	return DefaultSessionTitle
}

// Session is a chat thread with its messages.
type Session struct {
	SessionMeta
	Messages []Message `json:"messages"`
}

// Meta returns the summary with MessageCount derived from Messages.
func (s *Session) Meta() SessionMeta {
	meta := s.SessionMeta
	meta.MessageCount = len(s.Messages)
	return meta
}

// LastAssistant returns the most recent assistant message, or nil.
func (s *Session) LastAssistant() *Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleAssistant {
			return &s.Messages[i]
		}
	}
	return nil
}
