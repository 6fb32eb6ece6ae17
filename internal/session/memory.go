// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/citeview/internal/model"
)

// OfflineReply is the assistant answer given when no backend is configured.
const OfflineReply = "No backend is configured, so new questions cannot be answered. Existing sessions are read-only."

// MemoryStore keeps sessions in memory. It implements Store and Responder.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		now:      time.Now,
	}
}

// fixture is the on-disk shape accepted by LoadFixture.
type fixture struct {
	Sessions []model.Session `json:"sessions"`
}

// LoadFixture reads a JSON file of the form {"sessions": [...]} into a new
// store. Message text is normalized to NFC so searches and offsets behave
// the same regardless of how the source composed accents.
func LoadFixture(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	s := NewMemoryStore()
	for i := range fx.Sessions {
		sess := fx.Sessions[i]
		if sess.ID == "" {
			sess.ID = uuid.NewString()
		}
		for j := range sess.Messages {
			normalizeMessage(&sess.Messages[j])
		}
		sess.MessageCount = len(sess.Messages)
		s.sessions[sess.ID] = &sess
	}
	return s, nil
}

func normalizeMessage(m *model.Message) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Content = norm.NFC.String(m.Content)
	for k := range m.Citations {
		m.Citations[k].Text = norm.NFC.String(m.Citations[k].Text)
	}
}

// ListSessions returns metadata sorted by UpdatedAt, newest first.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]model.SessionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]model.SessionMeta, 0, len(s.sessions))
	for _, sess := range s.sessions {
		metas = append(metas, sess.Meta())
	}
	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].ID < metas[j].ID
		}
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// CreateSession adds an empty session.
func (s *MemoryStore) CreateSession(ctx context.Context, title string) (model.SessionMeta, error) {
	now := s.now()
	sess := &model.Session{SessionMeta: model.SessionMeta{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess.Meta(), nil
}

// RenameSession sets a trimmed, non-empty title.
func (s *MemoryStore) RenameSession(ctx context.Context, id, title string) error {
	title, ok := NormalizeTitle(title)
	if !ok {
		return ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, found := s.sessions[id]
	if !found {
		return ErrSessionNotFound
	}
	sess.Title = title
	sess.UpdatedAt = s.now()
	return nil
}

// DeleteSession removes a session.
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.sessions[id]; !found {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Messages returns a copy of the session's messages.
func (s *MemoryStore) Messages(ctx context.Context, id string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, found := s.sessions[id]
	if !found {
		return nil, ErrSessionNotFound
	}
	out := make([]model.Message, len(sess.Messages))
	copy(out, sess.Messages)
	return out, nil
}

// AppendMessage adds a message to a session and bumps its UpdatedAt.
func (s *MemoryStore) AppendMessage(id string, msg model.Message) error {
	normalizeMessage(&msg)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, found := s.sessions[id]
	if !found {
		return ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = msg.CreatedAt
	return nil
}

// Ask records the question and answers with OfflineReply.
func (s *MemoryStore) Ask(ctx context.Context, sessionID, question string) (*model.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if err := s.AppendMessage(sessionID, *model.NewMessage(model.RoleUser, question)); err != nil {
		return nil, err
	}
	reply := model.NewMessage(model.RoleAssistant, OfflineReply)
	if err := s.AppendMessage(sessionID, *reply); err != nil {
		return nil, err
	}
	return reply, nil
}
