// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/session"
)

func seedStore(t *testing.T) (*session.MemoryStore, string, string) {
	t.Helper()
	ctx := context.Background()
	s := session.NewMemoryStore()

	budget, err := s.CreateSession(ctx, "Budget planning")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(budget.ID, model.Message{Role: model.RoleUser, Content: "What drove the revenue increase?"}))
	require.NoError(t, s.AppendMessage(budget.ID, model.Message{
		Role:    model.RoleAssistant,
		Content: "Revenue grew because of the new café partnerships [1].",
	}))

	hiring, err := s.CreateSession(ctx, "Hiring")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(hiring.ID, model.Message{Role: model.RoleUser, Content: "Summarize the interview process"}))

	return s, budget.ID, hiring.ID
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestRebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	store, budgetID, hiringID := seedStore(t)
	idx := newIndex(t)
	require.NoError(t, idx.Rebuild(ctx, store))

	docs, last := idx.Stats()
	assert.Equal(t, 5, docs)
	assert.False(t, last.IsZero())

	hits, err := idx.Search(ctx, "revenue", 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, budgetID, h.SessionID)
		assert.Equal(t, "Budget planning", h.Title)
		assert.NotEmpty(t, h.MessageID)
		assert.Contains(t, h.Snippet, "**")
	}

	hits, err = idx.Search(ctx, "hiring", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, hiringID, hits[0].SessionID)
	assert.Empty(t, hits[0].MessageID, "title match")
	assert.Equal(t, "Hiring", hits[0].Snippet)
}

func TestSearch_PrefixDiacriticsAndSyntax(t *testing.T) {
	ctx := context.Background()
	store, budgetID, _ := seedStore(t)
	idx := newIndex(t)
	require.NoError(t, idx.Rebuild(ctx, store))

	hits, err := idx.Search(ctx, "partner", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1, "prefix match")

	hits, err = idx.Search(ctx, "cafe", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1, "diacritics removed")
	assert.Equal(t, budgetID, hits[0].SessionID)

	// Brackets and quotes must not be parsed as FTS syntax.
	_, err = idx.Search(ctx, `[1] "unbalanced`, 0)
	require.NoError(t, err)

	hits, err = idx.Search(ctx, "   ", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_AllTermsRequired(t *testing.T) {
	ctx := context.Background()
	store, _, _ := seedStore(t)
	idx := newIndex(t)
	require.NoError(t, idx.Rebuild(ctx, store))

	hits, err := idx.Search(ctx, "revenue interview", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSessionIDs(t *testing.T) {
	ctx := context.Background()
	store, budgetID, _ := seedStore(t)
	idx := newIndex(t)
	require.NoError(t, idx.Rebuild(ctx, store))

	ids, err := idx.SessionIDs(ctx, "revenue")
	require.NoError(t, err)
	assert.Equal(t, []string{budgetID}, ids)
}

func TestRebuild_Replaces(t *testing.T) {
	ctx := context.Background()
	store, budgetID, _ := seedStore(t)
	idx := newIndex(t)
	require.NoError(t, idx.Rebuild(ctx, store))

	require.NoError(t, store.DeleteSession(ctx, budgetID))
	require.NoError(t, idx.Rebuild(ctx, store))

	hits, err := idx.Search(ctx, "revenue", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

type failingStore struct{ *session.MemoryStore }

func (failingStore) Messages(context.Context, string) ([]model.Message, error) {
	return nil, errors.New("backend down")
}

func TestRebuild_StoreError(t *testing.T) {
	ctx := context.Background()
	store, _, _ := seedStore(t)
	idx := newIndex(t)

	err := idx.Rebuild(ctx, failingStore{store})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestClosed(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), "x", 0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "", buildQuery("  "))
	assert.Equal(t, `"a"* "b"*`, buildQuery("a  b"))
	assert.Equal(t, `"say""hi"*`, buildQuery(`say"hi`))
}
