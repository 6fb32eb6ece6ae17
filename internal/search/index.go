// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/citeview/internal/model"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/pkg/logger"
)

const (
	// DefaultLimit is used when Search is given a non-positive limit.
	DefaultLimit = 50

	// fetchConcurrency bounds parallel Messages calls during Rebuild.
	fetchConcurrency = 4
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("search index closed")

const schema = `
CREATE TABLE IF NOT EXISTS titles (
    session_id TEXT PRIMARY KEY,
    title TEXT NOT NULL
) WITHOUT ROWID;

CREATE VIRTUAL TABLE IF NOT EXISTS docs USING fts5(
    session_id UNINDEXED,
    message_id UNINDEXED,
    role UNINDEXED,
    title,
    body,
    tokenize='unicode61 remove_diacritics 2'
);
`

// Hit is one search result. Title-only matches have an empty MessageID.
type Hit struct {
	SessionID string     `json:"session_id"`
	MessageID string     `json:"message_id,omitempty"`
	Role      model.Role `json:"role,omitempty"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	Rank      float64    `json:"rank"`
}

// Index is an in-memory full-text index. It is safe for concurrent use.
type Index struct {
	mu          sync.RWMutex
	db          *sql.DB
	lastIndexed time.Time
	docCount    int
}

// New opens an empty index.
func New() (*Index, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so the pool is
	// pinned to a single connection that never expires.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the database.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return nil
	}
	err := idx.db.Close()
	idx.db = nil
	return err
}

// Stats reports the number of indexed rows and when Rebuild last finished.
func (idx *Index) Stats() (docs int, lastIndexed time.Time) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.docCount, idx.lastIndexed
}

type sessionDocs struct {
	meta     model.SessionMeta
	messages []model.Message
}

// Rebuild replaces the index contents with every session in store.
func (idx *Index) Rebuild(ctx context.Context, store session.Store) error {
	start := time.Now()

	metas, err := store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	all := make([]sessionDocs, len(metas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, meta := range metas {
		all[i].meta = meta
		g.Go(func() error {
			msgs, err := store.Messages(gctx, meta.ID)
			if err != nil {
				return fmt.Errorf("messages for %s: %w", meta.ID, err)
			}
			all[i].messages = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil {
		return ErrClosed
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"docs", "titles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	titleStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO titles(session_id, title) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare title insert: %w", err)
	}
	defer titleStmt.Close()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO docs(session_id, message_id, role, title, body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, sd := range all {
		title := sd.meta.DisplayTitle()
		if _, err := titleStmt.ExecContext(ctx, sd.meta.ID, title); err != nil {
			return fmt.Errorf("index title %s: %w", sd.meta.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, sd.meta.ID, "", "", title, ""); err != nil {
			return fmt.Errorf("index session %s: %w", sd.meta.ID, err)
		}
		count++
		for _, m := range sd.messages {
			if _, err := stmt.ExecContext(ctx, sd.meta.ID, m.ID, string(m.Role), "", m.Content); err != nil {
				return fmt.Errorf("index message %s: %w", m.ID, err)
			}
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	idx.docCount = count
	idx.lastIndexed = time.Now()
	logger.WithFields(logrus.Fields{
		"sessions": len(metas),
		"docs":     count,
		"duration": time.Since(start).String(),
	}).Debug("SEARCH_INDEX_REBUILT")
	return nil
}

// Search returns hits for query, best first. A blank query returns no hits.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	match := buildQuery(query)
	if match == "" {
		return []Hit{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.db == nil {
		return nil, ErrClosed
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT docs.session_id, docs.message_id, docs.role, titles.title,
		       CASE WHEN docs.message_id = '' THEN docs.title
		            ELSE snippet(docs, 4, '**', '**', '...', 12) END,
		       bm25(docs) AS score
		FROM docs
		JOIN titles ON titles.session_id = docs.session_id
		WHERE docs MATCH ?
		ORDER BY score
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	hits := []Hit{}
	for rows.Next() {
		var h Hit
		var role string
		if err := rows.Scan(&h.SessionID, &h.MessageID, &role, &h.Title, &h.Snippet, &h.Rank); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		h.Role = model.Role(role)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SessionIDs returns the distinct sessions with any hit, in rank order.
func (idx *Index) SessionIDs(ctx context.Context, query string) ([]string, error) {
	hits, err := idx.Search(ctx, query, DefaultLimit*4)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(hits))
	ids := []string{}
	for _, h := range hits {
		if !seen[h.SessionID] {
			seen[h.SessionID] = true
			ids = append(ids, h.SessionID)
		}
	}
	return ids, nil
}

// buildQuery turns user input into an FTS5 expression. Each word becomes a
// quoted prefix term so punctuation such as brackets cannot be parsed as
// query syntax; terms are ANDed.
func buildQuery(q string) string {
	fields := strings.Fields(q)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		terms = append(terms, `"`+f+`"*`)
	}
	return strings.Join(terms, " ")
}
