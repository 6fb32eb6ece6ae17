// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package source

import "sync"

// LoadingTracker remembers the one source id currently being fetched.
// Begin is last-write-wins; End only clears the id it was called for, so a
// slow earlier request cannot clear the indicator of a newer one.
type LoadingTracker struct {
	mu sync.RWMutex
	id string
}

// Begin marks id as loading, replacing any previous id.
func (t *LoadingTracker) Begin(id string) {
	t.mu.Lock()
	t.id = id
	t.mu.Unlock()
}

// End clears the loading state if id is still current. It reports whether
// the state was cleared.
func (t *LoadingTracker) End(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id != id {
		return false
	}
	t.id = ""
	return true
}

// Current returns the loading id, or "" when idle.
func (t *LoadingTracker) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.id
}

// IsLoading reports whether id is the source being fetched.
func (t *LoadingTracker) IsLoading(id string) bool {
	if id == "" {
		return false
	}
	return t.Current() == id
}
