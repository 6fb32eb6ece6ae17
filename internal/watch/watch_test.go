// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncedWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "watched.md")
	other := filepath.Join(dir, "other.md")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0600))

	var calls atomic.Int32
	changed := make(chan string, 4)
	w, err := New(50*time.Millisecond, func(path string) {
		calls.Add(1)
		changed <- path
	})
	require.NoError(t, err)
	require.NoError(t, w.Add(target))
	w.Start()
	defer w.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte{byte('b' + i)}, 0600))
	}
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0600))

	select {
	case path := <-changed:
		abs, _ := filepath.Abs(target)
		assert.Equal(t, abs, path)
	case <-time.After(3 * time.Second):
		t.Fatal("no change event delivered")
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst of writes should coalesce")
}

func TestWatcher_CloseIsClean(t *testing.T) {
	w, err := New(0, func(string) {})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	w.Start()
	assert.NoError(t, w.Close())
}
