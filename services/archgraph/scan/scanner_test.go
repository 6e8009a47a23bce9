// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hami0095/ai-architecture/services/archgraph/storage/badger"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestScan_Rendering(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"app/main.py":        "print('hi')\n",
		"app/README.md":      "# docs",
		"app/data.json":      "{}",
		"app/image.png":      "binary",
		"Dockerfile":         "FROM python:3.12",
		".git/config":        "[core]",
		"node_modules/x.js":  "x",
		"a/b/c/d/deep.py":    "too deep",
		"a/b/c/shallow.py":   "ok",
		".vscode/settings.y": "",
	})

	out, err := NewScanner(WithLogger(quietLogger())).Scan(context.Background(), root, 4)
	require.NoError(t, err)

	abs, _ := filepath.Abs(root)
	assert.True(t, strings.HasPrefix(out, "Project Root: "+abs+"\nStructure:\n"))

	wantTree := []string{
		"Dockerfile\n",
		"a/\n",
		"    b/\n",
		"        c/\n",
		"            d/\n",
		"            shallow.py\n",
		"app/\n",
		"    README.md\n",
		"    data.json\n",
		"    main.py\n",
	}
	treeEnd := strings.Index(out, "\n\nTotal Files Scanned")
	require.Positive(t, treeEnd)
	tree := out[len("Project Root: "+abs+"\nStructure:\n"):treeEnd]
	assert.Equal(t, strings.Join(wantTree, ""), tree)

	assert.Contains(t, out, "\n\nTotal Files Scanned: 5\n\nKey File Contents:\n")
	assert.Contains(t, out, "--- FILE: app/main.py ---\nprint('hi')\n\n\n")
	assert.Contains(t, out, "--- FILE: Dockerfile ---\nFROM python:3.12\n\n")
	assert.NotContains(t, out, "--- FILE: app/README.md")
	assert.NotContains(t, out, "deep.py")
	assert.NotContains(t, out, "node_modules")
	assert.NotContains(t, out, ".git/")
	assert.NotContains(t, out, "image.png")
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", 1500)
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("h", 1000) + strings.Repeat("m", 1) + strings.Repeat("t", 500)
	got := Truncate(long)
	assert.Equal(t, strings.Repeat("h", 1000)+"\n...[TRUNCATED]...\n"+strings.Repeat("t", 500), got)

	runes := strings.Repeat("é", 1600)
	assert.Equal(t, 1000+500+len([]rune(truncMarker)), len([]rune(Truncate(runes))))
}

func TestScan_RootErrors(t *testing.T) {
	s := NewScanner(WithLogger(quietLogger()))
	dir := t.TempDir()

	_, err := s.Scan(context.Background(), filepath.Join(dir, "missing"), 2)
	assert.True(t, errors.Is(err, ErrRootNotFound))

	file := filepath.Join(dir, "f.py")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = s.Scan(context.Background(), file, 2)
	assert.True(t, errors.Is(err, ErrRootNotDirectory))
}

func TestScan_UsesCache(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": "x = 1"})

	cache := NewTieredCache(8, time.Minute, nil, quietLogger())
	s := NewScanner(WithCache(cache), WithLogger(quietLogger()))

	first, err := s.Scan(context.Background(), root, 3)
	require.NoError(t, err)

	writeFiles(t, root, map[string]string{"b.py": "y = 2"})
	second, err := s.Scan(context.Background(), root, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same (root, depth) is served from cache")

	other, err := s.Scan(context.Background(), root, 2)
	require.NoError(t, err)
	assert.Contains(t, other, "b.py", "a different depth is a different key")
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("/r", 4)
	assert.True(t, strings.HasPrefix(a, "archgraph:scan:"))
	assert.Equal(t, a, CacheKey("/r", 4))
	assert.NotEqual(t, a, CacheKey("/r", 3))
	assert.NotEqual(t, a, CacheKey("/s", 4))
}

func TestTieredCache_FallsThroughToBadger(t *testing.T) {
	db, err := badger.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	writer := NewTieredCache(8, time.Minute, db, quietLogger())
	writer.Set(ctx, CacheKey("/r", 1), "rendered", time.Minute)

	reader := NewTieredCache(8, time.Minute, db, quietLogger())
	got, ok := reader.Get(ctx, CacheKey("/r", 1))
	require.True(t, ok)
	assert.Equal(t, "rendered", got)

	require.NoError(t, reader.Purge())
	_, ok = NewTieredCache(8, time.Minute, db, quietLogger()).Get(ctx, CacheKey("/r", 1))
	assert.False(t, ok)
}

func TestScan_Canceled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(WithLogger(quietLogger())).Scan(ctx, root, 2)
	assert.True(t, errors.Is(err, context.Canceled))
}
