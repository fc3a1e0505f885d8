// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestScan_FiltersByExtension(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":    "package main",
		"setup.py":   "import os",
		"notes.txt":  "ignore me",
		"image.png":  "binary",
		"README.md":  "# readme",
		"Makefile":   "all:",
		"lib/util.go": "package lib",
	})

	files, err := Scan(root, DefaultScanConfig())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "setup.py", "README.md", "lib/util.go"}, files)
}

func TestScan_PrunesSkipDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":                 "package main",
		".git/objects/x.go":       "not code",
		"node_modules/pkg/a.js":   "module.exports = {}",
		"vendor/dep/dep.go":       "package dep",
		"__pycache__/cached.py":   "cached",
		"internal/build/keep.go":  "package build",
	})

	files, err := Scan(root, DefaultScanConfig())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go"}, files)
}

func TestScan_SkipsOversizedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"small.go": "package main",
		"huge.go":  strings.Repeat("// padding\n", 1000),
	})

	cfg := DefaultScanConfig()
	cfg.MaxFileSize = 64
	files, err := Scan(root, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, files)
}

func TestScan_LexicalOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.go":     "package main",
		"a.go":     "package main",
		"sub/c.go": "package sub",
	})

	files, err := Scan(root, DefaultScanConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "sub/c.go"}, files)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "gone"), DefaultScanConfig())
	assert.Error(t, err)
}

func TestScan_EmptyTree(t *testing.T) {
	files, err := Scan(t.TempDir(), DefaultScanConfig())
	require.NoError(t, err)
	assert.Empty(t, files)
}
