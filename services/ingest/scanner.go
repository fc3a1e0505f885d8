// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest turns a source tree into searchable chunks: file
// enumeration, token-bounded chunking, embedding, and an in-process
// vector store per index.
package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ScanConfig controls file enumeration.
type ScanConfig struct {
	// Extensions is the set of file suffixes to index.
	Extensions []string

	// SkipDirs are directory names pruned from the walk.
	SkipDirs []string

	// MaxFileSize is the largest file in bytes the scanner will
	// return. Larger files are skipped, not failed.
	MaxFileSize int64
}

// DefaultScanConfig returns the scan policy used by the indexer.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Extensions: []string{".go", ".py", ".js", ".ts", ".java", ".rs", ".rb", ".c", ".h", ".cpp", ".md"},
		SkipDirs:   []string{".git", "node_modules", "vendor", "__pycache__", ".venv", "dist", "build"},
		MaxFileSize: 1 << 20, // 1MB
	}
}

// Scan enumerates indexable files under root in lexical walk order and
// returns their paths relative to root. The returned slice is the
// job's fixed file total: files discovered after enumeration never
// join a running job.
func Scan(root string, cfg ScanConfig) ([]string, error) {
	skip := make(map[string]struct{}, len(cfg.SkipDirs))
	for _, d := range cfg.SkipDirs {
		skip[d] = struct{}{}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, prune := skip[d.Name()]; prune && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !hasExtension(path, cfg.Extensions) {
			return nil
		}
		if cfg.MaxFileSize > 0 {
			info, err := d.Info()
			if err != nil || info.Size() > cfg.MaxFileSize {
				return nil
			}
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
