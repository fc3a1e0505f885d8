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
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultChunkTokens is the token budget per chunk.
const DefaultChunkTokens = 512

// Chunk is one token-bounded slice of a source file. Line numbers are
// 1-based and inclusive.
type Chunk struct {
	File      string
	StartLine int
	EndLine   int
	Content   string
	Tokens    int
}

// Chunker splits file content into token-bounded, line-aligned chunks.
//
// Thread Safety: safe for concurrent use; the tiktoken encoder is
// read-only after construction.
type Chunker struct {
	maxTokens int
	enc       *tiktoken.Tiktoken
}

// NewChunker creates a chunker with the given per-chunk token budget.
// A non-positive budget falls back to DefaultChunkTokens.
func NewChunker(maxTokens int) (*Chunker, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultChunkTokens
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Chunker{maxTokens: maxTokens, enc: enc}, nil
}

// CountTokens returns the token count of text.
func (c *Chunker) CountTokens(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Split cuts content into chunks of at most the configured token
// budget, never breaking inside a line. A single line over budget
// still becomes its own chunk.
func (c *Chunker) Split(file, content string) []Chunk {
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	var cur []string
	curTokens := 0
	startLine := 1

	flush := func(endLine int) {
		if len(cur) == 0 {
			return
		}
		text := strings.Join(cur, "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{
				File:      file,
				StartLine: startLine,
				EndLine:   endLine,
				Content:   text,
				Tokens:    curTokens,
			})
		}
		cur = nil
		curTokens = 0
		startLine = endLine + 1
	}

	for i, line := range lines {
		lineTokens := c.CountTokens(line)
		if curTokens+lineTokens > c.maxTokens && len(cur) > 0 {
			flush(i) // lines are 1-based; i is the previous line's number
		}
		cur = append(cur, line)
		curTokens += lineTokens
	}
	flush(len(lines))
	return chunks
}
