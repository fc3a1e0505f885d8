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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChunker(t *testing.T, maxTokens int) *Chunker {
	t.Helper()
	c, err := NewChunker(maxTokens)
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return c
}

func TestSplit_SmallFileIsOneChunk(t *testing.T) {
	c := newTestChunker(t, 512)
	content := "package main\n\nfunc main() {}\n"

	chunks := c.Split("main.go", content)
	require.Len(t, chunks, 1)
	assert.Equal(t, "main.go", chunks[0].File)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Greater(t, chunks[0].Tokens, 0)
}

func TestSplit_RespectsTokenBudget(t *testing.T) {
	c := newTestChunker(t, 20)
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("some code on this line\n")
	}

	chunks := c.Split("big.go", sb.String())
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// A single over-budget line may exceed the cap, multi-line
		// chunks may not.
		if strings.Contains(chunk.Content, "\n") {
			assert.LessOrEqual(t, chunk.Tokens, 20)
		}
	}
}

func TestSplit_LinesAreContiguous(t *testing.T) {
	c := newTestChunker(t, 15)
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("line of code here\n")
	}

	chunks := c.Split("f.go", sb.String())
	require.NotEmpty(t, chunks)
	assert.Equal(t, 1, chunks[0].StartLine)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndLine+1, chunks[i].StartLine)
	}
	for _, chunk := range chunks {
		assert.LessOrEqual(t, chunk.StartLine, chunk.EndLine)
	}
}

func TestSplit_NeverBreaksInsideALine(t *testing.T) {
	c := newTestChunker(t, 5)
	long := strings.Repeat("verylongtoken ", 30)

	chunks := c.Split("f.go", long+"\nshort\n")
	require.NotEmpty(t, chunks)
	assert.Equal(t, long, strings.Split(chunks[0].Content, "\n")[0])
}

func TestSplit_SkipsBlankOnlyChunks(t *testing.T) {
	c := newTestChunker(t, 512)
	chunks := c.Split("empty.go", "\n\n\n")
	assert.Empty(t, chunks)
}

func TestCountTokens(t *testing.T) {
	c := newTestChunker(t, 512)
	assert.Equal(t, 0, c.CountTokens(""))
	assert.Greater(t, c.CountTokens("func main() { fmt.Println(42) }"), 5)
}
