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
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// StaticEmbedder
// =============================================================================

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	a, err := e.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "func main() {}")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
}

func TestStaticEmbedder_Normalized(t *testing.T) {
	e := NewStaticEmbedder()
	v, err := e.Embed(context.Background(), "some code to embed here")
	require.NoError(t, err)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestStaticEmbedder_DistinguishesTexts(t *testing.T) {
	e := NewStaticEmbedder()
	a, err := e.Embed(context.Background(), "database connection pooling")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "websocket heartbeat handling")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// =============================================================================
// Store
// =============================================================================

func addChunk(t *testing.T, s *Store, file, content string) {
	t.Helper()
	require.NoError(t, s.Add(context.Background(), Chunk{
		File:      file,
		StartLine: 1,
		EndLine:   1,
		Content:   content,
		Tokens:    len(content) / 4,
	}))
}

func TestStore_SearchFindsClosestChunk(t *testing.T) {
	s := NewStore(NewStaticEmbedder())
	addChunk(t, s, "db.go", "open database connection with retry and pooling")
	addChunk(t, s, "ws.go", "websocket heartbeat ping pong timeout handling")
	addChunk(t, s, "cfg.go", "yaml configuration loading with env overrides")

	results, err := s.Search(context.Background(), "websocket heartbeat ping pong timeout handling", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ws.go", results[0].Chunk.File)
}

func TestStore_SearchEmptyStore(t *testing.T) {
	s := NewStore(NewStaticEmbedder())
	results, err := s.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_SearchCapsAtK(t *testing.T) {
	s := NewStore(NewStaticEmbedder())
	for i := 0; i < 10; i++ {
		addChunk(t, s, "f.go", "chunk content number "+string(rune('a'+i)))
	}

	results, err := s.Search(context.Background(), "chunk content", 3)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 3)
	assert.NotEmpty(t, results)
}

func TestStore_Len(t *testing.T) {
	s := NewStore(NewStaticEmbedder())
	assert.Equal(t, 0, s.Len())
	addChunk(t, s, "a.go", "first chunk")
	addChunk(t, s, "b.go", "second chunk")
	assert.Equal(t, 2, s.Len())
}
