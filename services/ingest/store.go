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
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// Result is one chunk returned by a similarity search, with its
// distance to the query (smaller is closer).
type Result struct {
	Chunk    Chunk
	Distance float32
}

// Store holds one index's chunks and their vectors in an in-process
// HNSW graph. Pure Go, no CGO and no external vector database; index
// persistence is out of scope, so the store lives and dies with the
// index.
//
// Thread Safety:
//
//	Safe for concurrent use. The job runner appends while chat
//	sessions search; both paths share one RWMutex.
type Store struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[int]
	chunks   []Chunk
	embedder Embedder
}

// NewStore creates an empty store over the given embedder.
func NewStore(embedder Embedder) *Store {
	graph := hnsw.NewGraph[int]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return &Store{graph: graph, embedder: embedder}
}

// Add embeds the chunk and inserts it into the graph.
func (s *Store) Add(ctx context.Context, chunk Chunk) error {
	vec, err := s.embedder.Embed(ctx, chunk.Content)
	if err != nil {
		return fmt.Errorf("embed chunk %s:%d: %w", chunk.File, chunk.StartLine, err)
	}
	normalizeInPlace(vec)

	s.mu.Lock()
	defer s.mu.Unlock()
	key := len(s.chunks)
	s.chunks = append(s.chunks, chunk)
	s.graph.Add(hnsw.MakeNode(key, vec))
	return nil
}

// Search returns the k chunks nearest to query. An empty store
// returns an empty slice, not an error.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Result, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	normalizeInPlace(vec)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.graph.Len() == 0 {
		return []Result{}, nil
	}
	nodes := s.graph.Search(vec, k)
	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		if node.Key < 0 || node.Key >= len(s.chunks) {
			continue
		}
		results = append(results, Result{
			Chunk:    s.chunks[node.Key],
			Distance: s.graph.Distance(vec, node.Value),
		})
	}
	return results, nil
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
