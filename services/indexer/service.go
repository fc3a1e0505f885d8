// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package indexer wires the registry, broadcast hub, job runner and
// per-index corpora into one service the HTTP layer talks to.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/indexer/hub"
	"github.com/AleutianAI/codescope/services/indexer/job"
	"github.com/AleutianAI/codescope/services/indexer/registry"
	"github.com/AleutianAI/codescope/services/indexer/session"
	"github.com/AleutianAI/codescope/services/ingest"
	"github.com/AleutianAI/codescope/services/llm"
	"github.com/AleutianAI/codescope/services/query"
	"github.com/AleutianAI/codescope/services/structure"
)

// corpus is the searchable state built for one index: the vector
// store over its chunks and the structure graph of its symbols.
type corpus struct {
	store   *ingest.Store
	builder *structure.Builder
}

// Service owns all indexing state for the process. Indices live until
// the process exits; there is no persistence layer.
type Service struct {
	Registry *registry.Registry
	Hub      *hub.Hub

	runner   *job.Runner
	embedder ingest.Embedder
	llm      llm.Client
	chunker  *ingest.Chunker

	mu      sync.RWMutex
	corpora map[string]*corpus

	baseCtx context.Context
	cancel  context.CancelFunc
	jobs    *errgroup.Group
}

// New builds the service. The LLM backend and embedder come from the
// environment so the same binary runs against OpenAI, Ollama or fully
// offline.
func New() (*Service, error) {
	client, err := llm.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("llm backend: %w", err)
	}
	chunker, err := ingest.NewChunker(ingest.DefaultChunkTokens)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}

	reg := registry.New()
	h := hub.New(hub.DefaultSubscriberBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	jobs := &errgroup.Group{}
	return &Service{
		Registry: reg,
		Hub:      h,
		runner:   job.NewRunner(reg, h),
		embedder: ingest.NewEmbedderFromEnv(),
		llm:      client,
		chunker:  chunker,
		corpora:  make(map[string]*corpus),
		baseCtx:  ctx,
		cancel:   cancel,
		jobs:     jobs,
	}, nil
}

// Create registers a new index and starts its job in the background.
// Jobs outlive the HTTP request that created them; they stop only on
// Shutdown.
func (s *Service) Create(repoPath string) (datatypes.Index, error) {
	idx, err := s.Registry.Create(repoPath)
	if err != nil {
		return datatypes.Index{}, err
	}

	c := &corpus{
		store:   ingest.NewStore(s.embedder),
		builder: structure.NewBuilder(),
	}
	s.mu.Lock()
	s.corpora[idx.ID] = c
	s.mu.Unlock()

	s.jobs.Go(func() error {
		ing := &corpusIngestor{root: idx.SourcePath, corpus: c, chunker: s.chunker}
		if err := s.runner.Run(s.baseCtx, idx, ing); err != nil {
			// Failures reach clients through the registry and the
			// terminal error event; the group only tracks liveness.
			slog.Error("indexing job failed", "index_id", idx.ID, "error", err)
		}
		return nil
	})
	return idx, nil
}

// OpenSession opens a chat session against an existing index. The
// index does not have to be complete; queries against a partial index
// simply search fewer chunks.
func (s *Service) OpenSession(indexID string) (*session.Session, error) {
	if _, err := s.Registry.Get(indexID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	c := s.corpora[indexID]
	s.mu.RUnlock()
	if c == nil {
		return nil, registry.ErrNotFound
	}
	engine := query.NewEngine(c.store, s.llm, query.DefaultTopK)
	return session.New(indexID, engine), nil
}

// Structure returns the symbol graph for an index.
func (s *Service) Structure(indexID string) (*datatypes.StructureGraph, error) {
	if _, err := s.Registry.Get(indexID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	c := s.corpora[indexID]
	s.mu.RUnlock()
	if c == nil {
		return nil, registry.ErrNotFound
	}
	return c.builder.Graph(), nil
}

// Shutdown cancels running jobs, waits for them, and closes the hub
// so every progress subscriber drains.
func (s *Service) Shutdown() {
	s.cancel()
	_ = s.jobs.Wait()
	s.Hub.Close()
}

// corpusIngestor feeds scanned files into one corpus.
type corpusIngestor struct {
	root    string
	corpus  *corpus
	chunker *ingest.Chunker
}

func (ci *corpusIngestor) ProcessFile(ctx context.Context, relPath string) error {
	content, err := os.ReadFile(filepath.Join(ci.root, filepath.FromSlash(relPath)))
	if err != nil {
		return fmt.Errorf("read %s: %w", relPath, err)
	}
	for _, chunk := range ci.chunker.Split(relPath, string(content)) {
		if err := ci.corpus.store.Add(ctx, chunk); err != nil {
			return fmt.Errorf("embed %s: %w", relPath, err)
		}
	}
	if err := ci.corpus.builder.AddFile(ctx, relPath, content); err != nil {
		// Structure extraction is best effort; search still works.
		slog.Debug("structure extraction failed", "file", relPath, "error", err)
	}
	return nil
}
