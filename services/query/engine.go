// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query answers questions about an indexed repository:
// retrieve the most similar chunks, assemble a context prompt, call
// the LLM backend, and report the reply together with chunk
// references and token accounting.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/ingest"
	"github.com/AleutianAI/codescope/services/llm"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 3

const systemPrompt = "You are a helpful code assistant. Answer questions about the code based on the context provided."

// Searcher finds the chunks most similar to a query. *ingest.Store
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]ingest.Result, error)
}

// Response is one answered question.
type Response struct {
	Content string
	Usage   datatypes.TokenUsage
	Chunks  *datatypes.ChunksInfo
}

// Engine answers questions over one index's chunk store.
//
// Thread Safety: safe for concurrent use; all state is read-only
// after construction.
type Engine struct {
	search Searcher
	client llm.Client
	topK   int
}

// NewEngine creates an engine over the given store and LLM backend.
func NewEngine(search Searcher, client llm.Client, topK int) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{search: search, client: client, topK: topK}
}

// Answer runs one retrieval-augmented turn. When no chunks match, it
// answers without calling the LLM, mirroring the interactive contract:
// the user still gets a reply, just not a grounded one.
func (e *Engine) Answer(ctx context.Context, question string) (*Response, error) {
	results, err := e.search.Search(ctx, question, e.topK)
	if err != nil {
		return nil, fmt.Errorf("chunk search failed: %w", err)
	}
	if len(results) == 0 {
		return &Response{
			Content: "No relevant code found.",
			Chunks:  &datatypes.ChunksInfo{Chunks: []datatypes.ChunkRef{}},
		}, nil
	}

	var sb strings.Builder
	info := &datatypes.ChunksInfo{Count: len(results)}
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(r.Chunk.Content)
		info.TotalTokens += r.Chunk.Tokens
		info.Chunks = append(info.Chunks, datatypes.ChunkRef{
			File:      r.Chunk.File,
			StartLine: r.Chunk.StartLine,
			EndLine:   r.Chunk.EndLine,
			Tokens:    r.Chunk.Tokens,
			Distance:  r.Distance,
		})
	}

	temp := float32(0.7)
	maxTokens := 1000
	result, err := e.client.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", sb.String(), question)},
	}, llm.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	slog.Debug("query answered", "chunks", len(results),
		"prompt_tokens", result.Usage.PromptTokens,
		"completion_tokens", result.Usage.CompletionTokens)

	return &Response{
		Content: result.Content,
		Usage: datatypes.TokenUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.PromptTokens + result.Usage.CompletionTokens,
			ReasoningTokens:  result.Usage.ReasoningTokens,
		},
		Chunks: info,
	}, nil
}
