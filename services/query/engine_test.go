// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codescope/services/ingest"
	"github.com/AleutianAI/codescope/services/llm"
)

// fakeSearcher returns canned results.
type fakeSearcher struct {
	results []ingest.Result
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]ingest.Result, error) {
	return f.results, f.err
}

// capturingClient records the messages it was given.
type capturingClient struct {
	messages []llm.Message
	params   llm.GenerationParams
	reply    string
	err      error
}

func (c *capturingClient) Chat(_ context.Context, messages []llm.Message, params llm.GenerationParams) (*llm.ChatResult, error) {
	c.messages = messages
	c.params = params
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ChatResult{
		Content: c.reply,
		Usage:   llm.Usage{PromptTokens: 11, CompletionTokens: 5},
	}, nil
}

func someResults() []ingest.Result {
	return []ingest.Result{
		{Chunk: ingest.Chunk{File: "a.go", StartLine: 1, EndLine: 10, Content: "func Connect() {}", Tokens: 8}, Distance: 0.1},
		{Chunk: ingest.Chunk{File: "b.go", StartLine: 5, EndLine: 20, Content: "func Retry() {}", Tokens: 6}, Distance: 0.3},
	}
}

func TestAnswer_NoChunksSkipsLLM(t *testing.T) {
	client := &capturingClient{reply: "should not be used"}
	e := NewEngine(&fakeSearcher{}, client, 3)

	resp, err := e.Answer(context.Background(), "where is the database code?")
	require.NoError(t, err)
	assert.Equal(t, "No relevant code found.", resp.Content)
	assert.Nil(t, client.messages, "LLM must not be called without context")
	assert.Zero(t, resp.Usage.TotalTokens)
}

func TestAnswer_BuildsContextPrompt(t *testing.T) {
	client := &capturingClient{reply: "Connect opens the pool."}
	e := NewEngine(&fakeSearcher{results: someResults()}, client, 3)

	resp, err := e.Answer(context.Background(), "what does Connect do?")
	require.NoError(t, err)
	assert.Equal(t, "Connect opens the pool.", resp.Content)

	require.Len(t, client.messages, 2)
	assert.Equal(t, "system", client.messages[0].Role)
	user := client.messages[1].Content
	assert.True(t, strings.HasPrefix(user, "Context:\n"))
	assert.Contains(t, user, "func Connect() {}")
	assert.Contains(t, user, "func Retry() {}")
	assert.Contains(t, user, "Question: what does Connect do?")
}

func TestAnswer_GenerationParams(t *testing.T) {
	client := &capturingClient{reply: "ok"}
	e := NewEngine(&fakeSearcher{results: someResults()}, client, 3)

	_, err := e.Answer(context.Background(), "q")
	require.NoError(t, err)
	require.NotNil(t, client.params.Temperature)
	assert.InDelta(t, 0.7, *client.params.Temperature, 1e-6)
	require.NotNil(t, client.params.MaxTokens)
	assert.Equal(t, 1000, *client.params.MaxTokens)
}

func TestAnswer_ReportsChunksAndUsage(t *testing.T) {
	client := &capturingClient{reply: "ok"}
	e := NewEngine(&fakeSearcher{results: someResults()}, client, 3)

	resp, err := e.Answer(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 11, resp.Usage.PromptTokens)
	assert.Equal(t, 5, resp.Usage.CompletionTokens)
	assert.Equal(t, 16, resp.Usage.TotalTokens)

	require.NotNil(t, resp.Chunks)
	assert.Equal(t, 2, resp.Chunks.Count)
	assert.Equal(t, 14, resp.Chunks.TotalTokens)
	require.Len(t, resp.Chunks.Chunks, 2)
	assert.Equal(t, "a.go", resp.Chunks.Chunks[0].File)
	assert.InDelta(t, 0.1, resp.Chunks.Chunks[0].Distance, 1e-6)
}

func TestAnswer_SearchErrorPropagates(t *testing.T) {
	e := NewEngine(&fakeSearcher{err: errors.New("index offline")}, &capturingClient{}, 3)
	_, err := e.Answer(context.Background(), "q")
	assert.ErrorContains(t, err, "index offline")
}

func TestAnswer_LLMErrorPropagates(t *testing.T) {
	client := &capturingClient{err: errors.New("rate limited")}
	e := NewEngine(&fakeSearcher{results: someResults()}, client, 3)
	_, err := e.Answer(context.Background(), "q")
	assert.ErrorContains(t, err, "rate limited")
}
