// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_DefaultsToStub(t *testing.T) {
	t.Setenv("LLM_BACKEND_TYPE", "")
	client, err := NewFromEnv()
	require.NoError(t, err)
	assert.IsType(t, &StubClient{}, client)
}

func TestNewFromEnv_UnknownBackend(t *testing.T) {
	t.Setenv("LLM_BACKEND_TYPE", "mainframe")
	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_OllamaRequiresBaseURL(t *testing.T) {
	t.Setenv("LLM_BACKEND_TYPE", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "")
	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestStubClient_EchoesQuestion(t *testing.T) {
	client := NewStubClient()
	result, err := client.Chat(context.Background(), []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "where is the retry logic?\nsecond line"},
	}, GenerationParams{})
	require.NoError(t, err)

	assert.Contains(t, result.Content, "where is the retry logic?")
	assert.NotContains(t, result.Content, "second line")
	assert.Greater(t, result.Usage.PromptTokens, 0)
	assert.Greater(t, result.Usage.CompletionTokens, 0)
}

func TestStubClient_Deterministic(t *testing.T) {
	client := NewStubClient()
	msgs := []Message{{Role: "user", Content: "same question"}}
	a, err := client.Chat(context.Background(), msgs, GenerationParams{})
	require.NoError(t, err)
	b, err := client.Chat(context.Background(), msgs, GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, a.Content, b.Content)
}
