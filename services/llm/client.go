// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the pluggable chat-completion backend used by
// the query engine. Backends are selected at startup from the
// environment; every backend reports token usage so replies can carry
// accounting to the client.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams tunes a single completion call. Nil fields use the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Usage is the backend-reported token accounting for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	ReasoningTokens  int
}

// ChatResult is the answer to one chat call plus its usage.
type ChatResult struct {
	Content string
	Usage   Usage
}

// Client is the standard interface for any LLM backend.
type Client interface {
	Chat(ctx context.Context, messages []Message, params GenerationParams) (*ChatResult, error)
}

// NewFromEnv selects a backend from LLM_BACKEND_TYPE: "openai",
// "ollama", or "stub". Unset falls back to the stub backend with a
// warning so the service still starts without credentials.
func NewFromEnv() (Client, error) {
	backend := os.Getenv("LLM_BACKEND_TYPE")
	switch backend {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return NewOpenAIClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return NewOllamaClient()
	case "stub":
		slog.Info("Using stub LLM backend")
		return NewStubClient(), nil
	case "":
		slog.Warn("LLM_BACKEND_TYPE not set, defaulting to stub backend")
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND_TYPE %q", backend)
	}
}
