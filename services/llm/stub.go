// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"strings"
)

// StubClient is a deterministic offline backend. It echoes a short
// summary of the prompt, which is enough for local development and
// transport tests without credentials.
type StubClient struct{}

// NewStubClient creates a stub backend.
func NewStubClient() *StubClient { return &StubClient{} }

// Chat implements the Client interface.
func (s *StubClient) Chat(_ context.Context, messages []Message, _ GenerationParams) (*ChatResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	last := messages[len(messages)-1]
	prompt := 0
	for _, m := range messages {
		prompt += len(strings.Fields(m.Content))
	}
	content := fmt.Sprintf("(stub) I received your question about: %s", firstLine(last.Content))
	return &ChatResult{
		Content: content,
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: len(strings.Fields(content)),
		},
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
