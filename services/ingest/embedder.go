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
	"hash/fnv"
	"log/slog"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// NewEmbedderFromEnv selects the embedding backend. EMBEDDING_BACKEND
// chooses "openai" or "static"; unset defaults to openai when an API
// key is present and static otherwise, so the service always starts.
func NewEmbedderFromEnv() Embedder {
	backend := os.Getenv("EMBEDDING_BACKEND")
	switch backend {
	case "openai":
		if e, err := NewOpenAIEmbedder(); err == nil {
			return e
		} else {
			slog.Warn("OpenAI embedder unavailable, falling back to static", "error", err)
		}
	case "static":
	case "":
		if e, err := NewOpenAIEmbedder(); err == nil {
			return e
		}
		slog.Info("EMBEDDING_BACKEND not set and no API key, using static embeddings")
	default:
		slog.Warn("EMBEDDING_BACKEND not recognized, using static embeddings", "backend", backend)
	}
	return NewStaticEmbedder()
}

// =============================================================================
// OpenAI Embedder
// =============================================================================

// OpenAIEmbedder produces embeddings via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

// NewOpenAIEmbedder reads OPENAI_API_KEY (and optionally
// OPENAI_EMBEDDING_MODEL) from the environment.
func NewOpenAIEmbedder() (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	model := openai.EmbeddingModel(os.Getenv("OPENAI_EMBEDDING_MODEL"))
	if model == "" {
		model = openai.AdaEmbeddingV2
	}
	slog.Info("Initializing OpenAI embedder", "model", string(model))
	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  model,
		dims:   1536,
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: e.model,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embeddings call failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("OpenAI returned no embeddings")
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// =============================================================================
// Static Embedder
// =============================================================================

// StaticDimensions is the vector width of the hash-based embedder.
const StaticDimensions = 384

var staticTokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// StaticEmbedder generates deterministic hash-based embeddings with no
// network or model dependency. Reduced semantic quality, but it keeps
// the whole pipeline (and the tests) runnable offline.
type StaticEmbedder struct{}

// NewStaticEmbedder creates a static embedder.
func NewStaticEmbedder() *StaticEmbedder { return &StaticEmbedder{} }

// Embed implements Embedder. Tokens are hashed into fixed buckets and
// the resulting vector normalized to unit length.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, StaticDimensions)
	tokens := staticTokenRegex.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%StaticDimensions]++
	}
	normalizeInPlace(vec)
	return vec, nil
}

// Dimensions implements Embedder.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// normalizeInPlace scales v to unit length. A zero vector is left as is.
func normalizeInPlace(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
