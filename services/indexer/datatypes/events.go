// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// =============================================================================
// Frame Envelope
// =============================================================================

// FrameType is the discriminator shared by every frame on both
// websocket transports.
type FrameType string

const (
	FrameTypePing     FrameType = "ping"
	FrameTypePong     FrameType = "pong"
	FrameTypeProgress FrameType = "progress"
	FrameTypeChat     FrameType = "chat"
	FrameTypeLog      FrameType = "log"
	FrameTypeStatus   FrameType = "status"
	FrameTypeError    FrameType = "error"
)

// ControlFrame is a bare ping/pong frame.
type ControlFrame struct {
	Type FrameType `json:"type"`
}

// =============================================================================
// Progress Stream
// =============================================================================

// ProgressEvent is one status update about an in-flight indexing job.
//
// Events for a given index are published in non-decreasing
// ProcessedFiles order and the broadcast hub never reorders them, so
// every observer sees a monotonic progress sequence.
type ProgressEvent struct {
	Type           FrameType  `json:"type"`
	IndexID        string     `json:"index_id"`
	CurrentFile    string     `json:"current_file"`
	TotalFiles     int        `json:"total_files"`
	ProcessedFiles int        `json:"processed_files"`
	Status         IndexState `json:"status"`
	Error          string     `json:"error,omitempty"`
}

// NewProgressEvent builds a progress frame for the given index.
func NewProgressEvent(indexID string, state IndexState, current string, processed, total int) ProgressEvent {
	return ProgressEvent{
		Type:           FrameTypeProgress,
		IndexID:        indexID,
		CurrentFile:    current,
		TotalFiles:     total,
		ProcessedFiles: processed,
		Status:         state,
	}
}

// =============================================================================
// Chat Stream
// =============================================================================

// ChatRole identifies the author of a chat frame.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// LogLevel is the severity of a log frame.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelError LogLevel = "error"
)

// ChatInbound is the only frame a chat client may send besides pong:
// a user message for the query engine.
type ChatInbound struct {
	Type    FrameType `json:"type"`
	Content string    `json:"content"`
}

// TokenUsage is the token accounting attached to an assistant reply.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	ReasoningTokens  int `json:"reasoning_tokens,omitempty"`
}

// ChunkRef references one retrieved code chunk backing a reply.
type ChunkRef struct {
	File      string  `json:"file"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Tokens    int     `json:"tokens"`
	Distance  float32 `json:"distance"`
}

// ChunksInfo summarizes the chunks retrieved for a reply.
type ChunksInfo struct {
	Count       int        `json:"count"`
	TotalTokens int        `json:"total_tokens"`
	Chunks      []ChunkRef `json:"chunks"`
}

// ChatFrame is any outbound frame on a chat session: an assistant or
// system reply, a leveled log line, a coarse status notification, or a
// per-query error. Frames on one session are delivered in the order
// they were produced.
type ChatFrame struct {
	Type       FrameType   `json:"type"`
	Role       ChatRole    `json:"role,omitempty"`
	Content    string      `json:"content"`
	Level      LogLevel    `json:"level,omitempty"`
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`
	ChunksInfo *ChunksInfo `json:"chunks_info,omitempty"`
}

// AssistantFrame builds a chat frame carrying an assistant reply.
func AssistantFrame(content string, usage *TokenUsage, chunks *ChunksInfo) ChatFrame {
	return ChatFrame{
		Type:       FrameTypeChat,
		Role:       RoleAssistant,
		Content:    content,
		TokenUsage: usage,
		ChunksInfo: chunks,
	}
}

// LogFrame builds a leveled diagnostic frame.
func LogFrame(level LogLevel, content string) ChatFrame {
	return ChatFrame{Type: FrameTypeLog, Level: level, Content: content}
}

// StatusFrame builds a coarse lifecycle notification frame.
func StatusFrame(content string) ChatFrame {
	return ChatFrame{Type: FrameTypeStatus, Content: content}
}

// ErrorFrame builds a per-query error frame. Errors are per-query, not
// fatal to the session.
func ErrorFrame(content string) ChatFrame {
	return ChatFrame{Type: FrameTypeError, Content: content}
}
