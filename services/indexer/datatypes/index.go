// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the indexer service.
//
// This file contains the index record and the REST request/response
// types for the index administration endpoints. For the event frame
// vocabulary shared by both websocket transports, see events.go.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// IndexState is the lifecycle state of an index.
//
// The state machine is:
//
//	idle -> starting -> processing -> {complete, error}
//
// complete and error are terminal. A new create call for the same
// source path starts an entirely new index; terminal indices are never
// resumed.
type IndexState string

const (
	// StateIdle means the index exists but its job has not begun.
	StateIdle IndexState = "idle"

	// StateStarting means the job was accepted and file enumeration
	// is in progress.
	StateStarting IndexState = "starting"

	// StateProcessing means files are being indexed. The total file
	// count is fixed once this state is entered.
	StateProcessing IndexState = "processing"

	// StateComplete means the job finished without error. Terminal.
	StateComplete IndexState = "complete"

	// StateError means the job failed. Terminal. Work completed
	// before the failure remains queryable.
	StateError IndexState = "error"
)

// Terminal reports whether the state admits no further transitions.
func (s IndexState) Terminal() bool {
	return s == StateComplete || s == StateError
}

// Index is one analyzed snapshot of a repository.
//
// Mutated only by the registry and the job runner; handlers receive
// copies. Timestamps are int64 UnixMilli per project conventions.
type Index struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	SourcePath    string     `json:"source_path"`
	State         IndexState `json:"state"`
	Error         string     `json:"error,omitempty"`
	CreatedAtMill int64      `json:"created_at"`
}

// indexValidate is the shared validator for index request types.
var indexValidate = validator.New()

// CreateIndexRequest is the body of POST /api/indices/create.
type CreateIndexRequest struct {
	RepoPath string `json:"repo_path" validate:"required"`
}

// Validate checks the request against its validation tags.
func (r *CreateIndexRequest) Validate() error {
	return indexValidate.Struct(r)
}

// CreateIndexResponse is the body returned by POST /api/indices/create.
type CreateIndexResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IndexSummary is one element of the GET /api/indices listing.
type IndexSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
