// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry provides the durable mapping from index identifier
// to index metadata and enforces the job lifecycle state machine.
//
// The registry is in-memory: persistence of indices across restarts is
// explicitly out of scope for this service. Indices live until the
// process exits; active observers never cause deletion because nothing
// deletes them.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/codescope/services/indexer/datatypes"
)

var (
	// ErrNotFound is returned when no index has the given identifier.
	ErrNotFound = errors.New("index not found")

	// ErrInvalidPath is returned when the source path is empty,
	// unreachable, or not a directory. No job is started.
	ErrInvalidPath = errors.New("invalid repository path")

	// ErrAlreadyInProgress is returned when a job for an equivalent
	// path is currently running.
	ErrAlreadyInProgress = errors.New("indexing already in progress for this path")

	// ErrInvalidTransition is returned for a state change the
	// lifecycle state machine does not permit.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// validTransitions encodes the job lifecycle:
// idle -> starting -> processing -> {complete, error}.
// starting -> complete covers repositories that enumerate zero files.
var validTransitions = map[datatypes.IndexState][]datatypes.IndexState{
	datatypes.StateIdle:       {datatypes.StateStarting},
	datatypes.StateStarting:   {datatypes.StateProcessing, datatypes.StateComplete, datatypes.StateError},
	datatypes.StateProcessing: {datatypes.StateProcessing, datatypes.StateComplete, datatypes.StateError},
}

// Registry is the shared index store. It is owned by the service
// object and passed explicitly to every connection handler; it is not
// a package-level singleton.
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Job runner transitions
//	and read access happen concurrently under a single RWMutex.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*datatypes.Index
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]*datatypes.Index)}
}

// Create validates sourcePath and allocates a fresh index for it.
//
// A fresh identifier is always allocated, even if an identical path was
// indexed before. Only a concurrently running job for the equivalent path
// is rejected with ErrAlreadyInProgress. An empty or unreachable path
// fails with ErrInvalidPath and no job is started.
func (r *Registry) Create(sourcePath string) (datatypes.Index, error) {
	if sourcePath == "" {
		return datatypes.Index{}, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return datatypes.Index{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return datatypes.Index{}, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return datatypes.Index{}, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, abs)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// An idle entry counts as in-progress too: its job was accepted
	// and just has not reached starting yet.
	for _, id := range r.order {
		idx := r.byID[id]
		if idx.SourcePath == abs && !idx.State.Terminal() {
			return datatypes.Index{}, fmt.Errorf("%w: %s", ErrAlreadyInProgress, abs)
		}
	}

	idx := &datatypes.Index{
		ID:            uuid.New().String(),
		Name:          filepath.Base(abs),
		SourcePath:    abs,
		State:         datatypes.StateIdle,
		CreatedAtMill: time.Now().UnixMilli(),
	}
	r.byID[idx.ID] = idx
	r.order = append(r.order, idx.ID)
	return *idx, nil
}

// Get returns a copy of the index with the given identifier.
func (r *Registry) Get(id string) (datatypes.Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return datatypes.Index{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *idx, nil
}

// List returns copies of all indices in insertion order.
func (r *Registry) List() []datatypes.Index {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]datatypes.Index, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Transition moves the index to newState, enforcing the state machine.
// Terminal states admit no further transitions.
func (r *Registry) Transition(id string, newState datatypes.IndexState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, allowed := range validTransitions[idx.State] {
		if allowed == newState {
			idx.State = newState
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, idx.State, newState)
}

// SetError moves the index to the terminal error state and records
// the human-readable cause. The cause also travels on the terminal
// progress event; this copy serves late REST readers. An index that
// already reached a terminal state keeps it.
func (r *Registry) SetError(id string, cause string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !idx.State.Terminal() {
		idx.State = datatypes.StateError
	}
	idx.Error = cause
	return nil
}
