// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package job drives a single indexing run from starting to a
// terminal state, reporting registry transitions and broadcast events
// along the way.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/indexer/hub"
	"github.com/AleutianAI/codescope/services/indexer/observability"
	"github.com/AleutianAI/codescope/services/indexer/registry"
	"github.com/AleutianAI/codescope/services/ingest"
)

// Ingestor consumes one repository file during an indexing run.
type Ingestor interface {
	ProcessFile(ctx context.Context, relPath string) error
}

// Runner executes indexing jobs against the shared registry and
// broadcast hub. One Runner serves the whole process; each Run call
// is an independent job.
type Runner struct {
	registry *registry.Registry
	hub      *hub.Hub
	scanCfg  ingest.ScanConfig
}

// NewRunner builds a runner over the given registry and hub.
func NewRunner(reg *registry.Registry, h *hub.Hub) *Runner {
	return &Runner{
		registry: reg,
		hub:      h,
		scanCfg:  ingest.DefaultScanConfig(),
	}
}

// Run
//
// # Description
//
//	Executes one indexing job to completion. The index must be in the
//	idle state. Run walks the repository, feeds every matching file to
//	the ingestor, and publishes one progress event per file so that
//	observers can render a live progress bar. Exactly one terminal
//	event (complete or error) is published, and the registry always
//	reaches a terminal state even when the job panics partway.
//
//	Run blocks until the job finishes; callers start it on its own
//	goroutine. Publishing never blocks on slow observers.
//
// # Inputs
//
//   - ctx: cancels the job between files. A canceled job terminates
//     with an error state.
//   - idx: the registry entry to index. Only ID and SourcePath are
//     read.
//   - ing: receives each scanned file in walk order.
//
// # Outputs
//
//   - error: the cause recorded on the index, nil on success.
func (r *Runner) Run(ctx context.Context, idx datatypes.Index, ing Ingestor) (err error) {
	start := time.Now()
	log := slog.With("index_id", idx.ID, "path", idx.SourcePath)

	// Tracked for the terminal error event, so a failure never rolls
	// an observer's processed_files count backwards.
	processed, total := 0, 0

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("indexing panic: %v", rec)
			log.Error("indexing job panicked", "panic", rec)
		}
		outcome := "complete"
		if err != nil {
			outcome = "error"
			r.fail(idx.ID, err, processed, total)
		}
		if m := observability.DefaultMetrics; m != nil {
			m.JobsTotal.WithLabelValues(outcome).Inc()
		}
		log.Info("indexing job finished",
			"outcome", outcome, "duration", time.Since(start))
	}()

	if err := r.registry.Transition(idx.ID, datatypes.StateStarting); err != nil {
		return err
	}
	r.hub.Publish(datatypes.NewProgressEvent(idx.ID, datatypes.StateStarting, "", 0, 0))

	files, err := ingest.Scan(idx.SourcePath, r.scanCfg)
	if err != nil {
		return fmt.Errorf("scan repository: %w", err)
	}

	// Empty repositories complete straight from starting.
	if len(files) == 0 {
		if err := r.registry.Transition(idx.ID, datatypes.StateComplete); err != nil {
			return err
		}
		r.hub.Publish(datatypes.NewProgressEvent(idx.ID, datatypes.StateComplete, "", 0, 0))
		return nil
	}

	if err := r.registry.Transition(idx.ID, datatypes.StateProcessing); err != nil {
		return err
	}

	total = len(files)
	for _, relPath := range files {
		if ctx.Err() != nil {
			return errors.New("indexing canceled")
		}
		if err := ing.ProcessFile(ctx, relPath); err != nil {
			// A single unreadable file does not abort the run.
			log.Warn("skipping file", "file", relPath, "error", err)
		}
		processed++
		r.hub.Publish(datatypes.NewProgressEvent(
			idx.ID, datatypes.StateProcessing, relPath, processed, total))
	}

	if err := r.registry.Transition(idx.ID, datatypes.StateComplete); err != nil {
		return err
	}
	ev := datatypes.NewProgressEvent(idx.ID, datatypes.StateComplete, "", total, total)
	r.hub.Publish(ev)
	return nil
}

// fail records the terminal error on the registry and broadcasts it.
// The last-known counts ride along so the error event never reports
// less progress than an observer already saw.
func (r *Runner) fail(indexID string, cause error, processed, total int) {
	if err := r.registry.SetError(indexID, cause.Error()); err != nil {
		slog.Error("failed to record index error",
			"index_id", indexID, "error", err)
	}
	ev := datatypes.NewProgressEvent(indexID, datatypes.StateError, "", processed, total)
	ev.Error = cause.Error()
	r.hub.Publish(ev)
}
