// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers holds the gin handlers for the REST and websocket
// surfaces of the indexing service.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codescope/services/indexer"
	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/indexer/registry"
)

// ListIndices returns every known index as {id, name} pairs.
func ListIndices(svc *indexer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		indices := svc.Registry.List()
		summaries := make([]datatypes.IndexSummary, 0, len(indices))
		for _, idx := range indices {
			summaries = append(summaries, datatypes.IndexSummary{
				ID:   idx.ID,
				Name: idx.Name,
			})
		}
		c.JSON(http.StatusOK, summaries)
	}
}

// CreateIndex registers a repository and kicks off its indexing job.
// The response returns as soon as the job is accepted; progress is
// observed over the websocket.
func CreateIndex(svc *indexer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateIndexRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.CreateIndexResponse{
				Success: false, Error: "invalid request body",
			})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.CreateIndexResponse{
				Success: false, Error: "repo_path is required",
			})
			return
		}

		idx, err := svc.Create(req.RepoPath)
		switch {
		case errors.Is(err, registry.ErrInvalidPath):
			c.JSON(http.StatusBadRequest, datatypes.CreateIndexResponse{
				Success: false, Error: err.Error(),
			})
			return
		case errors.Is(err, registry.ErrAlreadyInProgress):
			c.JSON(http.StatusConflict, datatypes.CreateIndexResponse{
				Success: false, Error: err.Error(),
			})
			return
		case err != nil:
			slog.Error("failed to create index", "path", req.RepoPath, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.CreateIndexResponse{
				Success: false, Error: "failed to create index",
			})
			return
		}

		slog.Info("index created", "index_id", idx.ID, "path", idx.SourcePath)
		c.JSON(http.StatusOK, datatypes.CreateIndexResponse{Success: true, ID: idx.ID})
	}
}

// GetCodeStructure returns the symbol graph for one index.
func GetCodeStructure(svc *indexer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		indexID := c.Param("indexId")
		graph, err := svc.Structure(indexID)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "index not found"})
				return
			}
			slog.Error("failed to build structure graph", "index_id", indexID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build structure graph"})
			return
		}
		c.JSON(http.StatusOK, graph)
	}
}
