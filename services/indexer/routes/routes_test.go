// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codescope/services/indexer"
)

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func TestSetupRoutes_RegistersAllRoutes(t *testing.T) {
	t.Setenv("LLM_BACKEND_TYPE", "stub")
	t.Setenv("EMBEDDING_BACKEND", "static")
	svc, err := indexer.New()
	if err != nil {
		t.Skipf("service unavailable: %v", err)
	}
	defer svc.Shutdown()

	router := gin.New()
	SetupRoutes(router, svc)

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/api/indices"},
		{"POST", "/api/indices/create"},
		{"GET", "/api/code-structure/:indexId"},
		{"GET", "/ws/progress"},
		{"GET", "/ws/chat/:indexId"},
	}

	registered := map[string]bool{}
	for _, route := range router.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range expected {
		assert.True(t, registered[want.method+" "+want.path],
			"missing route %s %s", want.method, want.path)
	}
}

func TestSetupRoutes_HealthResponds(t *testing.T) {
	t.Setenv("LLM_BACKEND_TYPE", "stub")
	t.Setenv("EMBEDDING_BACKEND", "static")
	svc, err := indexer.New()
	if err != nil {
		t.Skipf("service unavailable: %v", err)
	}
	defer svc.Shutdown()

	router := gin.New()
	SetupRoutes(router, svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
