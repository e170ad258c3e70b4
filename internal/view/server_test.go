package view

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestReturnsMostRecentWindow(t *testing.T) {
	snap := NewSnapshot()
	srv := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, snap)

	snap.SetLatestWindow(busmsg.LatencyWindow{Endpoint: "http://lb/", P95MS: 42, Requests: 10, Replicas: 2})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/latest", nil)
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got busmsg.LatencyWindow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 42.0, got.P95MS)
}

func TestResultsReturnsBoundedHistory(t *testing.T) {
	snap := NewSnapshot()
	srv := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, snap)

	for i := 0; i < 150; i++ {
		snap.AppendResult(busmsg.NewActionResult(busmsg.ActionNoop, "web", "heuristic", busmsg.Result{Status: busmsg.StatusOK}))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []busmsg.ActionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 100)
}

func TestHealthOK(t *testing.T) {
	snap := NewSnapshot()
	srv := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, snap)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotFoundRoute(t *testing.T) {
	snap := NewSnapshot()
	srv := NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, snap)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
