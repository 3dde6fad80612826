package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irindex/irindex/config"
	"github.com/irindex/irindex/internal/indexer"
	"github.com/irindex/irindex/model"
)

func buildTestIndex(t *testing.T) string {
	t.Helper()
	collection := filepath.Join(t.TempDir(), "collection.jsonl")
	lines := []string{
		`{"pmid":"A","title":"the quick brown fox","abstract":"the fox jumps over the lazy dog"}`,
		`{"pmid":"B","title":"quick quick quick","abstract":"brown fox sightings are rare"}`,
		`{"pmid":"C","title":"lazy afternoons","abstract":"a dog sleeps in the sun all day"}`,
	}
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(collection, []byte(content), 0o600))

	idx, err := indexer.NewIndexer(config.DefaultIndexSettings())
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "idx")
	_, err = idx.Index(context.Background(), collection, outDir, nil)
	require.NoError(t, err)
	return outDir
}

func newTestRouter(t *testing.T) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server := NewServer(buildTestIndex(t))
	t.Cleanup(func() {
		server.Close()
		server.Jobs().Stop()
	})
	router := gin.New()
	SetupRoutes(router, server)
	return router, server
}

func TestHealthHandler(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsHandler(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 3, body["num_docs"])
}

func TestSearchHandler(t *testing.T) {
	router, _ := newTestRouter(t)
	reqBody, err := json.Marshal(searchRequest{QueryText: "quick fox", Mode: config.RankingBM25, TopK: 5})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var run model.RunEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.NotEmpty(t, run.DocumentsPMID)
	assert.Equal(t, "B", run.DocumentsPMID[0])
	assert.Len(t, run.Scores, len(run.DocumentsPMID))
}

func TestSearchHandler_RejectsUnknownMode(t *testing.T) {
	router, _ := newTestRouter(t)
	reqBody, err := json.Marshal(searchRequest{QueryText: "quick fox", Mode: config.RankingMode("ranking.bogus")})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobMetricsHandler(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/jobs/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "jobs_created")
	assert.Contains(t, body, "current_workload")
}

func TestGetJobHandler_UnknownIDReturns404(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
