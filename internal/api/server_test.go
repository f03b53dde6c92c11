package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pageweight/internal/analyzer"
	"github.com/fluxbase-eu/pageweight/internal/config"
	"github.com/fluxbase-eu/pageweight/internal/observability"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Address: ":0", BodyLimit: 8 << 20},
		CORS: config.CORSConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,PUT,DELETE,OPTIONS",
			AllowedHeaders: "Origin,Content-Type,Accept",
		},
		Fetch:    config.FetchConfig{RequestsPerSecond: 10},
		Analyzer: config.AnalyzerConfig{PageConcurrency: 2, TraversalBatchSize: 10, TraversalConcurrency: 2, MaxTraversalDepth: 100},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	return NewServer(testConfig(), WithMetrics(metrics))
}

// snapshotJSON is a minimal two-page project: an oversized PNG hero on the
// home page and a text node carrying one font family.
const snapshotJSON = `{
	"pages": [
		{"id": "page-home", "name": "Home", "slug": "/"},
		{"id": "page-about", "name": "About", "slug": "/about"}
	],
	"nodes": [
		{"id": "page-home", "name": "Home", "kind": "page", "visible": true,
		 "children": ["hero", "headline"]},
		{"id": "page-about", "name": "About", "kind": "page", "visible": true},
		{"id": "hero", "name": "Hero", "kind": "image", "visible": true,
		 "width": 2400, "height": 1200, "image_url": "https://cdn.example.com/hero.png"},
		{"id": "headline", "name": "Headline", "kind": "text", "visible": true,
		 "font_families": ["Inter"]}
	]
}`

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	rec.Code = resp.StatusCode
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	rec.Body = bytes.NewBuffer(data)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestAnalyzeEndpoint(t *testing.T) {
	t.Run("analyzes a snapshot", func(t *testing.T) {
		s := newTestServer(t)
		rec := postJSON(t, s, "/api/v1/analyze", map[string]any{
			"snapshot": json.RawMessage(snapshotJSON),
		})
		require.Equal(t, 200, rec.Code, rec.Body.String())

		var report analyzer.ProjectReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.NotEmpty(t, report.RunID)
		assert.Len(t, report.PerClass, 3)
		assert.Len(t, report.PerPage, 2)
		assert.NotEmpty(t, report.Recommendations)
	})

	t.Run("missing snapshot is a 400", func(t *testing.T) {
		s := newTestServer(t)
		rec := postJSON(t, s, "/api/v1/analyze", map[string]any{
			"options": map[string]any{"monthly_visits": 100},
		})
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("empty project is a 404", func(t *testing.T) {
		s := newTestServer(t)
		rec := postJSON(t, s, "/api/v1/analyze", map[string]any{
			"snapshot": json.RawMessage(`{"pages": [], "nodes": []}`),
		})
		assert.Equal(t, 404, rec.Code)
	})
}

func TestManualEstimateEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/api/v1/manual-estimates/", map[string]any{
		"collection_name": "Portfolio",
		"image_count":     10,
		"avg_width":       1600,
		"avg_height":      900,
	})
	require.Equal(t, 201, rec.Code, rec.Body.String())

	var added struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.NotEmpty(t, added.ID)

	t.Run("invalid estimate is a 400", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/manual-estimates/", map[string]any{
			"collection_name": "Broken",
			"image_count":     0,
		})
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("list returns stored estimates", func(t *testing.T) {
		resp, err := s.App().Test(httptest.NewRequest("GET", "/api/v1/manual-estimates/", nil))
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Portfolio")
	})

	t.Run("stored estimates feed analysis", func(t *testing.T) {
		rec := postJSON(t, s, "/api/v1/analyze", map[string]any{
			"snapshot": json.RawMessage(snapshotJSON),
		})
		require.Equal(t, 200, rec.Code)
		var report analyzer.ProjectReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.True(t, report.HasManualEstimates)
	})

	t.Run("update unknown id is a 404", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/api/v1/manual-estimates/missing",
			bytes.NewReader([]byte(`{"collection_name": "X", "image_count": 1, "avg_width": 10, "avg_height": 10}`)))
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.App().Test(req)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest("DELETE", "/api/v1/manual-estimates/"+added.ID, nil)
			resp, err := s.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, 204, resp.StatusCode)
		}
	})
}
