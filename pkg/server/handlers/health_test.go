package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHealthRouter(client HealthClient) *gin.Engine {
	h := NewHealthHandler(client)
	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
	r.GET("/health/detailed", h.DetailedHealthCheck)
	return r
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	w := serve(newHealthRouter(nil), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	resp := decode(t, w.Body.Bytes())
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "mangagraph", resp["service"])
	assert.Contains(t, resp, "timestamp")
	assert.Contains(t, resp, "version")
}

func TestLivenessCheck(t *testing.T) {
	w := serve(newHealthRouter(nil), http.MethodGet, "/live", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", decode(t, w.Body.Bytes())["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		w := serve(newHealthRouter(nil), http.MethodGet, "/ready", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_ready", decode(t, w.Body.Bytes())["status"])
	})

	t.Run("store reachable", func(t *testing.T) {
		w := serve(newHealthRouter(&stubClient{}), http.MethodGet, "/ready", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w.Body.Bytes())
		assert.Equal(t, "ready", resp["status"])
		checks := resp["checks"].(map[string]any)
		assert.Equal(t, "healthy", checks["graph_store"].(map[string]any)["status"])
	})

	t.Run("store unreachable", func(t *testing.T) {
		w := serve(newHealthRouter(&stubClient{connErr: errors.New("connection refused")}), http.MethodGet, "/ready", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		checks := decode(t, w.Body.Bytes())["checks"].(map[string]any)
		store := checks["graph_store"].(map[string]any)
		assert.Equal(t, "unhealthy", store["status"])
		assert.Equal(t, "connection refused", store["error"])
	})
}

func TestDetailedHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		client := &stubClient{stats: map[string]int64{"work_count": 3}}
		w := serve(newHealthRouter(client), http.MethodGet, "/health/detailed", "")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w.Body.Bytes())
		assert.Equal(t, "healthy", resp["status"])
		checks := resp["checks"].(map[string]any)
		catalog := checks["catalog"].(map[string]any)
		assert.Equal(t, map[string]any{"work_count": 3.0}, catalog["counts"])
		assert.Contains(t, checks, "system")
		assert.Contains(t, resp, "metrics")
	})

	t.Run("stats failing", func(t *testing.T) {
		client := &stubClient{err: errors.New("query failed")}
		w := serve(newHealthRouter(client), http.MethodGet, "/health/detailed", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", decode(t, w.Body.Bytes())["status"])
	})

	t.Run("nil client", func(t *testing.T) {
		w := serve(newHealthRouter(nil), http.MethodGet, "/health/detailed", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
