package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mangagraph"
	"github.com/soundprediction/mangagraph/pkg/server/dto"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// stubClient records the last request and answers with fixed values.
type stubClient struct {
	graph   *types.Graph
	stats   map[string]int64
	err     error
	connErr error

	graphReq   mangagraph.GraphRequest
	similarReq mangagraph.SimilarRequest
	workID     string
}

func (s *stubClient) FindRelatedGraph(ctx context.Context, query string, limit int, includeRelated, includeHentai bool) (*types.Graph, error) {
	return s.FindRelatedGraphWithOptions(ctx, mangagraph.GraphRequest{Query: query, Limit: limit, IncludeRelated: includeRelated, IncludeHentai: includeHentai})
}

func (s *stubClient) FindRelatedGraphWithOptions(_ context.Context, req mangagraph.GraphRequest) (*types.Graph, error) {
	s.graphReq = req
	return s.graph, s.err
}

func (s *stubClient) FindSimilarWorks(_ context.Context, req mangagraph.SimilarRequest) (*types.Graph, error) {
	s.similarReq = req
	return s.graph, s.err
}

func (s *stubClient) GetWorkGraph(_ context.Context, workID string) (*types.Graph, error) {
	s.workID = workID
	return s.graph, s.err
}

func (s *stubClient) Stats(context.Context) (map[string]int64, error) {
	return s.stats, s.err
}

func (s *stubClient) VerifyConnectivity(context.Context) error {
	return s.connErr
}

func (s *stubClient) Close(context.Context) error { return nil }

func init() {
	gin.SetMode(gin.TestMode)
}

func newGraphRouter(client mangagraph.Mangagraph) *gin.Engine {
	h := NewGraphHandler(client, nil)
	r := gin.New()
	r.GET("/api/v1/graph", h.SearchGraph)
	r.POST("/api/v1/graph", h.SearchGraphJSON)
	r.POST("/api/v1/similar", h.SimilarWorks)
	r.GET("/api/v1/works/:id/graph", h.WorkGraph)
	r.GET("/api/v1/stats", h.Stats)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleGraph() *types.Graph {
	score := 2001.0
	return &types.Graph{
		Nodes: []types.GraphNode{
			{ID: "w1", Label: "Alpha Quest", Type: types.NodeTypeWork, Properties: map[string]any{"title": "Alpha Quest"}, RelevanceScore: &score},
			{ID: "author:x", Label: "Author X", Type: types.NodeTypeAuthor, Properties: map[string]any{"name": "Author X"}},
		},
		Edges: []types.GraphEdge{
			{ID: "e1", Source: "author:x", Target: "w1", Type: types.EdgeTypeCreated, Properties: map[string]any{}},
		},
	}
}

func TestSearchGraph(t *testing.T) {
	client := &stubClient{graph: sampleGraph()}
	r := newGraphRouter(client)

	w := serve(r, http.MethodGet, "/api/v1/graph?q=Alpha+Quest&limit=5&include_related=true&sort_total_volumes=desc&min_total_volumes=3&languages=english", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.GraphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.NodeCount)
	assert.Equal(t, 1, resp.EdgeCount)
	assert.Equal(t, "Alpha Quest", resp.Nodes[0].Label)

	assert.Equal(t, mangagraph.GraphRequest{
		Query:            "Alpha Quest",
		Limit:            5,
		IncludeRelated:   true,
		SortTotalVolumes: "desc",
		MinTotalVolumes:  3,
		Languages:        []string{"english"},
	}, client.graphReq)
}

func TestSearchGraphJSON(t *testing.T) {
	client := &stubClient{graph: &types.Graph{}}
	r := newGraphRouter(client)

	w := serve(r, http.MethodPost, "/api/v1/graph", `{"q":"ナルト","include_hentai":true,"related_limit":7}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"nodes":[],"edges":[],"node_count":0,"edge_count":0}`, w.Body.String())
	assert.Equal(t, "ナルト", client.graphReq.Query)
	assert.True(t, client.graphReq.IncludeHentai)
	assert.Equal(t, 7, client.graphReq.RelatedLimit)
}

func TestSearchGraphValidation(t *testing.T) {
	r := newGraphRouter(&stubClient{graph: &types.Graph{}})

	for name, target := range map[string]string{
		"missing query":  "/api/v1/graph",
		"negative limit": "/api/v1/graph?q=a&limit=-1",
		"huge limit":     "/api/v1/graph?q=a&limit=100000",
		"bad sort":       "/api/v1/graph?q=a&sort_total_volumes=up",
		"not a number":   "/api/v1/graph?q=a&min_total_volumes=many",
	} {
		t.Run(name, func(t *testing.T) {
			w := serve(r, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "invalid_request", resp.Error)
		})
	}

	w := serve(r, http.MethodPost, "/api/v1/graph", `{"q":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"store unavailable", types.NewStoreError("search", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "store_unavailable"},
		{"malformed", fmt.Errorf("%w: bad sort", types.ErrMalformedInput), http.StatusBadRequest, "invalid_request"},
		{"unsupported property", types.ValidateVectorProperty("embedding_cover"), http.StatusBadRequest, "invalid_request"},
		{"not found", fmt.Errorf("work x: %w", types.ErrNotFound), http.StatusNotFound, "not_found"},
		{"no embedder", mangagraph.ErrNoEmbedder, http.StatusNotImplemented, "not_configured"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newGraphRouter(&stubClient{err: tt.err})
			w := serve(r, http.MethodGet, "/api/v1/graph?q=a", "")
			assert.Equal(t, tt.status, w.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestCancelledRequest(t *testing.T) {
	r := newGraphRouter(&stubClient{err: context.Canceled})
	w := serve(r, http.MethodGet, "/api/v1/graph?q=a", "")
	assert.Equal(t, StatusClientClosedRequest, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSimilarWorks(t *testing.T) {
	client := &stubClient{graph: sampleGraph()}
	r := newGraphRouter(client)

	w := serve(r, http.MethodPost, "/api/v1/similar", `{"text":"space pirates","property":"embedding_description","threshold":0.7,"limit":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "space pirates", client.similarReq.Text)
	assert.Equal(t, "embedding_description", client.similarReq.Property)
	assert.Equal(t, 3, client.similarReq.Limit)
	require.NotNil(t, client.similarReq.Threshold)
	assert.InDelta(t, 0.7, *client.similarReq.Threshold, 1e-9)
}

func TestWorkGraph(t *testing.T) {
	client := &stubClient{graph: sampleGraph()}
	r := newGraphRouter(client)

	w := serve(r, http.MethodGet, "/api/v1/works/w1/graph", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "w1", client.workID)
}

func TestStats(t *testing.T) {
	r := newGraphRouter(&stubClient{stats: map[string]int64{"work_count": 6}})

	w := serve(r, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"counts":{"work_count":6}}`, w.Body.String())
}

func TestNilClient(t *testing.T) {
	r := newGraphRouter(nil)
	w := serve(r, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
