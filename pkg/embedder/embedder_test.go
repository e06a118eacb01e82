package embedder_test

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mangagraph/pkg/embedder"
)

// fakeEmbeddings serves the embeddings endpoint. Each text gets the vector
// [len(text), 1, 0, 0].
func fakeEmbeddings(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(text)), 1, 0, 0},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedderConfig(t *testing.T) {
	tests := []struct {
		name         string
		config       embedder.Config
		expectedDims int
	}{
		{name: "ada", config: embedder.Config{Model: "text-embedding-ada-002"}, expectedDims: 1536},
		{name: "empty model uses default", config: embedder.Config{}, expectedDims: 1536},
		{name: "large model", config: embedder.Config{Model: "text-embedding-3-large"}, expectedDims: 3072},
		{name: "custom dimensions", config: embedder.Config{Model: "custom-model", Dimensions: 512}, expectedDims: 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := embedder.NewOpenAIEmbedder("test-key", tt.config)
			require.NotNil(t, client)
			assert.Equal(t, tt.expectedDims, client.Dimensions())
		})
	}
}

func TestOpenAIEmbedderBatches(t *testing.T) {
	var requests atomic.Int32
	srv := fakeEmbeddings(t, &requests)
	client := embedder.NewOpenAIEmbedder("test-key", embedder.Config{
		Model:      "local-model",
		BaseURL:    srv.URL + "/v1",
		BatchSize:  2,
		Dimensions: 4,
	})

	vecs, err := client.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, []float32{3, 1, 0, 0}, vecs[2])
}

func TestOpenAIEmbedderTruncates(t *testing.T) {
	var requests atomic.Int32
	srv := fakeEmbeddings(t, &requests)
	client := embedder.NewOpenAIEmbedder("test-key", embedder.Config{
		Model:      "local-model",
		BaseURL:    srv.URL + "/v1",
		Dimensions: 2,
	})

	vec, err := client.EmbedSingle(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 3/math.Sqrt(10), vec[0], 1e-6)
	assert.InDelta(t, 1/math.Sqrt(10), vec[1], 1e-6)
}

func TestOpenAIEmbedderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := embedder.NewOpenAIEmbedder("invalid-key", embedder.Config{BaseURL: srv.URL + "/v1"})
	vec, err := client.EmbedSingle(context.Background(), "hello")
	assert.Error(t, err)
	assert.Nil(t, vec)
}

func TestTruncate(t *testing.T) {
	vec, err := embedder.Truncate([]float32{3, 4, 12}, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, vec, 1e-6)

	zero, err := embedder.Truncate([]float32{0, 0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, zero)

	_, err = embedder.Truncate([]float32{1}, 0)
	assert.EqualError(t, err, "dims must be positive")

	_, err = embedder.Truncate([]float32{1}, 2)
	assert.ErrorContains(t, err, "dims exceeds vector length")
}

func TestCachedClient(t *testing.T) {
	var requests atomic.Int32
	srv := fakeEmbeddings(t, &requests)
	inner := embedder.NewOpenAIEmbedder("test-key", embedder.Config{Model: "local-model", BaseURL: srv.URL + "/v1", Dimensions: 4})
	cached, err := embedder.NewCachedClient(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := cached.EmbedSingle(ctx, "naruto")
	require.NoError(t, err)
	again, err := cached.EmbedSingle(ctx, "naruto")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int32(1), requests.Load())

	vecs, err := cached.Embed(ctx, []string{"naruto", "one piece"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, int32(2), requests.Load())
	assert.Equal(t, 2, cached.Len())
	assert.Equal(t, 4, cached.Dimensions())

	_, err = embedder.NewCachedClient(inner, 0)
	assert.Error(t, err)
}
