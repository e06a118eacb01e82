package embedder

import (
	"context"
	"fmt"
	"sort"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultModel     = "text-embedding-3-small"
	defaultBatchSize = 100
)

var nativeDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// OpenAIEmbedder implements Client against an OpenAI-compatible embeddings
// endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

var _ Client = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAIEmbedder. An empty model defaults to
// text-embedding-3-small.
func NewOpenAIEmbedder(apiKey string, config Config) *OpenAIEmbedder {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaultBatchSize
	}
	if config.Dimensions <= 0 {
		config.Dimensions = nativeDimensions[config.Model]
		if config.Dimensions == 0 {
			config.Dimensions = nativeDimensions[defaultModel]
		}
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(clientConfig), config: config}
}

// Embed embeds texts in batches. Returned vectors are in input order and
// Dimensions long.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		req := openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.config.Model),
		}
		if _, native := nativeDimensions[e.config.Model]; native && e.config.Dimensions < nativeDimensions[e.config.Model] {
			req.Dimensions = e.config.Dimensions
		}
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Data))
		}
		data := resp.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })
		for _, d := range data {
			vec := d.Embedding
			if len(vec) > e.config.Dimensions {
				if vec, err = Truncate(vec, e.config.Dimensions); err != nil {
					return nil, err
				}
			}
			out = append(out, vec)
		}
	}
	return out, nil
}

// EmbedSingle embeds one text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return single(e.Embed(ctx, []string{text}))
}

// Dimensions returns the length of returned vectors.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}
