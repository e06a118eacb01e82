package mangagraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soundprediction/mangagraph/pkg/assembler"
	"github.com/soundprediction/mangagraph/pkg/catalog"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// ErrNoEmbedder is returned by FindSimilarWorks for a text query when the
// client has no embedder.
var ErrNoEmbedder = errors.New("no embedder configured")

// SimilarRequest is a vector similarity search. Either Text, which is
// embedded, or Vector must be set.
type SimilarRequest struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector,omitempty"`
	// Property is the vector property searched. Empty uses the client's
	// default property.
	Property string `json:"property"`
	Limit    int    `json:"limit"`
	// Threshold is the minimum similarity in [0, 1]. Nil uses the client's
	// default.
	Threshold     *float64 `json:"threshold,omitempty"`
	IncludeHentai bool     `json:"include_hentai"`
}

// FindSimilarWorks returns the works whose Property vector is most similar
// to the request's vector, assembled into a graph. The property is checked
// before any embedding or store call.
func (c *Client) FindSimilarWorks(ctx context.Context, req SimilarRequest) (*types.Graph, error) {
	if req.Property == "" {
		req.Property = c.config.VectorProperty
	}
	if err := types.ValidateVectorProperty(req.Property); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = DefaultSimilarLimit
	}
	threshold := c.config.VectorThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v is outside [0, 1]", types.ErrMalformedInput, threshold)
	}

	vector := req.Vector
	if len(vector) == 0 {
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: text or vector is required", types.ErrMalformedInput)
		}
		if c.embedder == nil {
			return nil, ErrNoEmbedder
		}
		var err error
		if vector, err = c.embedder.EmbedSingle(ctx, text); err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
	}

	rs, err := c.store.SimilarWorks(ctx, types.VectorRequest{
		Vector:       vector,
		Property:     req.Property,
		Limit:        req.Limit,
		Threshold:    threshold,
		IncludeAdult: req.IncludeHentai,
	})
	if err != nil {
		return nil, err
	}
	res := catalog.FromResultSet(rs)
	works := filterWorks(res.Works, c.adultFilter(req.IncludeHentai))
	enrichment := types.MagazinePublishers{}
	enrichment.Merge(res.Enrichment)
	if _, err := c.enrich(ctx, works, enrichment); err != nil {
		return nil, err
	}
	c.logger.Debug("Similar works found", "property", req.Property, "works", len(works))
	return c.assembler.Assemble(works, nil, enrichment, assembler.Options{Limit: req.Limit}), nil
}
