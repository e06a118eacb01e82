package dto

import (
	"github.com/soundprediction/mangagraph"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// GraphQuery is the query string or JSON body of a graph search.
type GraphQuery struct {
	Query            string   `json:"q" form:"q" binding:"required,max=512"`
	Limit            int      `json:"limit" form:"limit" binding:"gte=0,lte=500"`
	IncludeRelated   bool     `json:"include_related" form:"include_related"`
	IncludeHentai    bool     `json:"include_hentai" form:"include_hentai"`
	SortTotalVolumes string   `json:"sort_total_volumes" form:"sort_total_volumes" binding:"omitempty,oneof=asc desc ASC DESC"`
	MinTotalVolumes  int      `json:"min_total_volumes" form:"min_total_volumes" binding:"gte=0"`
	Languages        []string `json:"languages" form:"languages"`
	RelatedLimit     int      `json:"related_limit" form:"related_limit" binding:"gte=0,lte=500"`
}

// ToRequest converts the query to a client request.
func (q GraphQuery) ToRequest() mangagraph.GraphRequest {
	return mangagraph.GraphRequest{
		Query:            q.Query,
		Limit:            q.Limit,
		IncludeRelated:   q.IncludeRelated,
		IncludeHentai:    q.IncludeHentai,
		SortTotalVolumes: q.SortTotalVolumes,
		MinTotalVolumes:  q.MinTotalVolumes,
		Languages:        q.Languages,
		RelatedLimit:     q.RelatedLimit,
	}
}

// SimilarQuery is the JSON body of a similarity search. Either Text or
// Vector is required; the client reports which is missing.
type SimilarQuery struct {
	Text          string    `json:"text" binding:"max=512"`
	Vector        []float32 `json:"vector" binding:"max=4096"`
	Property      string    `json:"property"`
	Limit         int       `json:"limit" binding:"gte=0,lte=500"`
	Threshold     *float64  `json:"threshold"`
	IncludeHentai bool      `json:"include_hentai"`
}

// ToRequest converts the query to a client request.
func (q SimilarQuery) ToRequest() mangagraph.SimilarRequest {
	return mangagraph.SimilarRequest{
		Text:          q.Text,
		Vector:        q.Vector,
		Property:      q.Property,
		Limit:         q.Limit,
		Threshold:     q.Threshold,
		IncludeHentai: q.IncludeHentai,
	}
}

// GraphResponse wraps a result graph with its counts.
type GraphResponse struct {
	Nodes     []types.GraphNode `json:"nodes"`
	Edges     []types.GraphEdge `json:"edges"`
	NodeCount int               `json:"node_count"`
	EdgeCount int               `json:"edge_count"`
	RequestID string            `json:"request_id,omitempty"`
}

// NewGraphResponse builds a GraphResponse. Nil slices become empty so the
// JSON always carries arrays.
func NewGraphResponse(g *types.Graph, requestID string) GraphResponse {
	resp := GraphResponse{
		Nodes:     []types.GraphNode{},
		Edges:     []types.GraphEdge{},
		RequestID: requestID,
	}
	if g != nil {
		if g.Nodes != nil {
			resp.Nodes = g.Nodes
		}
		if g.Edges != nil {
			resp.Edges = g.Edges
		}
	}
	resp.NodeCount = len(resp.Nodes)
	resp.EdgeCount = len(resp.Edges)
	return resp
}

// StatsResponse holds catalog counts.
type StatsResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      int    `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
