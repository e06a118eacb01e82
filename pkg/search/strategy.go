package search

import (
	"context"

	"github.com/soundprediction/mangagraph/pkg/types"
)

// Defaults for the fulltext and ranked strategies.
const (
	DefaultFulltextIndex  = "work_titles_fulltext"
	DefaultCandidateLimit = 200
	DefaultRankThreshold  = 0.45
	DefaultLimit          = 50
)

// Config configures the search strategies.
type Config struct {
	FulltextIndex  string  `json:"fulltext_index" mapstructure:"fulltext_index"`
	CandidateLimit int     `json:"candidate_limit" mapstructure:"candidate_limit"`
	RankThreshold  float64 `json:"rank_threshold" mapstructure:"rank_threshold"`
	// DefaultLimit applies when a request does not set one.
	DefaultLimit int `json:"default_limit" mapstructure:"default_limit"`
	// Languages overrides the language order derived from the query.
	Languages []string `json:"languages" mapstructure:"languages"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		FulltextIndex:  DefaultFulltextIndex,
		CandidateLimit: DefaultCandidateLimit,
		RankThreshold:  DefaultRankThreshold,
		DefaultLimit:   DefaultLimit,
	}
}

// Store is the part of the graph store the strategies query.
type Store interface {
	Search(ctx context.Context, req types.SearchRequest) (*types.RawResultSet, error)
}

// Query is one strategy attempt.
type Query struct {
	Text         string
	Language     types.Language
	Limit        int
	IncludeAdult bool
}

// Strategy is one step of the cascade.
type Strategy interface {
	Mode() types.SearchMode
	TrySearch(ctx context.Context, q Query) (*types.RawResultSet, error)
}

// RankedStrategy matches fuzzily against the fulltext index and reranks the
// candidates by edit-distance similarity between title and query.
type RankedStrategy struct {
	store  Store
	config Config
}

// NewRankedStrategy creates a RankedStrategy.
func NewRankedStrategy(store Store, config Config) *RankedStrategy {
	return &RankedStrategy{store: store, config: config}
}

func (s *RankedStrategy) Mode() types.SearchMode { return types.SearchModeRanked }

func (s *RankedStrategy) TrySearch(ctx context.Context, q Query) (*types.RawResultSet, error) {
	req := baseRequest(types.SearchModeRanked, q)
	req.IndexName = s.config.FulltextIndex
	req.CandidateLimit = max(s.config.CandidateLimit, q.Limit)
	req.RankThreshold = s.config.RankThreshold
	return s.store.Search(ctx, req)
}

// FulltextStrategy matches fuzzily against the fulltext index.
type FulltextStrategy struct {
	store  Store
	config Config
}

// NewFulltextStrategy creates a FulltextStrategy.
func NewFulltextStrategy(store Store, config Config) *FulltextStrategy {
	return &FulltextStrategy{store: store, config: config}
}

func (s *FulltextStrategy) Mode() types.SearchMode { return types.SearchModeFulltext }

func (s *FulltextStrategy) TrySearch(ctx context.Context, q Query) (*types.RawResultSet, error) {
	req := baseRequest(types.SearchModeFulltext, q)
	req.IndexName = s.config.FulltextIndex
	return s.store.Search(ctx, req)
}

// SimpleStrategy matches a case-insensitive substring on title fields,
// most popular first.
type SimpleStrategy struct {
	store Store
}

// NewSimpleStrategy creates a SimpleStrategy.
func NewSimpleStrategy(store Store) *SimpleStrategy {
	return &SimpleStrategy{store: store}
}

func (s *SimpleStrategy) Mode() types.SearchMode { return types.SearchModeSimple }

func (s *SimpleStrategy) TrySearch(ctx context.Context, q Query) (*types.RawResultSet, error) {
	return s.store.Search(ctx, baseRequest(types.SearchModeSimple, q))
}

// DefaultStrategies returns the ranked, fulltext and simple strategies in
// cascade order.
func DefaultStrategies(store Store, config Config) []Strategy {
	return []Strategy{
		NewRankedStrategy(store, config),
		NewFulltextStrategy(store, config),
		NewSimpleStrategy(store),
	}
}

func baseRequest(mode types.SearchMode, q Query) types.SearchRequest {
	return types.SearchRequest{
		Mode:         mode,
		Text:         q.Text,
		Language:     q.Language,
		Limit:        q.Limit,
		IncludeAdult: q.IncludeAdult,
	}
}
