package driver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/soundprediction/mangagraph/pkg/related"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// Neo4jConfig holds the connection settings of a Neo4jStore.
type Neo4jConfig struct {
	URI                   string
	Username              string
	Password              string
	Database              string
	MaxConnectionPoolSize int
	ConnectionTimeout     time.Duration
	// QueryTimeout bounds each read transaction. Zero leaves the server
	// default.
	QueryTimeout time.Duration
}

// Neo4jStore implements GraphStore over a Neo4j database. All queries run
// in managed read transactions.
type Neo4jStore struct {
	client       neo4j.DriverWithContext
	database     string
	queryTimeout time.Duration
	logger       *slog.Logger
	closed       atomic.Bool
}

var _ GraphStore = (*Neo4jStore)(nil)

// NewNeo4jStore creates a Neo4jStore. It does not contact the server; call
// VerifyConnectivity for that.
func NewNeo4jStore(cfg Neo4jConfig, logger *slog.Logger) (*Neo4jStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""), func(c *neo4j.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.ConnectionTimeout > 0 {
			c.SocketConnectTimeout = cfg.ConnectionTimeout
			c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{
		client:       client,
		database:     database,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger.With("store", ProviderNeo4j),
	}, nil
}

// Provider returns ProviderNeo4j.
func (s *Neo4jStore) Provider() Provider {
	return ProviderNeo4j
}

// wrapError classifies a driver error: connectivity failures become
// StoreErrors, anything else is annotated with op.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return types.NewStoreError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// read runs cypher in a managed read transaction and collects its records.
func (s *Neo4jStore) read(ctx context.Context, op, cypher string, params map[string]any) ([]*db.Record, error) {
	if s.closed.Load() {
		return nil, types.NewStoreError(op, types.ErrStoreClosed)
	}
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	var configurers []func(*neo4j.TransactionConfig)
	if s.queryTimeout > 0 {
		configurers = append(configurers, neo4j.WithTxTimeout(s.queryTimeout))
	}

	start := time.Now()
	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	}, configurers...)
	if err != nil {
		return nil, wrapError(op, err)
	}
	records, ok := result.([]*db.Record)
	if !ok {
		return nil, NewTypeConversionError("[]*db.Record", result, op)
	}
	s.logger.Debug("Query completed", "op", op, "records", len(records), "duration", time.Since(start))
	return records, nil
}

// readResultSet runs a neighbourhood query, which returns exactly one row.
func (s *Neo4jStore) readResultSet(ctx context.Context, op, cypher string, params map[string]any) (*types.RawResultSet, error) {
	records, err := s.read(ctx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &types.RawResultSet{}, nil
	}
	rs, err := resultSetFromRecord(records[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rs, nil
}

func adultParams(params map[string]any, includeAdult bool) map[string]any {
	params["includeAdult"] = includeAdult
	params["adultTag"] = strings.ToLower(AdultTag)
	return params
}

// Search runs one primary search in req.Mode.
func (s *Neo4jStore) Search(ctx context.Context, req types.SearchRequest) (*types.RawResultSet, error) {
	limit := limitOr(req.Limit, DefaultSearchLimit)
	text := strings.TrimSpace(req.Text)
	op := "search_" + string(req.Mode)

	var (
		rs  *types.RawResultSet
		err error
	)
	switch req.Mode {
	case types.SearchModeSimple:
		var term any
		if text != "" {
			term = text
		}
		rs, err = s.readResultSet(ctx, op, SimpleSearchQuery(req.Language), adultParams(map[string]any{
			"searchTerm": term,
			"limitCount": limit,
		}, req.IncludeAdult))
	case types.SearchModeFulltext:
		rs, err = s.readResultSet(ctx, op, FulltextSearchQuery(), adultParams(map[string]any{
			"indexName":   req.IndexName,
			"luceneQuery": BuildLuceneQuery(text),
			"language":    string(req.Language),
			"limitCount":  limit,
		}, req.IncludeAdult))
	case types.SearchModeRanked:
		rs, err = s.rankedSearch(ctx, op, req, text, limit)
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", types.ErrMalformedInput, req.Mode)
	}
	if err != nil {
		return nil, err
	}
	rs.Mode = req.Mode
	rs.Language = req.Language
	rs.Source = SourceFor(ProviderNeo4j, ModeSource(req.Mode))
	return rs, nil
}

// rankedSearch fetches fulltext candidates, reranks them by title
// similarity and loads the neighbourhood of the survivors.
func (s *Neo4jStore) rankedSearch(ctx context.Context, op string, req types.SearchRequest, text string, limit int) (*types.RawResultSet, error) {
	records, err := s.read(ctx, op, FulltextCandidatesQuery(), adultParams(map[string]any{
		"indexName":      req.IndexName,
		"luceneQuery":    BuildLuceneQuery(text),
		"language":       string(req.Language),
		"candidateLimit": max(req.CandidateLimit, limit),
	}, req.IncludeAdult))
	if err != nil {
		return nil, err
	}
	candidates := make([]rankCandidate, 0, len(records))
	for _, r := range records {
		id, _ := r.Get("id")
		score, _ := r.Get("score")
		title, _ := r.Get("title")
		c := rankCandidate{ID: stringOf(id), Title: stringOf(title)}
		c.Score, _ = AsFloat64(score)
		candidates = append(candidates, c)
	}
	ranked := rerank(candidates, text, req.RankThreshold, limit)
	if len(ranked) == 0 {
		return &types.RawResultSet{}, nil
	}
	rows := make([]any, len(ranked))
	for i, c := range ranked {
		rows[i] = map[string]any{"id": c.ID, "score": c.Score}
	}
	return s.readResultSet(ctx, op, NeighbourhoodByIDsQuery(), map[string]any{"rows": rows})
}

func (s *Neo4jStore) related(ctx context.Context, op, cypher string, req types.RelatedRequest, extra map[string]any) ([]types.RelatedCandidate, error) {
	params := adultParams(map[string]any{
		"workId":     req.Anchor.ID,
		"creators":   nonNilStrings(req.Anchor.Creators),
		"magazines":  nonNilStrings(req.Anchor.Magazines),
		"publishers": nonNilStrings(req.Anchor.Publishers),
		"limit":      limitOr(req.Limit, related.DefaultCandidatePool),
	}, req.IncludeAdult)
	for k, v := range extra {
		params[k] = v
	}
	records, err := s.read(ctx, op, cypher, params)
	if err != nil {
		return nil, err
	}
	out := make([]types.RelatedCandidate, 0, len(records))
	for _, r := range records {
		c, err := candidateFromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		c.Work.Source = types.SourceGraphAssembler
		out = append(out, c)
	}
	return out, nil
}

// RelatedByAuthor returns works sharing a creator with the anchor.
func (s *Neo4jStore) RelatedByAuthor(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	return s.related(ctx, "related_by_author", RelatedByAuthorQuery(), req, nil)
}

// RelatedByMagazine returns works serialized in one of the anchor's
// magazines.
func (s *Neo4jStore) RelatedByMagazine(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	return s.related(ctx, "related_by_magazine", RelatedByMagazineQuery(), req, nil)
}

// RelatedByPublisher returns works of the anchor's publishers from other
// magazines, restricted to the anchor's years widened by req.YearWindow.
func (s *Neo4jStore) RelatedByPublisher(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	if len(req.Anchor.Publishers) == 0 {
		return nil, nil
	}
	var from, to any
	if r := related.ParseYearRange(req.Anchor.FirstPublished, req.Anchor.LastPublished, time.Now()); r.Valid {
		w := r.Expand(req.YearWindow)
		from, to = w.Start, w.End
	}
	return s.related(ctx, "related_by_publisher", RelatedByPublisherQuery(), req, map[string]any{
		"fromYear": from,
		"toYear":   to,
	})
}

// MagazinePublishers returns the publishers of the named magazines.
func (s *Neo4jStore) MagazinePublishers(ctx context.Context, magazines []string) (types.MagazinePublishers, error) {
	out := types.MagazinePublishers{}
	if len(magazines) == 0 {
		return out, nil
	}
	records, err := s.read(ctx, "magazine_publishers", MagazinePublishersQuery(), map[string]any{"magazines": magazines})
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		m, _ := r.Get("magazine")
		p, _ := r.Get("publishers")
		pubs, _ := AsStringSlice(p)
		for _, pub := range pubs {
			out.Add(stringOf(m), pub)
		}
	}
	return out, nil
}

// SimilarWorks ranks works by cosine similarity of req.Property to
// req.Vector.
func (s *Neo4jStore) SimilarWorks(ctx context.Context, req types.VectorRequest) (*types.RawResultSet, error) {
	if err := types.ValidateVectorProperty(req.Property); err != nil {
		return nil, err
	}
	vector := make([]any, len(req.Vector))
	for i, v := range req.Vector {
		vector[i] = float64(v)
	}
	rs, err := s.readResultSet(ctx, "similar_works", VectorSimilarityQuery(), adultParams(map[string]any{
		"property":   req.Property,
		"vector":     vector,
		"threshold":  req.Threshold,
		"limitCount": limitOr(req.Limit, DefaultSearchLimit),
	}, req.IncludeAdult))
	if err != nil {
		return nil, err
	}
	rs.Source = SourceFor(ProviderNeo4j, types.SourceVector)
	return rs, nil
}

// WorkSubgraph returns the work with id workID and its neighbours.
func (s *Neo4jStore) WorkSubgraph(ctx context.Context, workID string) (*types.RawResultSet, error) {
	rs, err := s.readResultSet(ctx, "work_subgraph", WorkSubgraphQuery(), map[string]any{"workId": workID})
	if err != nil {
		return nil, err
	}
	if rs.IsEmpty() {
		return nil, fmt.Errorf("work %q: %w", workID, types.ErrNotFound)
	}
	rs.Source = SourceFor(ProviderNeo4j, types.SourceSubgraph)
	return rs, nil
}

// Stats counts nodes and relationships in a single read transaction.
func (s *Neo4jStore) Stats(ctx context.Context) (map[string]int64, error) {
	if s.closed.Load() {
		return nil, types.NewStoreError("stats", types.ErrStoreClosed)
	}
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		counts := make(map[string]int64, len(StatKeys))
		for _, key := range StatKeys {
			res, err := tx.Run(ctx, StatsQueries[key], nil)
			if err != nil {
				return nil, err
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			v, _ := record.Get("count")
			counts[key], _ = AsInt64(v)
		}
		return counts, nil
	})
	if err != nil {
		return nil, wrapError("stats", err)
	}
	return result.(map[string]int64), nil
}

// VerifyConnectivity checks that the server is reachable.
func (s *Neo4jStore) VerifyConnectivity(ctx context.Context) error {
	if s.closed.Load() {
		return types.NewStoreError("verify_connectivity", types.ErrStoreClosed)
	}
	if err := s.client.VerifyConnectivity(ctx); err != nil {
		return types.NewStoreError("verify_connectivity", err)
	}
	return nil
}

// Close releases the connection pool. Later calls fail with a StoreError.
func (s *Neo4jStore) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close(ctx)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
