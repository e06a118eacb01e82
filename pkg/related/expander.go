package related

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soundprediction/mangagraph/pkg/types"
	"github.com/soundprediction/mangagraph/pkg/utils"
)

// CandidateSource fetches related-work candidates from the graph store.
type CandidateSource interface {
	RelatedByAuthor(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error)
	RelatedByMagazine(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error)
	RelatedByPublisher(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error)
}

// ExpandOptions controls one expansion.
type ExpandOptions struct {
	// Limit caps the merged result. Zero leaves only the per-class caps.
	Limit int
	// IncludeAdult is passed to the store queries.
	IncludeAdult bool
	// Keep, when set, drops candidates for which it returns false before
	// ranking.
	Keep func(types.WorkRecord) bool
}

// Result is the outcome of an expansion.
type Result struct {
	Works []types.WorkRecord
	// Enrichment holds the magazine to publisher pairs observed while
	// reaching candidates through a venue.
	Enrichment types.MagazinePublishers
	// Counts is the number of ranked works per relation before merging.
	Counts map[types.RelationType]int
	// Failed lists the relations whose query failed and contributed
	// nothing.
	Failed []types.RelationType
}

// Degraded reports whether some relation query failed.
func (r *Result) Degraded() bool {
	return r != nil && len(r.Failed) > 0
}

// Expander discovers works related to an anchor along the three relation
// classes. The three store queries run concurrently and are merged once all
// of them have returned.
type Expander struct {
	source CandidateSource
	scorer *Scorer
	logger *slog.Logger
}

// NewExpander creates an Expander.
func NewExpander(source CandidateSource, scorer *Scorer, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{source: source, scorer: scorer, logger: logger}
}

type relationQuery struct {
	relation types.RelationType
	fetch    func(context.Context, types.RelatedRequest) ([]types.RelatedCandidate, error)
}

// Expand fetches, scores and merges related works for anchor. A failing
// relation query is logged and contributes nothing. Store unavailability
// and cancellation abort the expansion and return the error.
func (e *Expander) Expand(ctx context.Context, anchor types.WorkRecord, opts ExpandOptions) (*Result, error) {
	cfg := e.scorer.Config()
	req := types.RelatedRequest{
		Anchor:       anchor,
		Limit:        cfg.CandidatePool,
		YearWindow:   cfg.YearWindow,
		IncludeAdult: opts.IncludeAdult,
	}

	queries := []relationQuery{
		{types.RelationSameMagazinePeriod, e.source.RelatedByMagazine},
		{types.RelationSameAuthor, e.source.RelatedByAuthor},
		{types.RelationSamePublisherOtherMagazine, e.source.RelatedByPublisher},
	}
	results := make([][]types.RelatedCandidate, len(queries))
	failed := make([]bool, len(queries))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(utils.Guard(func() error {
			cands, err := q.fetch(gctx, req)
			if err != nil {
				if types.IsHardFailure(gctx, err) {
					return err
				}
				e.logger.Warn("Related query failed, continuing without it",
					"relation", q.relation,
					"anchor", anchor.ID,
					"error", &types.StrategyError{Relation: q.relation, Err: err})
				failed[i] = true
				return nil
			}
			results[i] = cands
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Result{
		Enrichment: types.MagazinePublishers{},
		Counts:     make(map[types.RelationType]int, len(queries)),
	}
	classes := make([][]types.WorkRecord, len(queries))
	for i, q := range queries {
		if failed[i] {
			out.Failed = append(out.Failed, q.relation)
		}
		var works []types.WorkRecord
		for _, c := range results[i] {
			if opts.Keep != nil && !opts.Keep(c.Work) {
				continue
			}
			works = append(works, c.Work)
			out.Enrichment.Add(c.Magazine, c.Publisher)
		}
		classes[i] = e.scorer.Rank(anchor, works, q.relation)
		out.Counts[q.relation] = len(classes[i])
	}
	out.Works = Merge(opts.Limit, classes...)

	e.logger.Debug("Expanded related works",
		"anchor", anchor.ID,
		"same_magazine", out.Counts[types.RelationSameMagazinePeriod],
		"same_author", out.Counts[types.RelationSameAuthor],
		"same_publisher", out.Counts[types.RelationSamePublisherOtherMagazine],
		"merged", len(out.Works),
		"duration", time.Since(start))
	return out, nil
}
