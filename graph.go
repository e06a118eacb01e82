package mangagraph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soundprediction/mangagraph/pkg/assembler"
	"github.com/soundprediction/mangagraph/pkg/catalog"
	"github.com/soundprediction/mangagraph/pkg/driver"
	"github.com/soundprediction/mangagraph/pkg/grouping"
	"github.com/soundprediction/mangagraph/pkg/related"
	"github.com/soundprediction/mangagraph/pkg/search"
	"github.com/soundprediction/mangagraph/pkg/telemetry"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// GraphRequest is a graph search with all options.
type GraphRequest struct {
	Query string `json:"q" form:"q"`
	// Limit bounds the primary search and the work nodes of the graph.
	// Zero uses DefaultLimit.
	Limit          int  `json:"limit" form:"limit"`
	IncludeRelated bool `json:"include_related" form:"include_related"`
	IncludeHentai  bool `json:"include_hentai" form:"include_hentai"`
	// SortTotalVolumes is "", "asc" or "desc".
	SortTotalVolumes string `json:"sort_total_volumes" form:"sort_total_volumes"`
	// MinTotalVolumes drops works with fewer volumes. It is ignored for the
	// primary works when it would remove all of them.
	MinTotalVolumes int `json:"min_total_volumes" form:"min_total_volumes"`
	// Languages is the order title languages are tried in. Empty derives it
	// from the query.
	Languages []string `json:"languages" form:"languages"`
	// RelatedLimit bounds the merged related works. Zero uses Limit.
	RelatedLimit int `json:"related_limit" form:"related_limit"`
}

func (r GraphRequest) cacheKey() string {
	return fmt.Sprintf("graph|%s|%d|%t|%t|%s|%d|%s|%d",
		strings.TrimSpace(r.Query), r.Limit, r.IncludeRelated, r.IncludeHentai,
		r.SortTotalVolumes, r.MinTotalVolumes, strings.Join(r.Languages, ","), r.RelatedLimit)
}

// FindRelatedGraph searches works matching query and assembles them with
// their entities into a graph.
func (c *Client) FindRelatedGraph(ctx context.Context, query string, limit int, includeRelated, includeHentai bool) (*types.Graph, error) {
	return c.FindRelatedGraphWithOptions(ctx, GraphRequest{
		Query:          query,
		Limit:          limit,
		IncludeRelated: includeRelated,
		IncludeHentai:  includeHentai,
	})
}

// FindRelatedGraphWithOptions runs the search cascade, groups the matches
// into series, optionally expands related works from the best match and
// assembles the graph. Store unavailability and cancellation fail the
// request; other store errors leave the affected part empty.
func (c *Client) FindRelatedGraphWithOptions(ctx context.Context, req GraphRequest) (*types.Graph, error) {
	start := c.now()
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.RelatedLimit <= 0 {
		req.RelatedLimit = req.Limit
	}
	if req.MinTotalVolumes < 0 {
		return nil, fmt.Errorf("%w: min_total_volumes must not be negative", types.ErrMalformedInput)
	}
	sortKey, err := assembler.ParseSortKey(req.SortTotalVolumes)
	if err != nil {
		return nil, err
	}

	key := req.cacheKey()
	if g, ok := c.cache.Get(key); ok {
		c.logger.Debug("Graph cache hit", "query", req.Query)
		return g, nil
	}

	languages := search.ParseLanguages(req.Languages)
	if len(languages) == 0 {
		languages = search.ParseLanguages(c.config.Search.Languages)
	}
	outcome, err := c.orchestrator.Search(ctx, search.Request{
		Text:         req.Query,
		Limit:        req.Limit,
		Languages:    languages,
		IncludeAdult: req.IncludeHentai,
	})
	if err != nil {
		return nil, err
	}

	res := catalog.FromResultSet(outcome.Result)
	keep := c.keepFilter(req)
	primary := filterWorks(res.Works, keep)
	if len(primary) == 0 && len(res.Works) > 0 {
		// The volume filter never empties the primary works.
		primary = filterWorks(res.Works, c.adultFilter(req.IncludeHentai))
	}
	volumes := make(map[string]bool, len(primary))
	for _, w := range primary {
		volumes[w.ID] = true
	}
	primary = c.grouper.Group(primary)

	enrichment := types.MagazinePublishers{}
	enrichment.Merge(res.Enrichment)
	degraded := outcome.Degraded()
	enrichFailed, err := c.enrich(ctx, primary, enrichment)
	if err != nil {
		return nil, err
	}
	degraded = degraded || enrichFailed
	primary = withVenuePublishers(primary, enrichment)

	var relatedWorks []types.WorkRecord
	if req.IncludeRelated {
		if anchor, ok := related.SelectAnchor(primary); ok {
			titles := make(map[string]bool, len(primary))
			for _, w := range primary {
				if t := grouping.BaseTitle(w.Title); t != "" {
					titles[t] = true
				}
			}
			expanded, err := c.expander.Expand(ctx, anchor, related.ExpandOptions{
				Limit:        req.RelatedLimit,
				IncludeAdult: req.IncludeHentai,
				// Other volumes of a matched series are not related works.
				Keep: func(w types.WorkRecord) bool {
					return keep(w) && !volumes[w.ID] && !titles[grouping.BaseTitle(w.Title)]
				},
			})
			if err != nil {
				return nil, err
			}
			relatedWorks = expanded.Works
			degraded = degraded || expanded.Degraded()
			enrichment.Merge(expanded.Enrichment)
		}
	}

	graph := c.assembler.Assemble(primary, relatedWorks, enrichment, assembler.Options{Limit: req.Limit, Sort: sortKey})
	c.logger.Info("Graph search finished",
		"query", req.Query,
		"mode", outcome.Mode,
		"language", outcome.Language,
		"primary", len(primary),
		"related", len(relatedWorks),
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"degraded", degraded,
		"duration", time.Since(start))

	c.recordEvent(ctx, req.Query, outcome, len(relatedWorks), c.now().Sub(start))
	// A graph missing parts after a store error is not cached, so the
	// next request sees the store once it recovers.
	if !degraded {
		c.cache.Set(key, graph)
	}
	return graph, nil
}

// enrich adds the publishers of the works' magazines to enrichment. A
// recoverable store error is logged, leaves enrichment as it is and is
// reported as degraded.
func (c *Client) enrich(ctx context.Context, works []types.WorkRecord, enrichment types.MagazinePublishers) (bool, error) {
	seen := make(map[string]bool)
	var magazines []string
	for _, w := range works {
		for _, m := range w.Magazines {
			if m != "" && !seen[m] {
				seen[m] = true
				magazines = append(magazines, m)
			}
		}
	}
	if len(magazines) == 0 {
		return false, nil
	}
	pairs, err := c.store.MagazinePublishers(ctx, magazines)
	if err != nil {
		if types.IsHardFailure(ctx, err) {
			return false, err
		}
		c.logger.Warn("Magazine publisher lookup failed, continuing without it", "magazines", len(magazines), "error", err)
		return true, nil
	}
	enrichment.Merge(pairs)
	return false, nil
}

// withVenuePublishers adds to each work the publishers of its magazines.
func withVenuePublishers(works []types.WorkRecord, enrichment types.MagazinePublishers) []types.WorkRecord {
	out := make([]types.WorkRecord, len(works))
	for i, w := range works {
		w = w.Clone()
		seen := make(map[string]bool, len(w.Publishers))
		for _, p := range w.Publishers {
			seen[p] = true
		}
		for _, m := range w.Magazines {
			for _, p := range enrichment[m] {
				if !seen[p] {
					seen[p] = true
					w.Publishers = append(w.Publishers, p)
				}
			}
		}
		out[i] = w
	}
	return out
}

func (c *Client) adultFilter(includeHentai bool) func(types.WorkRecord) bool {
	return func(w types.WorkRecord) bool {
		return includeHentai || !w.HasTag(driver.AdultTag)
	}
}

// keepFilter combines the adult-content and minimum-volume filters.
func (c *Client) keepFilter(req GraphRequest) func(types.WorkRecord) bool {
	adult := c.adultFilter(req.IncludeHentai)
	return func(w types.WorkRecord) bool {
		if !adult(w) {
			return false
		}
		return req.MinTotalVolumes <= 0 || volumesOf(w) >= req.MinTotalVolumes
	}
}

// volumesOf is the work's total volumes, or its merged volume count when
// larger.
func volumesOf(w types.WorkRecord) int {
	return max(w.TotalVolumes, w.WorkCount)
}

func filterWorks(works []types.WorkRecord, keep func(types.WorkRecord) bool) []types.WorkRecord {
	out := make([]types.WorkRecord, 0, len(works))
	for _, w := range works {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

func (c *Client) recordEvent(ctx context.Context, query string, outcome *search.Outcome, relatedCount int, d time.Duration) {
	if c.events == nil {
		return
	}
	if err := c.events.Record(telemetry.NewSearchEvent(ctx, query, outcome, relatedCount, d)); err != nil {
		c.logger.Warn("Failed to record search event", "error", err)
	}
}

// GetWorkGraph returns the work with id workID and its authors, magazines
// and publishers.
func (c *Client) GetWorkGraph(ctx context.Context, workID string) (*types.Graph, error) {
	workID = strings.TrimSpace(workID)
	if workID == "" {
		return nil, fmt.Errorf("%w: work id is required", types.ErrMalformedInput)
	}
	rs, err := c.store.WorkSubgraph(ctx, workID)
	if err != nil {
		return nil, err
	}
	res := catalog.FromResultSet(rs)
	if len(res.Works) == 0 {
		return nil, fmt.Errorf("work %q: %w", workID, types.ErrNotFound)
	}
	enrichment := types.MagazinePublishers{}
	enrichment.Merge(res.Enrichment)
	if _, err := c.enrich(ctx, res.Works, enrichment); err != nil {
		return nil, err
	}
	return c.assembler.Assemble(res.Works, nil, enrichment, assembler.Options{}), nil
}

// Stats returns node and relationship counts of the catalog.
func (c *Client) Stats(ctx context.Context) (map[string]int64, error) {
	return c.store.Stats(ctx)
}
