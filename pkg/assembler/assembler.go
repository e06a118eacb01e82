package assembler

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/soundprediction/mangagraph/pkg/normalize"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// PrimaryBaseScore is added to the match score of primary works so they
// outrank related works under a budget.
const PrimaryBaseScore = 2000.0

// SortKey orders work nodes before the budget is applied.
type SortKey string

const (
	SortRelevance        SortKey = "relevance"
	SortTotalVolumesAsc  SortKey = "total_volumes_asc"
	SortTotalVolumesDesc SortKey = "total_volumes_desc"
)

// ParseSortKey converts the sort_total_volumes request value ("asc",
// "desc" or empty) to a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relevance", "none":
		return SortRelevance, nil
	case "asc", string(SortTotalVolumesAsc):
		return SortTotalVolumesAsc, nil
	case "desc", string(SortTotalVolumesDesc):
		return SortTotalVolumesDesc, nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", types.ErrMalformedInput, s)
}

// Options controls one assembly.
type Options struct {
	// Limit is the maximum number of work nodes. Zero or less keeps all.
	Limit int
	Sort  SortKey
}

// Assembler builds result graphs.
type Assembler struct {
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// New creates an Assembler that canonicalizes entity names through
// normalizer.
func New(normalizer *normalize.Normalizer, logger *slog.Logger) *Assembler {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{normalizer: normalizer, logger: logger}
}

// builder accumulates nodes and edges in insertion order.
type builder struct {
	nodes     []types.GraphNode
	nodeIndex map[string]int
	edges     []types.GraphEdge
	edgeIndex map[types.EdgeKey]bool
}

func newBuilder() *builder {
	return &builder{nodeIndex: make(map[string]int), edgeIndex: make(map[types.EdgeKey]bool)}
}

func (b *builder) addNode(n types.GraphNode) {
	if _, ok := b.nodeIndex[n.ID]; ok {
		return
	}
	b.nodeIndex[n.ID] = len(b.nodes)
	b.nodes = append(b.nodes, n)
}

func (b *builder) addEdge(source, target string, t types.EdgeType) {
	e := types.GraphEdge{
		ID:         fmt.Sprintf("%s|%s|%s", source, t, target),
		Source:     source,
		Target:     target,
		Type:       t,
		Properties: map[string]any{"source": types.SourceGraphAssembler},
	}
	if b.edgeIndex[e.Key()] {
		return
	}
	b.edgeIndex[e.Key()] = true
	b.edges = append(b.edges, e)
}

// Assemble builds the graph for primary and related works. Primary works
// are boosted by PrimaryBaseScore. enrichment maps raw magazine names to raw
// publisher names.
func (a *Assembler) Assemble(primary, related []types.WorkRecord, enrichment types.MagazinePublishers, opts Options) *types.Graph {
	candidates := make([]types.WorkRecord, 0, len(primary)+len(related))
	for _, w := range primary {
		w = w.Clone()
		w.RelevanceScore += PrimaryBaseScore
		candidates = append(candidates, w)
	}
	for _, w := range related {
		candidates = append(candidates, w.Clone())
	}

	works := dedupe(candidates)
	sortWorks(works, opts.Sort)
	index := a.indexEnrichment(enrichment)

	b := newBuilder()
	for _, w := range works {
		b.addNode(workNode(w))
	}
	for _, w := range works {
		a.addEntities(b, w, index)
	}

	if opts.Limit > 0 && len(works) > opts.Limit {
		keep := make(map[string]bool, opts.Limit)
		for _, w := range works[:opts.Limit] {
			keep[w.ID] = true
		}
		b = prune(b, keep)
	}
	g := a.finish(b)

	a.logger.Debug("Assembled graph",
		"primary", len(primary),
		"related", len(related),
		"works", len(g.NodesOfType(types.NodeTypeWork)),
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"limit", opts.Limit)
	return g
}

// dedupe keeps one record per id and then one per title. The higher
// relevance score wins; on a tie the earlier record is kept.
func dedupe(records []types.WorkRecord) []types.WorkRecord {
	pass := func(in []types.WorkRecord, key func(types.WorkRecord) string) []types.WorkRecord {
		var out []types.WorkRecord
		at := make(map[string]int)
		for _, w := range in {
			k := key(w)
			if k == "" {
				out = append(out, w)
				continue
			}
			if i, ok := at[k]; ok {
				if w.RelevanceScore > out[i].RelevanceScore {
					out[i] = w
				}
				continue
			}
			at[k] = len(out)
			out = append(out, w)
		}
		return out
	}
	var withID []types.WorkRecord
	for _, w := range records {
		if w.ID != "" {
			withID = append(withID, w)
		}
	}
	out := pass(withID, func(w types.WorkRecord) string { return w.ID })
	return pass(out, func(w types.WorkRecord) string { return strings.TrimSpace(w.Title) })
}

func sortWorks(works []types.WorkRecord, key SortKey) {
	sort.SliceStable(works, func(i, j int) bool {
		a, b := works[i], works[j]
		switch key {
		case SortTotalVolumesAsc:
			if a.TotalVolumes != b.TotalVolumes {
				return a.TotalVolumes < b.TotalVolumes
			}
		case SortTotalVolumesDesc:
			if a.TotalVolumes != b.TotalVolumes {
				return a.TotalVolumes > b.TotalVolumes
			}
		}
		return a.RelevanceScore > b.RelevanceScore
	})
}

// indexEnrichment keys enrichment by canonical magazine id so spelling
// variants of a magazine share publishers.
func (a *Assembler) indexEnrichment(enrichment types.MagazinePublishers) map[string][]string {
	index := make(map[string][]string, len(enrichment))
	for magazine, publishers := range enrichment {
		id := normalize.CanonicalID(normalize.KindMagazine, magazine)
		if id == "" {
			continue
		}
		index[id] = append(index[id], publishers...)
	}
	return index
}

// addEntities adds the authors, magazines and publishers of w. A work with
// a known magazine reaches its publishers only through the magazine, so
// the direct publisher to work edge is emitted only for works without one.
func (a *Assembler) addEntities(b *builder, w types.WorkRecord, enrichment map[string][]string) {
	for _, creator := range w.Creators {
		for _, e := range a.normalizer.Split(normalize.KindAuthor, creator) {
			b.addNode(entityNode(e, types.NodeTypeAuthor))
			b.addEdge(e.ID, w.ID, types.EdgeTypeCreated)
		}
	}

	hasMagazine := false
	for _, name := range w.Magazines {
		m, ok := a.normalizer.Normalize(normalize.KindMagazine, name)
		if !ok {
			continue
		}
		hasMagazine = true
		b.addNode(entityNode(m, types.NodeTypeMagazine))
		b.addEdge(m.ID, w.ID, types.EdgeTypePublished)
		for _, pubName := range enrichment[m.ID] {
			if p, ok := a.normalizer.Normalize(normalize.KindPublisher, pubName); ok {
				b.addNode(entityNode(p, types.NodeTypePublisher))
				b.addEdge(m.ID, p.ID, types.EdgeTypePublishedBy)
			}
		}
	}
	if hasMagazine {
		return
	}
	for _, name := range w.Publishers {
		if p, ok := a.normalizer.Normalize(normalize.KindPublisher, name); ok {
			b.addNode(entityNode(p, types.NodeTypePublisher))
			b.addEdge(p.ID, w.ID, types.EdgeTypePublished)
		}
	}
}

// prune keeps the work nodes in keep and the entity nodes reachable from
// them. A work reaches its authors, magazines and direct publishers; a
// kept magazine reaches its publishers.
func prune(b *builder, keep map[string]bool) *builder {
	reached := make(map[string]bool, len(keep))
	for id := range keep {
		reached[id] = true
	}
	for _, e := range b.edges {
		if (e.Type == types.EdgeTypeCreated || e.Type == types.EdgeTypePublished) && keep[e.Target] {
			reached[e.Source] = true
		}
	}
	for _, e := range b.edges {
		if e.Type == types.EdgeTypePublishedBy && reached[e.Source] {
			reached[e.Target] = true
		}
	}

	out := newBuilder()
	for _, n := range b.nodes {
		if n.Type == types.NodeTypeWork && !keep[n.ID] {
			continue
		}
		if reached[n.ID] {
			out.addNode(n)
		}
	}
	for _, e := range b.edges {
		out.edges = append(out.edges, e)
		out.edgeIndex[e.Key()] = true
	}
	return out
}

// finish drops dangling edges and refreshes entity labels from the
// registry, which may have seen a preferred spelling after the node was
// created.
func (a *Assembler) finish(b *builder) *types.Graph {
	g := &types.Graph{Nodes: make([]types.GraphNode, 0, len(b.nodes)), Edges: make([]types.GraphEdge, 0, len(b.edges))}
	registry := a.normalizer.Registry()
	for _, n := range b.nodes {
		switch n.Type {
		case types.NodeTypeWork:
		case types.NodeTypeAuthor, types.NodeTypeMagazine, types.NodeTypePublisher:
			if display := registry.Display(n.ID); display != "" {
				n.Label = display
				n.Properties["name"] = display
			}
		default:
			continue
		}
		g.Nodes = append(g.Nodes, n)
	}
	present := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		present[n.ID] = true
	}
	for _, e := range b.edges {
		if !e.Type.IsValid() || !present[e.Source] || !present[e.Target] {
			continue
		}
		g.Edges = append(g.Edges, e)
	}
	return g
}

func entityNode(e normalize.Entity, t types.NodeType) types.GraphNode {
	return types.GraphNode{
		ID:    e.ID,
		Label: e.Display,
		Type:  t,
		Properties: map[string]any{
			"name":   e.Display,
			"kind":   string(e.Kind),
			"source": types.SourceGraphAssembler,
		},
	}
}

func workNode(w types.WorkRecord) types.GraphNode {
	props := make(map[string]any, len(w.Properties)+20)
	for k, v := range w.Properties {
		props[k] = v
	}
	props["title"] = w.Title
	props["volume"] = w.VolumeLabel
	props["first_published"] = w.FirstPublished
	props["last_published"] = w.LastPublished
	props["total_volumes"] = w.TotalVolumes
	props["is_series"] = w.IsSeries
	props["work_count"] = w.WorkCount
	props["creators"] = nonNil(w.Creators)
	props["publishers"] = nonNil(w.Publishers)
	props["magazines"] = nonNil(w.Magazines)
	props["genre"] = w.Genre
	if w.SeriesID != "" {
		props["series_id"] = w.SeriesID
	}
	if len(w.Genres) > 0 {
		props["genres"] = w.Genres
	}
	if len(w.Themes) > 0 {
		props["themes"] = w.Themes
	}
	if len(w.Demographics) > 0 {
		props["demographics"] = w.Demographics
	}
	if w.Relation != "" {
		props["relation"] = string(w.Relation)
	}
	if s := w.Score; s != nil {
		props["base"] = s.Base
		props["demo_score"] = s.DemoScore
		props["themes_score"] = s.ThemesScore
		props["themes_ratio"] = s.ThemesRatio
		props["jaccard_similarity"] = s.Jaccard
		props["overlap_years"] = s.OverlapYears
		props["period_gap"] = s.Gap
	}
	source := w.Source
	if source == "" {
		source = types.SourceGraphAssembler
	}
	props["source"] = source

	score := w.RelevanceScore
	return types.GraphNode{
		ID:             w.ID,
		Label:          w.Title,
		Type:           types.NodeTypeWork,
		Properties:     props,
		RelevanceScore: &score,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
