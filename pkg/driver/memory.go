package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/soundprediction/mangagraph/pkg/catalog"
	"github.com/soundprediction/mangagraph/pkg/related"
	"github.com/soundprediction/mangagraph/pkg/types"
	"github.com/soundprediction/mangagraph/pkg/utils"
)

// titleFields are the work properties indexed for fulltext search.
var titleFields = []string{"title_name", "title", "english_name", "japanese_name"}

// MemoryStore implements GraphStore over an in-memory copy of a Fixture.
// Fulltext modes use an in-memory bleve index over the title fields;
// fulltext scores are scaled to [0, 1] by the best hit of each query.
type MemoryStore struct {
	mu        sync.RWMutex
	nodes     map[string]types.RawNode
	kinds     map[string]types.NodeType
	works     []string
	records   map[string]types.WorkRecord
	byName    map[types.NodeType]map[string]string
	edges     []types.RawEdge
	adjacency map[string][]int
	index     bleve.Index
	closed    bool
	logger    *slog.Logger
	now       func() time.Time
}

var _ GraphStore = (*MemoryStore)(nil)

// NewMemoryStore builds a MemoryStore from f.
func NewMemoryStore(f *Fixture, logger *slog.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = cjk.AnalyzerName
	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory index: %w", err)
	}
	s := &MemoryStore{
		nodes:     make(map[string]types.RawNode),
		kinds:     make(map[string]types.NodeType),
		records:   make(map[string]types.WorkRecord),
		byName:    make(map[types.NodeType]map[string]string),
		adjacency: make(map[string][]int),
		index:     index,
		logger:    logger.With("store", ProviderMemory),
		now:       time.Now,
	}
	if f == nil {
		f = &Fixture{}
	}
	if err := s.load(f); err != nil {
		_ = index.Close()
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) load(f *Fixture) error {
	for _, m := range f.Magazines {
		magID := s.entity(types.NodeTypeMagazine, m.Name, m.Properties)
		for _, p := range m.Publishers {
			s.link(magID, s.entity(types.NodeTypePublisher, p, nil), types.RelPublishedBy)
		}
	}

	batch := s.index.NewBatch()
	for _, w := range f.Works {
		props := make(map[string]any, len(w.Properties))
		for k, v := range w.Properties {
			props[k] = v
		}
		id := catalog.String(props["id"])
		props["id"] = id
		elementID := "work:" + id
		if _, dup := s.nodes[elementID]; dup {
			return fmt.Errorf("duplicate fixture work %q", id)
		}
		s.nodes[elementID] = types.RawNode{ID: elementID, Labels: []string{catalog.LabelWork}, Properties: props}
		s.kinds[elementID] = types.NodeTypeWork
		s.works = append(s.works, elementID)

		for _, c := range w.Creators {
			s.link(elementID, s.entity(types.NodeTypeAuthor, c, nil), types.RelCreatedBy)
		}
		for _, m := range w.Magazines {
			s.link(elementID, s.entity(types.NodeTypeMagazine, m, nil), types.RelPublishedIn)
		}
		for _, p := range w.Publishers {
			s.link(elementID, s.entity(types.NodeTypePublisher, p, nil), types.RelPublishedBy)
		}

		doc := make(map[string]any, len(titleFields))
		for _, field := range titleFields {
			if v := catalog.String(props[field]); v != "" {
				doc[field] = v
			}
		}
		if err := batch.Index(elementID, doc); err != nil {
			return fmt.Errorf("failed to index work %q: %w", id, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index fixture: %w", err)
	}

	// Records need every edge, so they are built after all works are linked.
	for _, elementID := range s.works {
		rs := s.neighbourhood([]string{elementID}, nil)
		res := catalog.FromResultSet(rs)
		if len(res.Works) == 1 {
			s.records[elementID] = res.Works[0]
		}
	}
	s.logger.Debug("Loaded memory fixture", "works", len(s.works), "nodes", len(s.nodes), "edges", len(s.edges))
	return nil
}

// entity returns the element id of the named node of kind t, creating it.
func (s *MemoryStore) entity(t types.NodeType, name string, extra map[string]any) string {
	name = strings.TrimSpace(name)
	if s.byName[t] == nil {
		s.byName[t] = make(map[string]string)
	}
	if id, ok := s.byName[t][name]; ok {
		return id
	}
	label := map[types.NodeType]string{
		types.NodeTypeAuthor:    catalog.LabelAuthor,
		types.NodeTypeMagazine:  catalog.LabelMagazine,
		types.NodeTypePublisher: catalog.LabelPublisher,
	}[t]
	id := fmt.Sprintf("%s:%s", t, name)
	props := map[string]any{"name": name}
	for k, v := range extra {
		props[k] = v
	}
	s.nodes[id] = types.RawNode{ID: id, Labels: []string{label}, Properties: props}
	s.kinds[id] = t
	s.byName[t][name] = id
	return id
}

func (s *MemoryStore) link(source, target, relType string) {
	for _, i := range s.adjacency[source] {
		e := s.edges[i]
		if e.Source == source && e.Target == target && e.Type == relType {
			return
		}
	}
	i := len(s.edges)
	s.edges = append(s.edges, types.RawEdge{
		ID:     fmt.Sprintf("rel:%d", i),
		Source: source,
		Target: target,
		Type:   relType,
	})
	s.adjacency[source] = append(s.adjacency[source], i)
	s.adjacency[target] = append(s.adjacency[target], i)
}

// neighbourhood returns the works in order with their neighbours and the
// relationships touching them. scores may be nil.
func (s *MemoryStore) neighbourhood(workIDs []string, scores map[string]float64) *types.RawResultSet {
	rs := &types.RawResultSet{}
	seenNode := make(map[string]bool)
	seenEdge := make(map[int]bool)
	for _, id := range workIDs {
		n := s.nodes[id]
		n.Score = scores[id]
		rs.Works = append(rs.Works, n)
		seenNode[id] = true
	}
	for _, id := range workIDs {
		for _, i := range s.adjacency[id] {
			if seenEdge[i] {
				continue
			}
			seenEdge[i] = true
			e := s.edges[i]
			rs.Relationships = append(rs.Relationships, e)
			other := e.Target
			if other == id {
				other = e.Source
			}
			if !seenNode[other] {
				seenNode[other] = true
				rs.Neighbors = append(rs.Neighbors, s.nodes[other])
			}
		}
	}
	return rs
}

func (s *MemoryStore) begin(op string) error {
	if s.closed {
		return types.NewStoreError(op, types.ErrStoreClosed)
	}
	return nil
}

// Provider returns ProviderMemory.
func (s *MemoryStore) Provider() Provider {
	return ProviderMemory
}

func (s *MemoryStore) allowed(elementID string, includeAdult bool) bool {
	if includeAdult {
		return true
	}
	rec := s.records[elementID]
	return !rec.HasTag(AdultTag)
}

// Search runs one primary search in req.Mode.
func (s *MemoryStore) Search(ctx context.Context, req types.SearchRequest) (*types.RawResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin("search_" + string(req.Mode)); err != nil {
		return nil, err
	}

	limit := limitOr(req.Limit, DefaultSearchLimit)
	text := strings.TrimSpace(req.Text)
	var (
		ids    []string
		scores map[string]float64
		err    error
	)
	switch req.Mode {
	case types.SearchModeSimple:
		ids = s.simple(text, req.Language, req.IncludeAdult, limit)
	case types.SearchModeFulltext:
		var hits []rankCandidate
		if hits, err = s.fulltext(text, req.Language, req.IncludeAdult, limit); err != nil {
			return nil, err
		}
		ids, scores = candidateIDs(hits)
	case types.SearchModeRanked:
		var hits []rankCandidate
		if hits, err = s.fulltext(text, req.Language, req.IncludeAdult, max(req.CandidateLimit, limit)); err != nil {
			return nil, err
		}
		ids, scores = candidateIDs(rerank(hits, text, req.RankThreshold, limit))
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", types.ErrMalformedInput, req.Mode)
	}

	rs := s.neighbourhood(ids, scores)
	rs.Mode = req.Mode
	rs.Language = req.Language
	rs.Source = SourceFor(ProviderMemory, ModeSource(req.Mode))
	return rs, nil
}

func candidateIDs(hits []rankCandidate) ([]string, map[string]float64) {
	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}
	return ids, scores
}

// simple matches title fields by case-insensitive substring, ordered by
// members and then id.
func (s *MemoryStore) simple(text string, language types.Language, includeAdult bool, limit int) []string {
	needle := strings.ToLower(text)
	var fields [][]string
	if language == types.LanguageJapanese {
		for _, f := range language.TitleFields() {
			fields = append(fields, []string{f})
		}
	} else {
		fields = [][]string{{"title_name", "title"}, {"english_name"}}
	}

	var ids []string
	for _, id := range s.works {
		if !s.allowed(id, includeAdult) {
			continue
		}
		props := s.nodes[id].Properties
		match := needle == ""
		for _, group := range fields {
			if match {
				break
			}
			value := catalog.FirstString(props, group...)
			match = strings.Contains(strings.ToLower(value), needle)
		}
		if match {
			ids = append(ids, id)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := s.records[ids[i]], s.records[ids[j]]
		if a.Members != b.Members {
			return a.Members > b.Members
		}
		return a.ID < b.ID
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// fulltext runs a fuzzy match over every title field. Japanese queries only
// return works with a Japanese name.
func (s *MemoryStore) fulltext(text string, language types.Language, includeAdult bool, limit int) ([]rankCandidate, error) {
	var q query.Query
	if text == "" {
		q = bleve.NewMatchAllQuery()
	} else {
		disjunction := bleve.NewDisjunctionQuery()
		for _, field := range titleFields {
			mq := bleve.NewMatchQuery(text)
			mq.SetField(field)
			mq.SetFuzziness(1)
			disjunction.AddQuery(mq)
		}
		q = disjunction
	}
	req := bleve.NewSearchRequest(q)
	req.Size = len(s.works)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}

	var best float64
	for _, hit := range res.Hits {
		best = max(best, hit.Score)
	}
	var out []rankCandidate
	for _, hit := range res.Hits {
		props := s.nodes[hit.ID].Properties
		if language == types.LanguageJapanese && catalog.String(props["japanese_name"]) == "" {
			continue
		}
		if !s.allowed(hit.ID, includeAdult) {
			continue
		}
		score := 1.0
		if best > 0 {
			score = hit.Score / best
		}
		title := catalog.FirstString(props, "japanese_name")
		if language != types.LanguageJapanese {
			title = catalog.FirstString(props, "title_name", "title", "english_name")
		}
		out = append(out, rankCandidate{ID: hit.ID, Score: score, Title: title})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// anchorNeighbours returns the element ids of nodes of kind t linked to the
// anchor work, plus those whose name is in names.
func (s *MemoryStore) anchorNeighbours(anchorID string, t types.NodeType, names []string) map[string]bool {
	out := make(map[string]bool)
	for _, name := range names {
		if id, ok := s.byName[t][strings.TrimSpace(name)]; ok {
			out[id] = true
		}
	}
	for _, elementID := range s.workElementIDs(anchorID) {
		for _, i := range s.adjacency[elementID] {
			e := s.edges[i]
			if e.Source == elementID && s.kinds[e.Target] == t {
				out[e.Target] = true
			}
		}
	}
	return out
}

func (s *MemoryStore) workElementIDs(workID string) []string {
	if _, ok := s.nodes[workID]; ok && s.kinds[workID] == types.NodeTypeWork {
		return []string{workID}
	}
	if _, ok := s.nodes["work:"+workID]; ok {
		return []string{"work:" + workID}
	}
	return nil
}

// worksLinkedTo returns the works with an edge of relType to node, in
// fixture order.
func (s *MemoryStore) worksLinkedTo(node, relType string) []string {
	var out []string
	for _, i := range s.adjacency[node] {
		e := s.edges[i]
		if e.Target == node && e.Type == relType && s.kinds[e.Source] == types.NodeTypeWork {
			out = append(out, e.Source)
		}
	}
	return out
}

func (s *MemoryStore) publisherOf(magazine string) string {
	for _, i := range s.adjacency[magazine] {
		e := s.edges[i]
		if e.Source == magazine && e.Type == types.RelPublishedBy {
			return catalog.String(s.nodes[e.Target].Properties["name"])
		}
	}
	return ""
}

func (s *MemoryStore) candidate(elementID, magazine, publisher string) types.RelatedCandidate {
	return types.RelatedCandidate{Work: s.records[elementID].Clone(), Magazine: magazine, Publisher: publisher}
}

func (s *MemoryStore) isAnchor(elementID string, anchor types.WorkRecord) bool {
	return elementID == anchor.ID || s.records[elementID].ID == anchor.ID
}

func (s *MemoryStore) relatedBegin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.begin(op)
}

// RelatedByAuthor returns works sharing a creator with the anchor, ordered
// by title.
func (s *MemoryStore) RelatedByAuthor(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.relatedBegin(ctx, "related_by_author"); err != nil {
		return nil, err
	}
	authors := s.anchorNeighbours(req.Anchor.ID, types.NodeTypeAuthor, req.Anchor.Creators)
	seen := make(map[string]bool)
	var ids []string
	for _, a := range sortedKeys(authors) {
		for _, w := range s.worksLinkedTo(a, types.RelCreatedBy) {
			if seen[w] || s.isAnchor(w, req.Anchor) || !s.allowed(w, req.IncludeAdult) {
				continue
			}
			seen[w] = true
			ids = append(ids, w)
		}
	}
	sort.SliceStable(ids, func(i, j int) bool { return s.records[ids[i]].Title < s.records[ids[j]].Title })
	out := make([]types.RelatedCandidate, 0, len(ids))
	for _, id := range truncate(ids, limitOr(req.Limit, related.DefaultCandidatePool)) {
		out = append(out, s.candidate(id, "", ""))
	}
	return out, nil
}

// RelatedByMagazine returns works serialized in one of the anchor's
// magazines, ordered by members and then id.
func (s *MemoryStore) RelatedByMagazine(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.relatedBegin(ctx, "related_by_magazine"); err != nil {
		return nil, err
	}
	var out []types.RelatedCandidate
	for _, m := range sortedKeys(s.anchorNeighbours(req.Anchor.ID, types.NodeTypeMagazine, req.Anchor.Magazines)) {
		name := catalog.String(s.nodes[m].Properties["name"])
		publisher := s.publisherOf(m)
		for _, w := range s.worksLinkedTo(m, types.RelPublishedIn) {
			if s.isAnchor(w, req.Anchor) || !s.allowed(w, req.IncludeAdult) {
				continue
			}
			out = append(out, s.candidate(w, name, publisher))
		}
	}
	sortCandidates(out)
	return truncate(out, limitOr(req.Limit, related.DefaultCandidatePool)), nil
}

// RelatedByPublisher returns works of the anchor's publishers serialized
// in other magazines within the anchor's widened years.
func (s *MemoryStore) RelatedByPublisher(ctx context.Context, req types.RelatedRequest) ([]types.RelatedCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.relatedBegin(ctx, "related_by_publisher"); err != nil {
		return nil, err
	}
	anchorMagazines := s.anchorNeighbours(req.Anchor.ID, types.NodeTypeMagazine, req.Anchor.Magazines)
	window := related.ParseYearRange(req.Anchor.FirstPublished, req.Anchor.LastPublished, s.now()).Expand(req.YearWindow)

	seen := make(map[string]bool)
	var out []types.RelatedCandidate
	for _, name := range req.Anchor.Publishers {
		p, ok := s.byName[types.NodeTypePublisher][strings.TrimSpace(name)]
		if !ok {
			continue
		}
		for _, i := range s.adjacency[p] {
			e := s.edges[i]
			if e.Target != p || e.Type != types.RelPublishedBy || s.kinds[e.Source] != types.NodeTypeMagazine || anchorMagazines[e.Source] {
				continue
			}
			magazine := catalog.String(s.nodes[e.Source].Properties["name"])
			for _, w := range s.worksLinkedTo(e.Source, types.RelPublishedIn) {
				if seen[w] || s.isAnchor(w, req.Anchor) || !s.allowed(w, req.IncludeAdult) {
					continue
				}
				rec := s.records[w]
				if window.Valid {
					r := related.ParseYearRange(rec.FirstPublished, rec.LastPublished, s.now())
					if r.Valid && related.OverlapYears(window, r) == 0 {
						continue
					}
				}
				seen[w] = true
				out = append(out, s.candidate(w, magazine, name))
			}
		}
	}
	sortCandidates(out)
	return truncate(out, limitOr(req.Limit, related.DefaultCandidatePool)), nil
}

func sortCandidates(c []types.RelatedCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Work.Members != c[j].Work.Members {
			return c[i].Work.Members > c[j].Work.Members
		}
		return c[i].Work.ID < c[j].Work.ID
	})
}

func truncate[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MagazinePublishers returns the publishers of the named magazines.
func (s *MemoryStore) MagazinePublishers(ctx context.Context, magazines []string) (types.MagazinePublishers, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin("magazine_publishers"); err != nil {
		return nil, err
	}
	out := types.MagazinePublishers{}
	for _, name := range magazines {
		m, ok := s.byName[types.NodeTypeMagazine][strings.TrimSpace(name)]
		if !ok {
			continue
		}
		for _, i := range s.adjacency[m] {
			e := s.edges[i]
			if e.Source == m && e.Type == types.RelPublishedBy {
				out.Add(name, catalog.String(s.nodes[e.Target].Properties["name"]))
			}
		}
	}
	return out, nil
}

// SimilarWorks ranks works by cosine similarity of req.Property to
// req.Vector. Scores are mapped to [0, 1] as (1 + cosine) / 2.
func (s *MemoryStore) SimilarWorks(ctx context.Context, req types.VectorRequest) (*types.RawResultSet, error) {
	if err := types.ValidateVectorProperty(req.Property); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin("similar_works"); err != nil {
		return nil, err
	}

	var items []utils.ScoredItem[string]
	for _, id := range s.works {
		if !s.allowed(id, req.IncludeAdult) {
			continue
		}
		vec, ok := floatVector(s.nodes[id].Properties[req.Property])
		if !ok || len(vec) != len(req.Vector) {
			continue
		}
		score := (1 + utils.CosineSimilarity(req.Vector, vec)) / 2
		items = append(items, utils.ScoredItem[string]{Item: id, Score: score})
	}
	top := utils.TopKByScore(items, limitOr(req.Limit, DefaultSearchLimit), req.Threshold)
	ids := make([]string, len(top))
	scores := make(map[string]float64, len(top))
	for i, item := range top {
		ids[i] = item.Item
		scores[item.Item] = item.Score
	}
	rs := s.neighbourhood(ids, scores)
	rs.Source = SourceFor(ProviderMemory, types.SourceVector)
	return rs, nil
}

func floatVector(v any) ([]float32, bool) {
	switch t := v.(type) {
	case []float32:
		return t, true
	case []float64:
		out := make([]float32, len(t))
		for i, f := range t {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(t))
		for i, item := range t {
			f, ok := catalog.Float(item)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}

// WorkSubgraph returns the work with id workID and its neighbours.
func (s *MemoryStore) WorkSubgraph(ctx context.Context, workID string) (*types.RawResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin("work_subgraph"); err != nil {
		return nil, err
	}
	ids := s.workElementIDs(workID)
	if len(ids) == 0 {
		return nil, fmt.Errorf("work %q: %w", workID, types.ErrNotFound)
	}
	rs := s.neighbourhood(ids, nil)
	rs.Source = SourceFor(ProviderMemory, types.SourceSubgraph)
	return rs, nil
}

// Stats counts nodes and relationships.
func (s *MemoryStore) Stats(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.begin("stats"); err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(StatKeys))
	for _, key := range StatKeys {
		counts[key] = 0
	}
	for _, t := range s.kinds {
		switch t {
		case types.NodeTypeWork:
			counts[StatWorkCount]++
		case types.NodeTypeAuthor:
			counts[StatAuthorCount]++
		case types.NodeTypeMagazine:
			counts[StatMagazineCount]++
		case types.NodeTypePublisher:
			counts[StatPublisherCount]++
		}
	}
	for _, e := range s.edges {
		switch e.Type {
		case types.RelCreatedBy:
			counts[StatCreatedByCount]++
		case types.RelPublishedIn:
			counts[StatPublishedInCount]++
		case types.RelPublishedBy:
			counts[StatPublishedByCount]++
		}
	}
	return counts, nil
}

// VerifyConnectivity fails only after Close.
func (s *MemoryStore) VerifyConnectivity(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.begin("verify_connectivity")
}

// Close releases the index. Later calls fail with a StoreError.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}
