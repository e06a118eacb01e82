package assembler

import (
	"fmt"
	"testing"

	"github.com/soundprediction/mangagraph/pkg/normalize"
	"github.com/soundprediction/mangagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssembler() *Assembler {
	return New(normalize.New(normalize.NewRegistry()), nil)
}

func work(id, title string, score float64) types.WorkRecord {
	return types.WorkRecord{ID: id, Title: title, TotalVolumes: 1, WorkCount: 1, RelevanceScore: score}
}

func assertConnected(t *testing.T, g *types.Graph) {
	t.Helper()
	ids := make(map[string]types.NodeType)
	for _, n := range g.Nodes {
		ids[n.ID] = n.Type
	}
	for _, e := range g.Edges {
		assert.Contains(t, ids, e.Source, "dangling source in %s", e.ID)
		assert.Contains(t, ids, e.Target, "dangling target in %s", e.ID)
	}
	// Every entity node touches a work, directly or through a magazine.
	toWork := make(map[string]bool)
	for _, e := range g.Edges {
		if ids[e.Target] == types.NodeTypeWork {
			toWork[e.Source] = true
		}
	}
	for _, e := range g.Edges {
		if e.Type == types.EdgeTypePublishedBy && toWork[e.Source] {
			toWork[e.Target] = true
		}
	}
	for _, n := range g.Nodes {
		if n.Type != types.NodeTypeWork {
			assert.True(t, toWork[n.ID], "unreachable %s node %s", n.Type, n.Label)
		}
	}
}

func TestAssembleDedupByTitle(t *testing.T) {
	a := newTestAssembler()
	low := work("w-low", "Same Title", 500)
	low.Creators = []string{"Only Low"}
	high := work("w-high", "Same Title", 1000)
	high.Creators = []string{"Author H"}

	g := a.Assemble(nil, []types.WorkRecord{low, high}, nil, Options{})

	worksOut := g.NodesOfType(types.NodeTypeWork)
	require.Len(t, worksOut, 1)
	assert.Equal(t, "w-high", worksOut[0].ID)
	assert.Equal(t, 1000.0, worksOut[0].Score())
	for _, e := range g.Edges {
		assert.NotEqual(t, "w-low", e.Target)
		assert.NotEqual(t, "w-low", e.Source)
	}
	for _, n := range g.Nodes {
		assert.NotEqual(t, "Only Low", n.Label)
	}
}

func TestAssembleDedupByID(t *testing.T) {
	a := newTestAssembler()
	primary := work("w1", "Foo", 0.5)
	primary.Source = types.SourceRanked
	rel := work("w1", "Foo", 1000)
	rel.Relation = types.RelationSameAuthor

	g := a.Assemble([]types.WorkRecord{primary}, []types.WorkRecord{rel}, nil, Options{})

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, PrimaryBaseScore+0.5, g.Nodes[0].Score())
	assert.Equal(t, types.SourceRanked, g.Nodes[0].Properties["source"])
}

func TestAssembleEntities(t *testing.T) {
	a := newTestAssembler()
	w1 := work("w1", "Foo", 1)
	w1.Creators = []string{"[著]作者A・作者B"}
	w1.Magazines = []string{"週刊少年ジャンプ"}
	w1.Publishers = []string{"集英社"}
	w2 := work("w2", "Bar", 1)
	w2.Creators = []string{"作者A"}
	w2.Publishers = []string{"講談社"}

	g := a.Assemble([]types.WorkRecord{w1, w2}, nil,
		types.MagazinePublishers{"週刊少年ジャンプ": {"集英社"}}, Options{})

	authors := g.NodesOfType(types.NodeTypeAuthor)
	require.Len(t, authors, 2)
	assert.Equal(t, "作者A", authors[0].Label)
	assert.Equal(t, "作者B", authors[1].Label)

	mags := g.NodesOfType(types.NodeTypeMagazine)
	require.Len(t, mags, 1)
	pubs := g.NodesOfType(types.NodeTypePublisher)
	require.Len(t, pubs, 2)

	count := func(t types.EdgeType) int {
		n := 0
		for _, e := range g.Edges {
			if e.Type == t {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 3, count(types.EdgeTypeCreated))
	// Magazine to w1, plus the direct publisher of w2 which has no magazine.
	assert.Equal(t, 2, count(types.EdgeTypePublished))
	assert.Equal(t, 1, count(types.EdgeTypePublishedBy))
	for _, e := range g.Edges {
		assert.Equal(t, types.SourceGraphAssembler, e.Properties["source"])
	}
	assertConnected(t, g)
}

func TestAssembleRelatedProperties(t *testing.T) {
	a := newTestAssembler()
	rel := work("r1", "Series B", 1000)
	rel.Relation = types.RelationSameMagazinePeriod
	rel.Source = types.SourceSameMagazine
	rel.Score = &types.RelationScore{Base: 1000, DemoScore: 2, ThemesScore: 1, ThemesRatio: 0.5, Jaccard: 0.375}

	g := a.Assemble(nil, []types.WorkRecord{rel}, nil, Options{})

	require.Len(t, g.Nodes, 1)
	props := g.Nodes[0].Properties
	assert.Equal(t, "same_magazine_period", props["relation"])
	assert.Equal(t, 2, props["demo_score"])
	assert.Equal(t, 0.375, props["jaccard_similarity"])
	assert.Equal(t, types.SourceSameMagazine, props["source"])
	assert.Equal(t, []string{}, props["creators"])
}

func TestAssembleBudget(t *testing.T) {
	a := newTestAssembler()
	var primary, related []types.WorkRecord
	for i := 0; i < 3; i++ {
		w := work(fmt.Sprintf("p%d", i), fmt.Sprintf("Primary %d", i), float64(i))
		w.Creators = []string{fmt.Sprintf("Primary Author %d", i), "Shared Author"}
		w.Magazines = []string{fmt.Sprintf("Magazine %d", i)}
		primary = append(primary, w)
	}
	for i := 0; i < 5; i++ {
		w := work(fmt.Sprintf("r%d", i), fmt.Sprintf("Related %d", i), 1000)
		w.Creators = []string{fmt.Sprintf("Related Author %d", i)}
		w.Publishers = []string{fmt.Sprintf("Publisher %d", i)}
		related = append(related, w)
	}
	enrichment := types.MagazinePublishers{"Magazine 0": {"Publisher 0"}, "Magazine 2": {"Big Pub"}}

	g := a.Assemble(primary, related, enrichment, Options{Limit: 4})

	worksOut := g.NodesOfType(types.NodeTypeWork)
	require.Len(t, worksOut, 4)
	assert.Equal(t, []string{"p2", "p1", "p0", "r0"}, []string{worksOut[0].ID, worksOut[1].ID, worksOut[2].ID, worksOut[3].ID})
	for _, n := range g.Nodes {
		assert.NotContains(t, []string{"Related Author 1", "Publisher 3"}, n.Label)
	}
	labels := make(map[string]bool)
	for _, n := range g.Nodes {
		labels[n.Label] = true
	}
	assert.True(t, labels["Big Pub"], "publisher reached through a magazine is kept")
	assert.True(t, labels["Publisher 0"])
	assertConnected(t, g)
}

func TestAssembleSortTotalVolumes(t *testing.T) {
	a := newTestAssembler()
	small := work("s", "Small", 10)
	small.TotalVolumes = 2
	big := work("b", "Big", 1)
	big.TotalVolumes = 40
	mid := work("m", "Mid", 5)
	mid.TotalVolumes = 12

	g := a.Assemble(nil, []types.WorkRecord{small, big, mid}, nil, Options{Sort: SortTotalVolumesDesc, Limit: 2})
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "b", g.Nodes[0].ID)
	assert.Equal(t, "m", g.Nodes[1].ID)

	g = a.Assemble(nil, []types.WorkRecord{small, big, mid}, nil, Options{Sort: SortTotalVolumesAsc})
	require.Len(t, g.Nodes, 3)
	assert.Equal(t, "s", g.Nodes[0].ID)
	assert.Equal(t, "b", g.Nodes[2].ID)
}

func TestAssembleNoDirectPublisherEdgeWithMagazine(t *testing.T) {
	a := newTestAssembler()
	w := work("w", "Foo", 1)
	w.Magazines = []string{"Weekly M"}
	// Pub Q is listed on the work but not behind its magazine.
	w.Publishers = []string{"Pub P", "Pub Q"}

	g := a.Assemble([]types.WorkRecord{w}, nil, types.MagazinePublishers{"Weekly M": {"Pub P"}}, Options{})

	for _, e := range g.Edges {
		if e.Target == "w" {
			assert.Equal(t, types.NodeTypeMagazine, nodeType(g, e.Source), "edge %s", e.ID)
		}
	}
	pubs := g.NodesOfType(types.NodeTypePublisher)
	require.Len(t, pubs, 1)
	assert.Equal(t, "Pub P", pubs[0].Label)
	assertConnected(t, g)
}

func nodeType(g *types.Graph, id string) types.NodeType {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n.Type
		}
	}
	return ""
}

func TestParseSortKey(t *testing.T) {
	for in, want := range map[string]SortKey{"": SortRelevance, "asc": SortTotalVolumesAsc, "DESC": SortTotalVolumesDesc} {
		got, err := ParseSortKey(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSortKey("sideways")
	assert.ErrorIs(t, err, types.ErrMalformedInput)
}
