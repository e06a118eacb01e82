package catalog

import (
	"testing"

	"github.com/soundprediction/mangagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValues(t *testing.T) {
	n, ok := Int("全10巻")
	require.True(t, ok)
	assert.Equal(t, 10, n)

	n, ok = Int(float64(7))
	require.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = Int("unknown")
	assert.False(t, ok)

	assert.Equal(t, "12", String(float64(12)))
	assert.Equal(t, "1.5", String(1.5))
	assert.Equal(t, "", String(nil))
	assert.Equal(t, []string{"Action", "Drama"}, StringList([]any{"Action", " ", "Drama"}))
	assert.Equal(t, []string{"a", "b"}, StringList("a, b,"))
	assert.Nil(t, StringList(nil))
}

func TestNodeTypeOf(t *testing.T) {
	tests := []struct {
		labels []string
		want   types.NodeType
		ok     bool
	}{
		{[]string{"Work"}, types.NodeTypeWork, true},
		{[]string{"Publisher", "Magazine"}, types.NodeTypeMagazine, true},
		{[]string{"Author", "Work"}, types.NodeTypeWork, true},
		{[]string{"publisher"}, types.NodeTypePublisher, true},
		{[]string{"Genre"}, "", false},
	}
	for _, tt := range tests {
		got, ok := NodeTypeOf(tt.labels)
		assert.Equal(t, tt.ok, ok, tt.labels)
		assert.Equal(t, tt.want, got, tt.labels)
	}
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "One Piece", LabelFor(types.NodeTypeWork, map[string]any{"title_name": "One Piece", "title": "ワンピース"}))
	assert.Equal(t, "w1", LabelFor(types.NodeTypeWork, map[string]any{"id": "w1"}))
	assert.Equal(t, "Work", LabelFor(types.NodeTypeWork, nil))
	assert.Equal(t, "尾田栄一郎", LabelFor(types.NodeTypeAuthor, map[string]any{"name": "尾田栄一郎"}))
	assert.Equal(t, "Jump", LabelFor(types.NodeTypeMagazine, map[string]any{"title": "Jump"}))
}

func TestWorkFromProperties(t *testing.T) {
	w := WorkFromProperties("4:abc:1", map[string]any{
		"title":              "ワンピース 1",
		"volume":             "1",
		"total_volumes":      "全10巻",
		"published_from":     "1997-07",
		"genre":              []any{"Action", "Adventure"},
		"themes":             []any{"Pirates"},
		"members":            int64(1200),
		"isbn":               "978-4-08-872509-3",
		"embedding_title_ja": []any{0.1, 0.2},
		"nested":             map[string]any{"x": 1},
	}, 0.9)

	assert.Equal(t, "4:abc:1", w.ID)
	assert.Equal(t, "ワンピース 1", w.Title)
	assert.Equal(t, "1", w.VolumeLabel)
	assert.Equal(t, 10, w.TotalVolumes)
	assert.Equal(t, "1997-07", w.FirstPublished)
	assert.Equal(t, []string{"Action", "Adventure"}, w.Genres)
	assert.Equal(t, []string{"Pirates"}, w.Themes)
	assert.Equal(t, int64(1200), w.Members)
	assert.Equal(t, 0.9, w.RelevanceScore)
	assert.Equal(t, map[string]any{"isbn": "978-4-08-872509-3"}, w.Properties)

	w = WorkFromProperties("4:abc:2", map[string]any{"id": "w2", "title": "X", "genre": "Hentai"}, 0)
	assert.Equal(t, "w2", w.ID)
	assert.Equal(t, "Hentai", w.Genre)
	assert.True(t, w.HasTag("hentai"))
}

func TestFromResultSet(t *testing.T) {
	rs := &types.RawResultSet{
		Works: []types.RawNode{
			{ID: "e1", Labels: []string{"Work"}, Properties: map[string]any{"id": "w1", "title": "Foo 1"}, Score: 2},
			{ID: "e2", Labels: []string{"Work"}, Properties: map[string]any{"id": "w2", "title": "Bar"}},
		},
		Neighbors: []types.RawNode{
			{ID: "e1", Labels: []string{"Work"}, Properties: map[string]any{"id": "dup"}},
			{ID: "a1", Labels: []string{"Author"}, Properties: map[string]any{"name": "Author A"}},
			{ID: "m1", Labels: []string{"Magazine"}, Properties: map[string]any{"name": "Weekly X"}},
			{ID: "p1", Labels: []string{"Publisher"}, Properties: map[string]any{"name": "Pub P"}},
			{ID: "p2", Labels: []string{"Publisher"}, Properties: map[string]any{"name": "Pub Q"}},
		},
		Relationships: []types.RawEdge{
			{Source: "e1", Target: "a1", Type: "CREATED_BY"},
			{Source: "a1", Target: "e2", Type: "CREATED_BY"},
			{Source: "e1", Target: "m1", Type: "PUBLISHED_IN"},
			{Source: "m1", Target: "p1", Type: "PUBLISHED_BY"},
			{Source: "e2", Target: "p2", Type: "PUBLISHED_BY"},
			{Source: "e1", Target: "missing", Type: "CREATED_BY"},
		},
		Source: types.SourceRanked,
	}

	res := FromResultSet(rs)
	require.Len(t, res.Works, 2)

	foo := res.Works[0]
	assert.Equal(t, "w1", foo.ID)
	assert.Equal(t, "Foo 1", foo.Title)
	assert.Equal(t, 2.0, foo.RelevanceScore)
	assert.Equal(t, []string{"Author A"}, foo.Creators)
	assert.Equal(t, []string{"Weekly X"}, foo.Magazines)
	assert.Equal(t, []string{"Pub P"}, foo.Publishers)
	assert.Equal(t, types.SourceRanked, foo.Source)

	bar := res.Works[1]
	assert.Equal(t, []string{"Author A"}, bar.Creators)
	assert.Empty(t, bar.Magazines)
	assert.Equal(t, []string{"Pub Q"}, bar.Publishers)

	assert.Equal(t, types.MagazinePublishers{"Weekly X": {"Pub P"}}, res.Enrichment)
}

func TestFromResultSetNil(t *testing.T) {
	res := FromResultSet(nil)
	assert.Empty(t, res.Works)
	assert.NotNil(t, res.Enrichment)
}
