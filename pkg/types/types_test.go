package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkRecord_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		w := &WorkRecord{ID: "w1", Title: "ONE PIECE"}
		assert.NoError(t, w.Validate())
	})
	t.Run("missing id", func(t *testing.T) {
		w := &WorkRecord{Title: "ONE PIECE"}
		assert.ErrorIs(t, w.Validate(), ErrEmptyID)
	})
	t.Run("blank title", func(t *testing.T) {
		w := &WorkRecord{ID: "w1", Title: "  "}
		assert.ErrorIs(t, w.Validate(), ErrEmptyTitle)
	})
}

func TestWorkRecord_HasTag(t *testing.T) {
	w := &WorkRecord{Genres: []string{"Action", " Hentai "}, Themes: []string{"School"}}
	assert.True(t, w.HasTag("hentai"))
	assert.True(t, w.HasTag("school"))
	assert.False(t, w.HasTag("romance"))
}

func TestWorkRecord_Clone(t *testing.T) {
	orig := WorkRecord{
		ID:         "w1",
		Creators:   []string{"a"},
		Score:      &RelationScore{Base: 500},
		Properties: map[string]any{"k": 1},
	}
	c := orig.Clone()
	c.Creators[0] = "b"
	c.Score.Base = 1000
	c.Properties["k"] = 2

	assert.Equal(t, "a", orig.Creators[0])
	assert.Equal(t, 500.0, orig.Score.Base)
	assert.Equal(t, 1, orig.Properties["k"])
}

func TestEnums(t *testing.T) {
	for _, nt := range []NodeType{NodeTypeWork, NodeTypeAuthor, NodeTypeMagazine, NodeTypePublisher} {
		assert.True(t, nt.IsValid(), nt)
	}
	assert.False(t, NodeType("series").IsValid())

	for _, et := range []EdgeType{EdgeTypeCreated, EdgeTypePublished, EdgeTypePublishedBy} {
		assert.True(t, et.IsValid(), et)
	}
	assert.False(t, EdgeType("contains").IsValid())

	lang, err := ParseLanguage("japanese")
	require.NoError(t, err)
	assert.Equal(t, LanguageJapanese, lang)
	_, err = ParseLanguage("klingon")
	assert.Error(t, err)

	assert.Equal(t, "japanese_name", LanguageJapanese.TitleFields()[0])
	assert.Contains(t, LanguageEnglish.TitleFields(), "english_name")
}

func TestErrorTaxonomy(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		err := fmt.Errorf("search: %w", NewStoreError("Search", errors.New("connection refused")))
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.True(t, IsHardFailure(context.Background(), err))

		var se *StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "Search", se.Op)
	})

	t.Run("strategy error", func(t *testing.T) {
		err := &StrategyError{Mode: SearchModeRanked, Language: LanguageEnglish, Err: errors.New("no apoc")}
		assert.ErrorIs(t, err, ErrStrategyFailed)
		assert.False(t, IsHardFailure(context.Background(), err))
		assert.Contains(t, err.Error(), "ranked")
	})

	t.Run("cancelled context is hard", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.True(t, IsHardFailure(ctx, errors.New("anything")))
		assert.False(t, IsHardFailure(ctx, nil))
	})

	t.Run("unsupported vector property", func(t *testing.T) {
		err := &UnsupportedVectorPropertyError{Property: "embedding", Supported: []string{"embedding_title_ja"}}
		assert.ErrorIs(t, err, ErrUnsupportedVectorProperty)
	})
}

func TestGraphHelpers(t *testing.T) {
	score := 3.0
	g := &Graph{Nodes: []GraphNode{
		{ID: "w1", Type: NodeTypeWork, RelevanceScore: &score},
		{ID: "a1", Type: NodeTypeAuthor},
	}}
	require.NotNil(t, g.NodeByID("w1"))
	assert.Equal(t, 3.0, g.NodeByID("w1").Score())
	assert.Equal(t, 0.0, g.NodeByID("a1").Score())
	assert.Nil(t, g.NodeByID("missing"))
	assert.Len(t, g.NodesOfType(NodeTypeAuthor), 1)

	e := GraphEdge{Source: "a1", Target: "w1", Type: EdgeTypeCreated}
	assert.Equal(t, EdgeKey{"a1", "w1", EdgeTypeCreated}, e.Key())
	assert.Equal(t, SourceSameAuthor, RelationSource(RelationSameAuthor))
}

func TestValidateVectorProperty(t *testing.T) {
	for _, p := range VectorProperties {
		assert.NoError(t, ValidateVectorProperty(p))
	}
	err := ValidateVectorProperty("embedding_cover")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedVectorProperty)
	var upe *UnsupportedVectorPropertyError
	require.ErrorAs(t, err, &upe)
	assert.Equal(t, "embedding_cover", upe.Property)
}
