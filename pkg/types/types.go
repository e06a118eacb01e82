package types

import (
	"errors"
	"strings"
)

// Validation errors
var (
	ErrEmptyID      = errors.New("id cannot be empty")
	ErrEmptyTitle   = errors.New("title cannot be empty")
	ErrInvalidLimit = errors.New("limit must not be negative")
)

// WorkRecord is one physical volume or a series-level aggregate of volumes.
type WorkRecord struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	VolumeLabel    string   `json:"volume,omitempty" yaml:"volume,omitempty"`
	FirstPublished string   `json:"first_published,omitempty" yaml:"first_published,omitempty"`
	LastPublished  string   `json:"last_published,omitempty" yaml:"last_published,omitempty"`
	TotalVolumes   int      `json:"total_volumes" yaml:"total_volumes"`
	Creators       []string `json:"creators,omitempty" yaml:"creators,omitempty"`
	Publishers     []string `json:"publishers,omitempty" yaml:"publishers,omitempty"`
	Magazines      []string `json:"magazines,omitempty" yaml:"magazines,omitempty"`
	Genre          string   `json:"genre,omitempty" yaml:"genre,omitempty"`
	IsSeries       bool     `json:"is_series" yaml:"is_series"`
	WorkCount      int      `json:"work_count" yaml:"work_count"`
	RelevanceScore float64  `json:"relevance_score" yaml:"relevance_score"`

	// Series membership as recorded by the catalog
	SeriesID   string `json:"series_id,omitempty" yaml:"series_id,omitempty"`
	SeriesName string `json:"series_name,omitempty" yaml:"series_name,omitempty"`

	// Taxonomy tags
	Demographics []string `json:"demographics,omitempty" yaml:"demographics,omitempty"`
	Themes       []string `json:"themes,omitempty" yaml:"themes,omitempty"`
	Genres       []string `json:"genres,omitempty" yaml:"genres,omitempty"`

	Members int64 `json:"members,omitempty" yaml:"members,omitempty"`

	// Source is the tag of the subsystem that produced the record.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	// Relation is set on records discovered by related-work expansion.
	Relation RelationType `json:"relation,omitempty" yaml:"relation,omitempty"`
	// Score carries the relation tie-break values for related records.
	Score *RelationScore `json:"score,omitempty" yaml:"score,omitempty"`

	// Properties holds printable store properties not mapped to a field.
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Validate checks if the WorkRecord has the fields required to build a node.
func (w *WorkRecord) Validate() error {
	if w.ID == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(w.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// HasTag reports whether any of the record's genre, theme or demographic
// tags equals tag, ignoring case.
func (w *WorkRecord) HasTag(tag string) bool {
	for _, list := range [][]string{w.Genres, w.Themes, w.Demographics} {
		for _, t := range list {
			if strings.EqualFold(strings.TrimSpace(t), tag) {
				return true
			}
		}
	}
	return strings.EqualFold(strings.TrimSpace(w.Genre), tag)
}

// Clone returns a deep copy of the record's slices and maps.
func (w WorkRecord) Clone() WorkRecord {
	c := w
	c.Creators = append([]string(nil), w.Creators...)
	c.Publishers = append([]string(nil), w.Publishers...)
	c.Magazines = append([]string(nil), w.Magazines...)
	c.Demographics = append([]string(nil), w.Demographics...)
	c.Themes = append([]string(nil), w.Themes...)
	c.Genres = append([]string(nil), w.Genres...)
	if w.Score != nil {
		s := *w.Score
		c.Score = &s
	}
	if w.Properties != nil {
		c.Properties = make(map[string]any, len(w.Properties))
		for k, v := range w.Properties {
			c.Properties[k] = v
		}
	}
	return c
}

// RelationType identifies the relation class that linked a related work to
// its anchor.
type RelationType string

const (
	// RelationSameAuthor links works sharing at least one creator.
	RelationSameAuthor RelationType = "same_author"
	// RelationSameMagazinePeriod links works serialized in the same magazine
	// during overlapping years.
	RelationSameMagazinePeriod RelationType = "same_magazine_period"
	// RelationSamePublisherOtherMagazine links works of the same publisher
	// serialized in a different magazine around the same time.
	RelationSamePublisherOtherMagazine RelationType = "same_publisher_other_magazine"
)

// RelationScore is the score of a related work along with the values used to
// order candidates within its relation class.
type RelationScore struct {
	Base         float64 `json:"base" yaml:"base"`
	DemoScore    int     `json:"demo_score" yaml:"demo_score"`
	ThemesScore  int     `json:"themes_score" yaml:"themes_score"`
	ThemesRatio  float64 `json:"themes_ratio" yaml:"themes_ratio"`
	Jaccard      float64 `json:"jaccard_similarity" yaml:"jaccard_similarity"`
	OverlapYears int     `json:"overlap_years" yaml:"overlap_years"`
	Gap          int     `json:"period_gap" yaml:"period_gap"`
}

// Source tags attached to every node and edge of a result graph.
const (
	SourceRanked          = "neo4j-ranked"
	SourceFulltext        = "neo4j-fulltext"
	SourceSimple          = "neo4j-simple"
	SourceVector          = "neo4j-vector"
	SourceSubgraph        = "neo4j-subgraph"
	SourceSameAuthor      = "related-same-author"
	SourceSameMagazine    = "related-same-magazine-period"
	SourceSamePublisher   = "related-same-publisher-other-magazine"
	SourceGraphAssembler  = "graph-assembler"
	MemorySourceQualifier = "memory"
)

// RelationSource returns the source tag for works found through relation r.
func RelationSource(r RelationType) string {
	switch r {
	case RelationSameAuthor:
		return SourceSameAuthor
	case RelationSameMagazinePeriod:
		return SourceSameMagazine
	case RelationSamePublisherOtherMagazine:
		return SourceSamePublisher
	}
	return SourceGraphAssembler
}
