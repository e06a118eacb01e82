package types

import "fmt"

// SearchMode selects how the graph store matches a query.
type SearchMode string

const (
	// SearchModeRanked is fuzzy fulltext matching reranked by edit-distance
	// similarity to the query.
	SearchModeRanked SearchMode = "ranked"
	// SearchModeFulltext is fuzzy fulltext matching without rerank.
	SearchModeFulltext SearchMode = "fulltext"
	// SearchModeSimple is case-insensitive substring matching on title fields.
	SearchModeSimple SearchMode = "simple"
)

// Language selects which title fields a query is matched against.
type Language string

const (
	LanguageJapanese Language = "japanese"
	LanguageEnglish  Language = "english"
)

// ParseLanguage converts a configuration string to a Language.
func ParseLanguage(s string) (Language, error) {
	switch Language(s) {
	case LanguageJapanese, LanguageEnglish:
		return Language(s), nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// TitleFields returns the work properties a query in language l is matched
// against, most specific first.
func (l Language) TitleFields() []string {
	if l == LanguageJapanese {
		return []string{"japanese_name", "title_name", "title"}
	}
	return []string{"title_name", "title", "english_name"}
}

// RawNode is a node record as returned by the graph store.
type RawNode struct {
	ID         string         `json:"id" yaml:"id"`
	Labels     []string       `json:"labels" yaml:"labels"`
	Properties map[string]any `json:"properties" yaml:"properties"`
	// Score is the match score for work nodes returned by a search.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// RawEdge is a relationship record as returned by the graph store.
type RawEdge struct {
	ID         string         `json:"id" yaml:"id"`
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Type       string         `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Store relationship types.
const (
	RelCreatedBy   = "CREATED_BY"
	RelPublishedIn = "PUBLISHED_IN"
	RelPublishedBy = "PUBLISHED_BY"
)

// RawResultSet is the result of one store query: the matched work nodes,
// their direct neighbours and the relationships between them.
type RawResultSet struct {
	Works         []RawNode  `json:"work_nodes" yaml:"work_nodes"`
	Neighbors     []RawNode  `json:"neighbor_nodes" yaml:"neighbor_nodes"`
	Relationships []RawEdge  `json:"relationships" yaml:"relationships"`
	Mode          SearchMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Language      Language   `json:"language,omitempty" yaml:"language,omitempty"`
	// Source is the tag attached to records derived from this result.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// IsEmpty reports whether the result set contains no work nodes.
func (r *RawResultSet) IsEmpty() bool {
	return r == nil || len(r.Works) == 0
}
