package types

// SearchRequest is one query issued by a search strategy.
type SearchRequest struct {
	Mode     SearchMode `json:"mode"`
	Text     string     `json:"text"`
	Language Language   `json:"language"`
	Limit    int        `json:"limit"`

	// Fulltext and ranked modes only
	IndexName      string  `json:"index_name,omitempty"`
	CandidateLimit int     `json:"candidate_limit,omitempty"`
	RankThreshold  float64 `json:"rank_threshold,omitempty"`

	IncludeAdult bool `json:"include_adult"`
}

// RelatedRequest asks the store for candidates related to an anchor work.
type RelatedRequest struct {
	Anchor WorkRecord `json:"anchor"`
	// Limit bounds the candidates fetched before scoring.
	Limit int `json:"limit"`
	// YearWindow widens the anchor's publication range for the
	// same-publisher relation.
	YearWindow   int  `json:"year_window"`
	IncludeAdult bool `json:"include_adult"`
}

// RelatedCandidate is a work found by a relation query, with the magazine
// and publisher through which it was reached when the relation goes through
// a venue.
type RelatedCandidate struct {
	Work      WorkRecord `json:"work"`
	Magazine  string     `json:"magazine,omitempty"`
	Publisher string     `json:"publisher,omitempty"`
}

// VectorRequest is a similarity search against a vector index.
type VectorRequest struct {
	Vector       []float32 `json:"-"`
	Property     string    `json:"property"`
	Limit        int       `json:"limit"`
	Threshold    float64   `json:"threshold"`
	IncludeAdult bool      `json:"include_adult"`
}

// MagazinePublishers maps a raw magazine name to the raw names of its
// publishers, in first-seen order.
type MagazinePublishers map[string][]string

// Add records that magazine is published by publisher.
func (m MagazinePublishers) Add(magazine, publisher string) {
	if magazine == "" || publisher == "" {
		return
	}
	for _, p := range m[magazine] {
		if p == publisher {
			return
		}
	}
	m[magazine] = append(m[magazine], publisher)
}

// Merge adds every pair of other to m.
func (m MagazinePublishers) Merge(other MagazinePublishers) {
	for magazine, publishers := range other {
		for _, p := range publishers {
			m.Add(magazine, p)
		}
	}
}

// Vector properties that SimilarWorks may search.
const (
	VectorPropertyTitleJa     = "embedding_title_ja"
	VectorPropertyTitleEn     = "embedding_title_en"
	VectorPropertyDescription = "embedding_description"
)

// VectorProperties lists the supported vector properties.
var VectorProperties = []string{VectorPropertyTitleJa, VectorPropertyTitleEn, VectorPropertyDescription}

// ValidateVectorProperty returns an UnsupportedVectorPropertyError unless
// property is one of VectorProperties.
func ValidateVectorProperty(property string) error {
	for _, p := range VectorProperties {
		if p == property {
			return nil
		}
	}
	return &UnsupportedVectorPropertyError{Property: property, Supported: VectorProperties}
}
