package related

import (
	"sort"
	"strings"
	"time"

	"github.com/soundprediction/mangagraph/pkg/normalize"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// Base scores per relation class.
const (
	SameMagazineBaseScore  = 1000.0
	SameAuthorBaseScore    = 500.0
	SamePublisherBaseScore = 300.0
)

// Default caps and window.
const (
	DefaultSameAuthorLimit    = 5
	DefaultSameMagazineLimit  = 50
	DefaultSamePublisherLimit = 5
	DefaultYearWindow         = 2
	DefaultCandidatePool      = 100
)

// Config holds the caps and window of related-work discovery.
type Config struct {
	SameAuthorLimit    int `json:"same_author_limit" mapstructure:"same_author_limit"`
	SameMagazineLimit  int `json:"same_magazine_limit" mapstructure:"same_magazine_limit"`
	SamePublisherLimit int `json:"same_publisher_limit" mapstructure:"same_publisher_limit"`
	// YearWindow widens the anchor's range for the same-publisher relation.
	YearWindow int `json:"same_publisher_year_window" mapstructure:"same_publisher_year_window"`
	// CandidatePool bounds the candidates fetched per relation before
	// scoring and capping.
	CandidatePool int `json:"candidate_pool" mapstructure:"candidate_pool"`
}

// DefaultConfig returns the default related-work configuration.
func DefaultConfig() Config {
	return Config{
		SameAuthorLimit:    DefaultSameAuthorLimit,
		SameMagazineLimit:  DefaultSameMagazineLimit,
		SamePublisherLimit: DefaultSamePublisherLimit,
		YearWindow:         DefaultYearWindow,
		CandidatePool:      DefaultCandidatePool,
	}
}

// Scorer scores and ranks candidate works against an anchor work.
type Scorer struct {
	config     Config
	normalizer *normalize.Normalizer
	now        func() time.Time
}

// NewScorer creates a Scorer. Names are compared through normalizer; a nil
// normalizer gets a private one.
func NewScorer(config Config, normalizer *normalize.Normalizer) *Scorer {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	return &Scorer{config: config, normalizer: normalizer, now: time.Now}
}

// WithClock sets the clock used to close open-ended year ranges.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.config
}

// Range returns the publication year range of w.
func (s *Scorer) Range(w types.WorkRecord) YearRange {
	return ParseYearRange(w.FirstPublished, w.LastPublished, s.now())
}

// Score computes the score of candidate relative to anchor for relation.
func (s *Scorer) Score(anchor, candidate types.WorkRecord, relation types.RelationType) types.RelationScore {
	a, c := s.Range(anchor), s.Range(candidate)
	themes := overlap(anchor.Themes, candidate.Themes)
	score := types.RelationScore{
		Base:         baseScore(relation),
		DemoScore:    demographicMatch(anchor.Demographics, candidate.Demographics),
		ThemesScore:  themes,
		Jaccard:      Jaccard(a, c),
		OverlapYears: OverlapYears(a, c),
		Gap:          Gap(a, c),
	}
	if n := len(distinct(anchor.Themes)); n > 0 {
		score.ThemesRatio = float64(themes) / float64(n)
	}
	return score
}

func baseScore(relation types.RelationType) float64 {
	switch relation {
	case types.RelationSameMagazinePeriod:
		return SameMagazineBaseScore
	case types.RelationSameAuthor:
		return SameAuthorBaseScore
	case types.RelationSamePublisherOtherMagazine:
		return SamePublisherBaseScore
	}
	return 0
}

// Rank filters candidates for relation, orders them by the relation's
// tie-break keys and caps them. Returned records carry their score, relation
// and source tag.
func (s *Scorer) Rank(anchor types.WorkRecord, candidates []types.WorkRecord, relation types.RelationType) []types.WorkRecord {
	anchorRange := s.Range(anchor)
	anchorCreators := s.ids(normalize.KindAuthor, anchor.Creators, true)
	anchorMagazines := s.ids(normalize.KindMagazine, anchor.Magazines, false)
	window := anchorRange.Expand(s.config.YearWindow)

	seen := make(map[string]bool)
	var ranked []types.WorkRecord
	for _, cand := range candidates {
		if cand.ID == "" || cand.ID == anchor.ID || seen[cand.ID] {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(cand.Title), strings.TrimSpace(anchor.Title)) {
			continue
		}
		candRange := s.Range(cand)

		switch relation {
		case types.RelationSameAuthor:
			if len(cand.Creators) > 0 && len(anchorCreators) > 0 && !intersects(anchorCreators, s.ids(normalize.KindAuthor, cand.Creators, true)) {
				continue
			}
		case types.RelationSameMagazinePeriod:
			if anchorRange.Valid && candRange.Valid && OverlapYears(anchorRange, candRange) == 0 {
				continue
			}
		case types.RelationSamePublisherOtherMagazine:
			if intersects(anchorMagazines, s.ids(normalize.KindMagazine, cand.Magazines, false)) {
				continue
			}
			if OverlapYears(window, candRange) == 0 {
				continue
			}
		default:
			continue
		}

		seen[cand.ID] = true
		rec := cand.Clone()
		score := s.Score(anchor, cand, relation)
		rec.Score = &score
		rec.RelevanceScore = score.Base
		rec.Relation = relation
		rec.Source = types.RelationSource(relation)
		ranked = append(ranked, rec)
	}

	switch relation {
	case types.RelationSameMagazinePeriod:
		sort.SliceStable(ranked, func(i, j int) bool {
			a, b := ranked[i].Score, ranked[j].Score
			if a.DemoScore != b.DemoScore {
				return a.DemoScore > b.DemoScore
			}
			if a.ThemesScore != b.ThemesScore {
				return a.ThemesScore > b.ThemesScore
			}
			if a.ThemesRatio != b.ThemesRatio {
				return a.ThemesRatio > b.ThemesRatio
			}
			return a.Jaccard > b.Jaccard
		})
	case types.RelationSamePublisherOtherMagazine:
		sort.SliceStable(ranked, func(i, j int) bool {
			a, b := ranked[i].Score, ranked[j].Score
			if a.OverlapYears != b.OverlapYears {
				return a.OverlapYears > b.OverlapYears
			}
			if a.Gap != b.Gap {
				return a.Gap < b.Gap
			}
			return a.Jaccard > b.Jaccard
		})
	}

	if limit := s.limit(relation); limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (s *Scorer) limit(relation types.RelationType) int {
	switch relation {
	case types.RelationSameAuthor:
		return s.config.SameAuthorLimit
	case types.RelationSameMagazinePeriod:
		return s.config.SameMagazineLimit
	case types.RelationSamePublisherOtherMagazine:
		return s.config.SamePublisherLimit
	}
	return 0
}

// Merge combines ranked relation classes into one list. A work found by
// several classes keeps its highest score. The result is ordered by score,
// keeping class and rank order among equal scores, and truncated to limit
// when limit is positive.
func Merge(limit int, classes ...[]types.WorkRecord) []types.WorkRecord {
	var merged []types.WorkRecord
	index := make(map[string]int)
	for _, class := range classes {
		for _, rec := range class {
			if i, ok := index[rec.ID]; ok {
				if rec.RelevanceScore > merged[i].RelevanceScore {
					merged[i] = rec
				}
				continue
			}
			index[rec.ID] = len(merged)
			merged = append(merged, rec)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// SelectAnchor picks the work related-work discovery starts from: the one
// with the most magazines, else the first.
func SelectAnchor(works []types.WorkRecord) (types.WorkRecord, bool) {
	if len(works) == 0 {
		return types.WorkRecord{}, false
	}
	best := 0
	for i := 1; i < len(works); i++ {
		if len(works[i].Magazines) > len(works[best].Magazines) {
			best = i
		}
	}
	return works[best], true
}

func (s *Scorer) ids(kind normalize.Kind, names []string, split bool) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, name := range names {
		if split {
			for _, e := range s.normalizer.Split(kind, name) {
				out[e.ID] = true
			}
			continue
		}
		if e, ok := s.normalizer.Normalize(kind, name); ok {
			out[e.ID] = true
		}
	}
	return out
}

func intersects(a, b map[string]bool) bool {
	for k := range b {
		if a[k] {
			return true
		}
	}
	return false
}

// demographicMatch is 2 for equal non-empty tag sets, 1 for a partial
// overlap and 0 otherwise.
func demographicMatch(anchor, candidate []string) int {
	a, c := distinct(anchor), distinct(candidate)
	if len(a) == 0 || len(c) == 0 {
		return 0
	}
	shared := 0
	for tag := range c {
		if a[tag] {
			shared++
		}
	}
	switch {
	case shared == 0:
		return 0
	case shared == len(a) && shared == len(c):
		return 2
	}
	return 1
}

func overlap(anchor, candidate []string) int {
	a, c := distinct(anchor), distinct(candidate)
	n := 0
	for tag := range c {
		if a[tag] {
			n++
		}
	}
	return n
}

func distinct(tags []string) map[string]bool {
	out := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out[t] = true
		}
	}
	return out
}
