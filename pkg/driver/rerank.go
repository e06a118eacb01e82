package driver

import (
	"sort"
	"strings"

	"github.com/soundprediction/mangagraph/pkg/types"
	"github.com/soundprediction/mangagraph/pkg/utils"
)

// Weights of the fulltext score and the edit-distance similarity in a
// ranked search.
const (
	FulltextWeight    = 0.5
	LevenshteinWeight = 0.5
)

// DefaultSearchLimit is used when a request carries no limit.
const DefaultSearchLimit = 50

// rankCandidate is a fulltext hit awaiting rerank.
type rankCandidate struct {
	ID    string
	Score float64
	Title string
}

// rerank combines each candidate's fulltext score with the edit-distance
// similarity of its title to query, drops candidates below threshold and
// returns at most limit of them, best first.
func rerank(candidates []rankCandidate, query string, threshold float64, limit int) []rankCandidate {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]rankCandidate, 0, len(candidates))
	for _, c := range candidates {
		sim := utils.LevenshteinSimilarity(strings.ToLower(c.Title), q)
		final := FulltextWeight*c.Score + LevenshteinWeight*sim
		if final < threshold {
			continue
		}
		c.Score = final
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SourceFor returns the source tag of results of base produced by
// provider. Memory results replace the neo4j qualifier.
func SourceFor(provider Provider, base string) string {
	if provider == ProviderMemory {
		return strings.Replace(base, "neo4j", types.MemorySourceQualifier, 1)
	}
	return base
}

// ModeSource returns the base source tag of a search mode.
func ModeSource(mode types.SearchMode) string {
	switch mode {
	case types.SearchModeRanked:
		return types.SourceRanked
	case types.SearchModeFulltext:
		return types.SourceFulltext
	case types.SearchModeSimple:
		return types.SourceSimple
	}
	return types.SourceGraphAssembler
}

func limitOr(limit, def int) int {
	if limit > 0 {
		return limit
	}
	return def
}
