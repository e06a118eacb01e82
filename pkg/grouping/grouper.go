package grouping

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/soundprediction/mangagraph/pkg/types"
)

// DefaultPrefixTolerance is the largest difference in length, in runes,
// between two base titles that may still be merged by prefix or suffix
// match.
const DefaultPrefixTolerance = 10

// Config controls series consolidation.
type Config struct {
	// PrefixTolerance bounds fuzzy merging of base titles. Zero disables it,
	// leaving only exact base-title and series-id grouping.
	PrefixTolerance int `json:"prefix_tolerance" mapstructure:"prefix_tolerance"`
}

// DefaultConfig returns the default grouping configuration.
func DefaultConfig() Config {
	return Config{PrefixTolerance: DefaultPrefixTolerance}
}

// Grouper consolidates per-volume work records into series-level records.
type Grouper struct {
	config Config
	logger *slog.Logger
}

// NewGrouper creates a Grouper.
func NewGrouper(config Config, logger *slog.Logger) *Grouper {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PrefixTolerance < 0 {
		config.PrefixTolerance = 0
	}
	return &Grouper{config: config, logger: logger}
}

type group struct {
	name    string
	members []types.WorkRecord
}

type registeredName struct {
	name  string
	lower string
	group *group
}

// Group consolidates records. Output order follows the first appearance of
// each group in the input.
func (g *Grouper) Group(records []types.WorkRecord) []types.WorkRecord {
	var (
		groups   []*group
		names    []registeredName
		bySeries = make(map[string]*group)
	)

	register := func(name string) *group {
		grp := &group{name: name}
		groups = append(groups, grp)
		names = append(names, registeredName{name: name, lower: strings.ToLower(name), group: grp})
		return grp
	}

	for _, rec := range records {
		var grp *group
		if rec.SeriesID != "" {
			name := strings.TrimSpace(rec.SeriesName)
			if name == "" {
				name = BaseTitle(rec.Title)
			}
			grp = bySeries[rec.SeriesID]
			if grp == nil {
				grp = exactMatch(names, name)
			}
			if grp == nil {
				grp = register(name)
			}
			bySeries[rec.SeriesID] = grp
		} else {
			base := BaseTitle(rec.Title)
			grp = exactMatch(names, base)
			if grp == nil {
				grp = g.fuzzyMatch(names, base)
			}
			if grp == nil {
				grp = register(base)
			}
		}
		grp.members = append(grp.members, rec)
	}

	out := make([]types.WorkRecord, 0, len(groups))
	for _, grp := range groups {
		out = append(out, g.consolidate(grp))
	}
	return out
}

func exactMatch(names []registeredName, name string) *group {
	lower := strings.ToLower(name)
	for _, n := range names {
		if n.lower == lower {
			return n.group
		}
	}
	return nil
}

// fuzzyMatch finds a registered base title that base extends or is
// extended by, at either end, within the configured tolerance.
func (g *Grouper) fuzzyMatch(names []registeredName, base string) *group {
	if g.config.PrefixTolerance == 0 || base == "" {
		return nil
	}
	lower := strings.ToLower(base)
	baseLen := utf8.RuneCountInString(lower)
	for _, n := range names {
		if n.lower == "" {
			continue
		}
		diff := baseLen - utf8.RuneCountInString(n.lower)
		if diff < 0 {
			diff = -diff
		}
		if diff > g.config.PrefixTolerance {
			continue
		}
		if strings.HasPrefix(lower, n.lower) || strings.HasPrefix(n.lower, lower) ||
			strings.HasSuffix(lower, n.lower) || strings.HasSuffix(n.lower, lower) {
			g.logger.Debug("Merged base title by affix match", "base_title", base, "group", n.name)
			return n.group
		}
	}
	return nil
}

func (g *Grouper) consolidate(grp *group) types.WorkRecord {
	if len(grp.members) == 1 {
		rec := grp.members[0].Clone()
		rec.IsSeries = false
		rec.WorkCount = 1
		if rec.TotalVolumes < 1 {
			rec.TotalVolumes = 1
		}
		return rec
	}

	rep := grp.members[representative(grp.members)]
	out := rep.Clone()
	out.Title = BaseTitle(rep.Title)
	if out.Title == "" {
		out.Title = grp.name
	}
	out.IsSeries = true
	out.WorkCount = len(grp.members)
	out.VolumeLabel = "1"
	if out.SeriesName == "" && out.SeriesID != "" {
		out.SeriesName = grp.name
	}

	total := len(grp.members)
	firstKey, lastKey := 0, 0
	var creators, publishers, magazines, demographics, themes, genres orderedSet
	out.FirstPublished, out.LastPublished = "", ""
	for _, m := range grp.members {
		if m.TotalVolumes > total {
			total = m.TotalVolumes
		}
		if m.RelevanceScore > out.RelevanceScore {
			out.RelevanceScore = m.RelevanceScore
		}
		if m.Members > out.Members {
			out.Members = m.Members
		}
		if k, ok := DateKey(m.FirstPublished); ok && (out.FirstPublished == "" || k < firstKey) {
			out.FirstPublished, firstKey = m.FirstPublished, k
		}
		if k, ok := DateKey(m.LastPublished); ok && (out.LastPublished == "" || k > lastKey) {
			out.LastPublished, lastKey = m.LastPublished, k
		}
		creators.add(m.Creators...)
		publishers.add(m.Publishers...)
		magazines.add(m.Magazines...)
		demographics.add(m.Demographics...)
		themes.add(m.Themes...)
		genres.add(m.Genres...)
	}
	out.TotalVolumes = total
	out.Creators = creators.items
	out.Publishers = publishers.items
	out.Magazines = magazines.items
	out.Demographics = demographics.items
	out.Themes = themes.items
	out.Genres = genres.items

	g.logger.Debug("Consolidated series",
		"title", out.Title,
		"representative", rep.ID,
		"work_count", out.WorkCount,
		"total_volumes", out.TotalVolumes)
	return out
}

// representative returns the index of the member that stands for the
// group: volume 1, else the smallest volume numeral, else the earliest
// first publication date, else the first in input order.
func representative(members []types.WorkRecord) int {
	best := 0
	for i := 1; i < len(members); i++ {
		if preferred(members[i], members[best]) {
			best = i
		}
	}
	return best
}

func preferred(a, b types.WorkRecord) bool {
	va, vb := ParseVolume(a.VolumeLabel), ParseVolume(b.VolumeLabel)
	if (va == 1) != (vb == 1) {
		return va == 1
	}
	if (va != Unparsed) != (vb != Unparsed) {
		return va != Unparsed
	}
	if va != Unparsed && va != vb {
		return va < vb
	}
	da, okA := DateKey(a.FirstPublished)
	db, okB := DateKey(b.FirstPublished)
	if okA != okB {
		return okA
	}
	return okA && da < db
}

type orderedSet struct {
	items []string
	seen  map[string]bool
}

func (s *orderedSet) add(values ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, v := range values {
		if v == "" || s.seen[v] {
			continue
		}
		s.seen[v] = true
		s.items = append(s.items, v)
	}
}
