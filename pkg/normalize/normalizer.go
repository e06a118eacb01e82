package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Kind is the entity category a name belongs to. It is part of the
// canonical id, so an author and a publisher with the same name never share
// an id.
type Kind string

const (
	KindAuthor    Kind = "author"
	KindPublisher Kind = "publisher"
	KindMagazine  Kind = "magazine"
)

// Entity is a canonicalized entity name.
type Entity struct {
	ID      string `json:"id"`
	Display string `json:"display"`
	Kind    Kind   `json:"kind"`
	Script  Script `json:"script"`
}

// maxMiddleDotPart is the longest part, in runes, that a middle-dot split
// may produce. Longer parts are treated as one name.
const maxMiddleDotPart = 8

var (
	roleAnnotation    = regexp.MustCompile(`\[+[^\]]*\]+`)
	cornerAnnotation  = regexp.MustCompile(`【[^】]*】`)
	readingAnnotation = regexp.MustCompile(`\s*[∥‖].*$`)
	leadingRole       = regexp.MustCompile(`^\s*(\[+[^\]]*\]+)`)
	conjunction       = regexp.MustCompile(`[,;、，；]`)
	whitespace        = regexp.MustCompile(`\s+`)

	companyMarkers = []string{"編集部", "出版", "社", "プロダクション", "スタジオ"}
)

// DisplayName returns the cleaned display form of a raw name: width-folded,
// without role annotations or a trailing reading, with whitespace
// collapsed. Applying it twice gives the same result.
func DisplayName(raw string) string {
	s := norm.NFKC.String(raw)
	s = roleAnnotation.ReplaceAllString(s, "")
	s = cornerAnnotation.ReplaceAllString(s, "")
	s = readingAnnotation.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Key returns the comparison key of a raw name. Two names denote the same
// entity iff their keys are equal.
func Key(raw string) string {
	display := DisplayName(raw)
	var b strings.Builder
	b.Grow(len(display))
	for _, r := range display {
		b.WriteRune(foldKana(unicode.ToLower(r)))
	}
	return b.String()
}

// CanonicalID returns the stable id for a raw name of the given kind, or ""
// when the name is empty after cleaning.
func CanonicalID(kind Kind, raw string) string {
	key := Key(raw)
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s_%016x", kind, xxhash.Sum64String(key))
}

// Normalizer canonicalizes entity names and records the preferred display
// form of every id in its Registry.
type Normalizer struct {
	registry *Registry
}

// New creates a Normalizer backed by registry. A nil registry gets a fresh
// one.
func New(registry *Registry) *Normalizer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Normalizer{registry: registry}
}

// Registry returns the registry the normalizer writes to.
func (n *Normalizer) Registry() *Registry {
	return n.registry
}

// Normalize canonicalizes a single name. It reports false when nothing is
// left of the name after cleaning. The returned display form is the one
// held by the registry, which may come from an earlier variant.
func (n *Normalizer) Normalize(kind Kind, raw string) (Entity, bool) {
	display := DisplayName(raw)
	if display == "" {
		return Entity{}, false
	}
	e := Entity{
		ID:      CanonicalID(kind, display),
		Display: display,
		Kind:    kind,
		Script:  ScriptOf(display),
	}
	return n.registry.Resolve(e), true
}

// Split separates co-listed names and normalizes each. A role annotation
// on the first name applies to the whole list and is dropped with it.
// Duplicates are removed, keeping the first occurrence.
func (n *Normalizer) Split(kind Kind, raw string) []Entity {
	var out []Entity
	seen := make(map[string]bool)
	for _, name := range SplitNames(raw) {
		e, ok := n.Normalize(kind, name)
		if !ok || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	return out
}

// SplitNames splits a raw credit string into individual raw names. Commas,
// semicolons and the ideographic comma always separate names. A middle dot
// separates names only when every part is short, none looks like a company
// and the whole string is not a katakana transliteration of a single
// foreign name.
func SplitNames(raw string) []string {
	s := norm.NFKC.String(raw)
	role := ""
	if m := leadingRole.FindStringSubmatch(s); m != nil {
		role = m[1]
		s = s[len(m[0]):]
	}

	var names []string
	for _, part := range conjunction.Split(s, -1) {
		for _, name := range splitMiddleDot(part) {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if role != "" && !leadingRole.MatchString(name) {
				name = role + name
			}
			names = append(names, name)
		}
	}
	return names
}

func splitMiddleDot(part string) []string {
	if !strings.Contains(part, "・") {
		return []string{part}
	}
	if isKatakanaOnly(DisplayName(part)) {
		return []string{part}
	}
	pieces := strings.Split(part, "・")
	for _, p := range pieces {
		clean := DisplayName(p)
		if clean == "" || utf8.RuneCountInString(clean) > maxMiddleDotPart {
			return []string{part}
		}
		for _, marker := range companyMarkers {
			if strings.Contains(clean, marker) {
				return []string{part}
			}
		}
	}
	return pieces
}
