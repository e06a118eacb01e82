package normalize

import "unicode"

// Script ranks the writing system of a name. When variants of one entity
// are seen, the display form with the highest rank is kept.
type Script int

const (
	ScriptUnknown Script = iota
	// ScriptSyllabicPrimary is hiragana.
	ScriptSyllabicPrimary
	// ScriptSyllabicSecondary is katakana.
	ScriptSyllabicSecondary
	// ScriptAlphabetic is latin.
	ScriptAlphabetic
	// ScriptIdeographic is han.
	ScriptIdeographic
)

func (s Script) String() string {
	switch s {
	case ScriptSyllabicPrimary:
		return "hiragana"
	case ScriptSyllabicSecondary:
		return "katakana"
	case ScriptAlphabetic:
		return "latin"
	case ScriptIdeographic:
		return "han"
	}
	return "unknown"
}

// ScriptOf returns the highest-ranked script among the letters of s.
func ScriptOf(s string) Script {
	best := ScriptUnknown
	for _, r := range s {
		if sc := runeScript(r); sc > best {
			best = sc
			if best == ScriptIdeographic {
				break
			}
		}
	}
	return best
}

func runeScript(r rune) Script {
	switch {
	case unicode.Is(unicode.Han, r):
		return ScriptIdeographic
	case unicode.Is(unicode.Latin, r):
		return ScriptAlphabetic
	case unicode.Is(unicode.Katakana, r):
		return ScriptSyllabicSecondary
	case unicode.Is(unicode.Hiragana, r):
		return ScriptSyllabicPrimary
	}
	return ScriptUnknown
}

// HasJapanese reports whether s contains han or kana runes.
func HasJapanese(s string) bool {
	for _, r := range s {
		switch runeScript(r) {
		case ScriptIdeographic, ScriptSyllabicSecondary, ScriptSyllabicPrimary:
			return true
		}
	}
	return false
}

// isKatakanaOnly reports whether every letter in s is katakana. The
// prolonged sound mark and middle dot are ignored.
func isKatakanaOnly(s string) bool {
	seen := false
	for _, r := range s {
		if r == 'ー' || r == '・' || unicode.IsSpace(r) {
			continue
		}
		if !unicode.Is(unicode.Katakana, r) {
			return false
		}
		seen = true
	}
	return seen
}

// foldKana maps katakana to the corresponding hiragana so that both
// syllabaries produce the same key.
func foldKana(r rune) rune {
	if r >= 'ァ' && r <= 'ヶ' {
		return r - 0x60
	}
	return r
}
