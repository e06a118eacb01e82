package grouping

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Unparsed is returned by ParseVolume when a label carries no numeral.
const Unparsed = -1

var (
	asciiDigits = regexp.MustCompile(`\d+`)
	kanjiDigits = regexp.MustCompile(`[〇一二三四五六七八九十百]+`)

	kanjiValue = map[rune]int{
		'〇': 0, '一': 1, '二': 2, '三': 3, '四': 4,
		'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
	}
)

// ParseVolume extracts the volume numeral from a label such as "3",
// "vol. 12", "第３巻" or "第十二巻". It returns Unparsed when the label has
// no numeral, so callers can tell "volume 1" from "no volume info".
func ParseVolume(label string) int {
	s := strings.TrimSpace(norm.NFKC.String(label))
	if s == "" {
		return Unparsed
	}
	if m := asciiDigits.FindString(s); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil {
			return Unparsed
		}
		return n
	}
	if m := kanjiDigits.FindString(s); m != "" {
		if n, ok := parseKanjiNumber(m); ok {
			return n
		}
	}
	return Unparsed
}

func parseKanjiNumber(s string) (int, bool) {
	total, cur := 0, 0
	for _, r := range s {
		switch r {
		case '百':
			if cur == 0 {
				cur = 1
			}
			total += cur * 100
			cur = 0
		case '十':
			if cur == 0 {
				cur = 1
			}
			total += cur * 10
			cur = 0
		default:
			d, ok := kanjiValue[r]
			if !ok {
				return 0, false
			}
			cur = cur*10 + d
		}
	}
	return total + cur, true
}

// Volume markers and edition suffixes, stripped in this order, once each.
// The bare trailing numeral comes after the marked forms so that "vol. 12"
// is removed whole.
var baseTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*\bvol(?:ume)?\.?\s*[0-9０-９]+$`),
	regexp.MustCompile(`\s*第\s*[0-9０-９〇一二三四五六七八九十百]+\s*巻?$`),
	regexp.MustCompile(`\s*巻\s*[0-9０-９]+$`),
	regexp.MustCompile(`\s*その\s*[0-9０-９]+$`),
	regexp.MustCompile(`\s*[(（]\s*[0-9０-９]+\s*[)）]$`),
	regexp.MustCompile(`\s*[0-9０-９]+$`),
	regexp.MustCompile(`\s*メガ盛り.*$`),
	regexp.MustCompile(`\s*完全版.*$`),
	regexp.MustCompile(`\s*新装版.*$`),
	regexp.MustCompile(`\s*愛蔵版.*$`),
	regexp.MustCompile(`\s*文庫版.*$`),
}

// BaseTitle strips trailing volume markers and edition suffixes from a
// title. A title made only of markers is returned unchanged.
func BaseTitle(title string) string {
	base := strings.TrimSpace(title)
	if base == "" {
		return base
	}
	for _, p := range baseTitlePatterns {
		base = p.ReplaceAllString(base, "")
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return strings.TrimSpace(title)
	}
	return base
}
