package grouping

import (
	"regexp"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

var datePattern = regexp.MustCompile(`(\d{4})(?:\s*[-/.年]\s*(\d{1,2}))?(?:\s*[-/.月]\s*(\d{1,2}))?`)

// DateKey parses a full or partial publication date ("2001", "2000-9",
// "2005/03/01", "2001年4月") into a number that orders chronologically.
// Missing month or day count as zero. It reports false for values with no
// four-digit year, such as "unknown".
func DateKey(s string) (int, bool) {
	m := datePattern.FindStringSubmatch(norm.NFKC.String(s))
	if m == nil {
		return 0, false
	}
	year, _ := strconv.Atoi(m[1])
	month, day := 0, 0
	if m[2] != "" {
		month, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		day, _ = strconv.Atoi(m[3])
	}
	if month > 12 || day > 31 {
		month, day = 0, 0
	}
	return year*10000 + month*100 + day, true
}
