package related

import (
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/unicode/norm"
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// YearRange is an inclusive range of publication years. A range whose
// start could not be parsed is invalid and never overlaps anything.
type YearRange struct {
	Start int
	End   int
	Valid bool
}

// ParseYear returns the first four-digit year in s.
func ParseYear(s string) (int, bool) {
	m := yearPattern.FindString(norm.NFKC.String(s))
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// ParseYearRange builds the publication range of a work from its first and
// last publication dates. A missing start falls back to the last date. An
// open or unparseable end defaults to the current year.
func ParseYearRange(first, last string, now time.Time) YearRange {
	start, ok := ParseYear(first)
	if !ok {
		start, ok = ParseYear(last)
	}
	if !ok {
		return YearRange{}
	}
	end, ok := ParseYear(last)
	if !ok {
		end = now.Year()
	}
	if end < start {
		end = start
	}
	return YearRange{Start: start, End: end, Valid: true}
}

// Len returns the number of years in the range.
func (r YearRange) Len() int {
	if !r.Valid {
		return 0
	}
	return r.End - r.Start + 1
}

// Expand widens the range by window years at both ends.
func (r YearRange) Expand(window int) YearRange {
	if !r.Valid {
		return r
	}
	return YearRange{Start: r.Start - window, End: r.End + window, Valid: true}
}

// OverlapYears returns the number of years shared by a and b.
func OverlapYears(a, b YearRange) int {
	if !a.Valid || !b.Valid {
		return 0
	}
	overlap := min(a.End, b.End) - max(a.Start, b.Start) + 1
	if overlap < 0 {
		return 0
	}
	return overlap
}

// Jaccard returns the overlap of a and b divided by their union, or 0 when
// either range is invalid.
func Jaccard(a, b YearRange) float64 {
	if !a.Valid || !b.Valid {
		return 0
	}
	overlap := OverlapYears(a, b)
	union := a.Len() + b.Len() - overlap
	if union <= 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

// Gap returns the number of years between two ranges that do not overlap,
// and 0 when they do or when either is invalid.
func Gap(a, b YearRange) int {
	if !a.Valid || !b.Valid {
		return 0
	}
	switch {
	case b.Start > a.End:
		return b.Start - a.End
	case a.Start > b.End:
		return a.Start - b.End
	}
	return 0
}
