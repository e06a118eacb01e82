// Package related discovers works related to an anchor work.
//
// Three relation classes are searched: works by the same author, works that
// ran in the same magazine during an overlapping period, and works from the
// same publisher in a different magazine within a widened year window. Each
// class is scored and capped independently before the classes are merged.
package related
