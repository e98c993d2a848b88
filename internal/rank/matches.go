package rank

import "slices"

// span is a half-open [start, end) range over Matches.matches.
type span struct {
	start int
	end   int
}

// Matches is an immutable, sorted set of matches plus the precomputed
// boundaries of each query-term group.
//
// For a Matches built from correctly sorted input, spans partition
// [0, len(matches)) in order, every span holds a single QueryIndex and
// neighbouring spans hold different ones, in ascending order.
type Matches struct {
	matches []Match
	spans   []span
}

// NewMatches groups an already sorted slice in a single pass and takes
// ownership of it.
//
// The input is trusted, not checked: it must be ordered by CompareMatches
// (at least by QueryIndex). Unsorted input does not break anything beyond
// grouping quality, since spans are always derived from the slice as given:
// a query term that appears in two separate runs simply yields two groups.
func NewMatches(sorted []Match) Matches {
	if len(sorted) == 0 {
		return Matches{}
	}
	spans := make([]span, 0, 4)
	start := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i].QueryIndex != sorted[start].QueryIndex {
			spans = append(spans, span{start: start, end: i})
			start = i
		}
	}
	spans = append(spans, span{start: start, end: len(sorted)})
	return Matches{matches: sorted, spans: spans}
}

// MatchesFromUnsorted sorts matches in place by CompareMatches and groups
// them. The slice is owned by the returned Matches afterwards.
//
// Exact duplicates are kept: each one counts as its own occurrence and
// simply enlarges its group.
func MatchesFromUnsorted(matches []Match) Matches {
	slices.SortFunc(matches, CompareMatches)
	return NewMatches(matches)
}

// QueryIndexGroups returns a new cursor over the query-term groups, in
// ascending QueryIndex order.
func (m Matches) QueryIndexGroups() *QueryIndexGroups {
	return &QueryIndexGroups{matches: m.matches, spans: m.spans}
}

// AsMatches returns every match, sorted and ungrouped. The slice aliases the
// internal storage and must not be modified.
func (m Matches) AsMatches() []Match {
	return m.matches
}

// Len returns the number of matches.
func (m Matches) Len() int {
	return len(m.matches)
}

// GroupCount returns the number of distinct query terms matched.
func (m Matches) GroupCount() int {
	return len(m.spans)
}
