// Package rank holds the data every ranking criterion reads from: the
// Document assembled for a candidate result and its Matches, a sorted set of
// term occurrences partitioned into one contiguous group per query term.
//
// Grouping happens once, when Matches is built. Criteria then walk the
// groups through a QueryIndexGroups cursor, which hands out sub-slices of the
// backing array and never copies or re-scans it.
package rank

import "cmp"

// DocumentID identifies a candidate document. It is opaque to this package;
// ordering is plain byte-wise string comparison.
type DocumentID string

// Match is one occurrence of a query term inside a document.
type Match struct {
	// QueryIndex is the position of the matched word in the query. It is the
	// primary sort key and the grouping key.
	QueryIndex uint32 `json:"query_index"`
	// Distance is the number of typos between the query word and the
	// indexed word.
	Distance uint8 `json:"distance"`
	// Attribute is the document field the word was found in.
	Attribute uint16 `json:"attribute"`
	// WordIndex is the token position inside Attribute.
	WordIndex uint32 `json:"word_index"`
	// IsExact is set when the indexed word equals the query word without
	// typo or prefix expansion.
	IsExact bool `json:"is_exact"`

	CharIndex  uint32 `json:"char_index"`
	CharLength uint16 `json:"char_length"`
}

// CompareMatches orders matches by QueryIndex, then Distance, Attribute,
// WordIndex, IsExact (false first), CharIndex and CharLength.
func CompareMatches(a, b Match) int {
	if c := cmp.Compare(a.QueryIndex, b.QueryIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Attribute, b.Attribute); c != 0 {
		return c
	}
	if c := cmp.Compare(a.WordIndex, b.WordIndex); c != 0 {
		return c
	}
	if a.IsExact != b.IsExact {
		if a.IsExact {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.CharIndex, b.CharIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.CharLength, b.CharLength)
}
