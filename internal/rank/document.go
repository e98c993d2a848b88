package rank

// Document is a candidate search result: its identifier and the grouped
// matches found for it. A Document is never modified after construction and
// may be shared read-only between goroutines.
type Document struct {
	ID      DocumentID
	Matches Matches
}

// NewDocument builds a Document holding a single match.
func NewDocument(id DocumentID, m Match) Document {
	return FromSortedMatches(id, []Match{m})
}

// FromSortedMatches builds a Document from matches the caller guarantees to
// be sorted by CompareMatches and free of exact duplicates.
//
// Nothing is verified. Breaking the contract cannot cause an out-of-range
// access, but it can split one query term into several groups, which skews
// every criterion that counts or compares groups. Use FromUnsortedMatches
// for input whose order is not known.
func FromSortedMatches(id DocumentID, sorted []Match) Document {
	return Document{ID: id, Matches: NewMatches(sorted)}
}

// FromUnsortedMatches sorts matches in place and builds a Document from them.
func FromUnsortedMatches(id DocumentID, matches []Match) Document {
	return Document{ID: id, Matches: MatchesFromUnsorted(matches)}
}
