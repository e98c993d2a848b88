package rank

import "iter"

// QueryIndexGroups is a cursor over the groups of a Matches. Each step yields
// the sub-slice of matches that share one QueryIndex.
//
// The cursor consumes a window of remaining groups from both ends: Next and
// Nth take from the front, NextBack and Last from the back. Once the window is
// empty every call reports false. A cursor is not safe for concurrent use, but
// any number of cursors may read the same Matches at once.
type QueryIndexGroups struct {
	matches []Match
	spans   []span
}

// Next returns the next group from the front.
func (g *QueryIndexGroups) Next() ([]Match, bool) {
	if len(g.spans) == 0 {
		return nil, false
	}
	s := g.spans[0]
	g.spans = g.spans[1:]
	return g.matches[s.start:s.end], true
}

// NextBack returns the next group from the back.
func (g *QueryIndexGroups) NextBack() ([]Match, bool) {
	n := len(g.spans)
	if n == 0 {
		return nil, false
	}
	s := g.spans[n-1]
	g.spans = g.spans[:n-1]
	return g.matches[s.start:s.end], true
}

// Len returns the number of groups not yet consumed.
func (g *QueryIndexGroups) Len() int {
	return len(g.spans)
}

// Nth skips n groups and returns the one after them, so Nth(0) is Next.
// Skipped groups are consumed. When fewer than n+1 groups remain the cursor
// is exhausted and Nth reports false.
func (g *QueryIndexGroups) Nth(n int) ([]Match, bool) {
	if n < 0 {
		return nil, false
	}
	if n >= len(g.spans) {
		g.spans = g.spans[len(g.spans):]
		return nil, false
	}
	s := g.spans[n]
	g.spans = g.spans[n+1:]
	return g.matches[s.start:s.end], true
}

// Last consumes the cursor and returns the final remaining group.
func (g *QueryIndexGroups) Last() ([]Match, bool) {
	group, ok := g.NextBack()
	g.spans = g.spans[:0]
	return group, ok
}

// All adapts the cursor to a range-over-func sequence. Iteration consumes
// the cursor.
func (g *QueryIndexGroups) All() iter.Seq[[]Match] {
	return func(yield func([]Match) bool) {
		for {
			group, ok := g.Next()
			if !ok || !yield(group) {
				return
			}
		}
	}
}
