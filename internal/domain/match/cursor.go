package match

// Cursor is the current result list and the position of the displayed match.
// The index always stays within bounds and navigation wraps around.
type Cursor struct {
	matches []Match
	index   int
}

// NewCursor creates a cursor positioned on the first match.
func NewCursor(matches []Match) Cursor {
	return Cursor{matches: matches}
}

// RestoreCursor rebuilds a cursor from storage. Out-of-range indexes reset to 0.
func RestoreCursor(matches []Match, index int) Cursor {
	if index < 0 || index >= len(matches) {
		index = 0
	}
	return Cursor{matches: matches, index: index}
}

// Replace swaps the whole result list and rewinds to the first match.
func (c *Cursor) Replace(matches []Match) {
	c.matches = matches
	c.index = 0
}

// Next advances to the following match, wrapping to the first.
func (c *Cursor) Next() {
	if len(c.matches) == 0 {
		return
	}
	c.index = (c.index + 1) % len(c.matches)
}

// Prev moves to the preceding match, wrapping to the last.
func (c *Cursor) Prev() {
	if len(c.matches) == 0 {
		return
	}
	c.index = (c.index - 1 + len(c.matches)) % len(c.matches)
}

// Current returns the displayed match, false when the list is empty.
func (c Cursor) Current() (Match, bool) {
	if len(c.matches) == 0 {
		return Match{}, false
	}
	return c.matches[c.index], true
}

// Index returns the position of the displayed match.
func (c Cursor) Index() int { return c.index }

// Len returns the number of matches.
func (c Cursor) Len() int { return len(c.matches) }

// Matches returns a copy of the result list.
func (c Cursor) Matches() []Match {
	out := make([]Match, len(c.matches))
	copy(out, c.matches)
	return out
}
