package request

import (
	"fmt"
	"strings"

	"github.com/paperfinder/paperfinder/internal/domain"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
)

// MaxQueryLength is the maximum allowed query length in bytes.
const MaxQueryLength = 8192

// Query is a validated similarity-search query.
type Query struct {
	text    string
	filters filter.Filters
}

// New trims the text and validates it. Blank text yields domain.ErrEmptyQuery.
func New(text string, filters filter.Filters) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, domain.ErrEmptyQuery
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidInput, MaxQueryLength)
	}
	return Query{text: text, filters: filters}, nil
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// Filters returns the filter state the query runs with.
func (q Query) Filters() filter.Filters { return q.filters }

// TopK returns the requested number of hits.
func (q Query) TopK() int { return q.filters.TopK() }
