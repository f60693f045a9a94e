// Package match holds search hits and the navigation cursor over them.
package match

const (
	// ErrorLabelID is the reserved identifier of the sentinel match.
	ErrorLabelID = "error"
	// ErrorText is shown instead of an image when search fails.
	ErrorText = "Sorry, the search service is broken today. Please try again later."
	// NoTextFound replaces an empty excerpt or an empty OCR result.
	NoTextFound = "No text found"
)

// Match is a single past-exam question returned by the search service.
type Match struct {
	labelID    string
	text       string
	similarity float64
}

// New creates a match. An empty excerpt is replaced with NoTextFound.
func New(labelID, text string, similarity float64) Match {
	if text == "" {
		text = NoTextFound
	}
	return Match{labelID: labelID, text: text, similarity: similarity}
}

// Error returns the sentinel match that replaces a failed result set.
func Error() Match {
	return Match{labelID: ErrorLabelID, text: ErrorText}
}

// Failed returns a result set made of the sentinel only.
func Failed() []Match {
	return []Match{Error()}
}

// LabelID returns the question image identifier.
func (m Match) LabelID() string { return m.labelID }

// Text returns the display excerpt.
func (m Match) Text() string { return m.text }

// Similarity returns the relevance score.
func (m Match) Similarity() float64 { return m.similarity }

// IsError reports whether m is the sentinel match.
func (m Match) IsError() bool { return m.labelID == ErrorLabelID }
