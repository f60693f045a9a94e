package paperfinder

import (
	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
	domws "github.com/paperfinder/paperfinder/internal/domain/worksheet"
)

// Level restricts results to a tier.
type Level string

// Level constants.
const (
	LevelAll        Level = "all"
	LevelHigher     Level = "h"
	LevelFoundation Level = "f"
)

// Calculator restricts results by calculator policy.
type Calculator string

// Calculator constants.
const (
	CalculatorAll     Calculator = "all"
	CalculatorAllowed Calculator = "calculator"
	CalculatorNone    Calculator = "non-calculator"
)

// Backend selects the question index.
type Backend string

// Backend constants.
const (
	BackendPrimary   Backend = "method1"
	BackendSecondary Backend = "method2"
)

// WorksheetMode selects which pages a worksheet contains.
type WorksheetMode string

// WorksheetMode constants.
const (
	WorksheetQuestions   WorksheetMode = "questions"
	WorksheetAnswers     WorksheetMode = "answers"
	WorksheetInterleaved WorksheetMode = "interleaved"
)

// SearchOptions restricts a search. The zero value searches everything on the
// primary index and returns 25 results.
type SearchOptions struct {
	Level      Level
	Calculator Calculator
	TopK       int
	Backend    Backend
}

// Match is one search hit. A failed search yields a single match with
// LabelID "error".
type Match struct {
	LabelID     string
	DisplayName string
	Text        string
	Similarity  float64
}

// IsError reports whether m is the failed-search placeholder.
func (m Match) IsError() bool { return m.LabelID == match.ErrorLabelID }

// LabelInfo describes a question and the paths of its material.
type LabelInfo struct {
	ID             string
	DisplayName    string
	DocumentBase   string
	QuestionPath   string
	AnswerPath     string
	PaperPath      string
	MarkschemePath string
}

// Worksheet is a rendered PDF.
type Worksheet struct {
	Name  string
	Data  []byte
	Pages int
}

// Session is a snapshot of a search session.
type Session struct {
	ID           string
	Query        string
	Matches      []Match
	CurrentIndex int
	Current      *Match
	Selection    []string
}

func toFilters(opts *SearchOptions) (filter.Filters, error) {
	if opts == nil {
		return filter.Default(), nil
	}
	return filter.New(string(opts.Level), string(opts.Calculator), opts.TopK, string(opts.Backend)) //nolint:wrapcheck // domain validation error
}

func fromMatches(ms []match.Match) []Match {
	out := make([]Match, len(ms))
	for i, m := range ms {
		out[i] = fromMatch(m)
	}
	return out
}

func fromMatch(m match.Match) Match {
	name := label.Format(m.LabelID())
	if m.IsError() {
		name = ""
	}
	return Match{
		LabelID:     m.LabelID(),
		DisplayName: name,
		Text:        m.Text(),
		Similarity:  m.Similarity(),
	}
}

func fromLabel(id string, a label.Assets) LabelInfo {
	info := LabelInfo{
		ID:           id,
		DisplayName:  label.Format(id),
		QuestionPath: a.QuestionPath(id),
		AnswerPath:   a.AnswerPath(id),
	}
	info.DocumentBase, _ = label.DocumentBase(id)
	info.PaperPath, _ = a.PaperPath(id)
	info.MarkschemePath, _ = a.MarkschemePath(id)
	return info
}

func fromSession(s domsession.Session) Session {
	cur := s.Cursor()
	out := Session{
		ID:           s.ID(),
		Query:        s.Query(),
		Matches:      fromMatches(cur.Matches()),
		CurrentIndex: cur.Index(),
		Selection:    s.Selection().IDs(),
	}
	if m, ok := cur.Current(); ok {
		c := fromMatch(m)
		out.Current = &c
	}
	return out
}

func toWorksheetMode(m WorksheetMode) (domws.Mode, error) {
	return domws.ParseMode(string(m)) //nolint:wrapcheck // domain validation error
}
