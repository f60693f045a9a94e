// Package worksheet describes how selected questions are laid out on A4
// pages. It knows nothing about image bytes or PDF encoding.
package worksheet

import (
	"fmt"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// Mode selects what goes into the exported worksheet.
type Mode string

// Mode constants.
const (
	ModeQuestions   Mode = "questions"
	ModeAnswers     Mode = "answers"
	ModeInterleaved Mode = "interleaved"
)

// ParseMode validates a mode name. Empty means questions.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeQuestions, ModeAnswers, ModeInterleaved:
		return Mode(s), nil
	case "":
		return ModeQuestions, nil
	default:
		return "", fmt.Errorf("%w: unknown worksheet mode %q", domain.ErrInvalidInput, s)
	}
}

// FileName returns the download name of the document.
func (m Mode) FileName() string {
	return "selected-" + string(m) + ".pdf"
}

// Kind is the type of image placed on a page.
type Kind string

// Kind constants.
const (
	KindQuestion Kind = "question"
	KindAnswer   Kind = "answer"
)

// Item is one image of the worksheet.
type Item struct {
	LabelID string
	Kind    Kind
}

// Expand turns the selection into the ordered list of images to place.
func Expand(m Mode, ids []string) []Item {
	items := make([]Item, 0, len(ids)*2)
	for _, id := range ids {
		switch m {
		case ModeAnswers:
			items = append(items, Item{LabelID: id, Kind: KindAnswer})
		case ModeInterleaved:
			items = append(items,
				Item{LabelID: id, Kind: KindQuestion},
				Item{LabelID: id, Kind: KindAnswer},
			)
		default:
			items = append(items, Item{LabelID: id, Kind: KindQuestion})
		}
	}
	return items
}
