package annotation

import (
	"fmt"
	"strings"

	"github.com/paperfinder/paperfinder/internal/domain"
)

// Mode is the active annotation tool.
type Mode string

// Mode constants.
const (
	ModeNone   Mode = "none"
	ModePen    Mode = "pen"
	ModeText   Mode = "text"
	ModeEraser Mode = "eraser"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, ModePen, ModeText, ModeEraser:
		return Mode(s), nil
	case "":
		return ModeNone, nil
	default:
		return "", fmt.Errorf("%w: unknown annotation mode %q", domain.ErrInvalidInput, s)
	}
}

// EventType is a pointer event kind.
type EventType string

// Pointer event kinds.
const (
	PointerDown  EventType = "down"
	PointerMove  EventType = "move"
	PointerUp    EventType = "up"
	PointerLeave EventType = "leave"
)

// Event is one pointer event over a surface, in screen coordinates.
type Event struct {
	Type     EventType
	Surface  Surface
	ClientX  float64
	ClientY  float64
	Viewport Viewport
}

// TextInput is an open floating text box waiting for submission.
type TextInput struct {
	Surface Surface
	// Display is the offset of the box inside the surface's on-screen area.
	Display Point
	// Anchor is where the label will be stored, in surface coordinates.
	Anchor Point
}

// Stroke is a stroke being drawn and not yet committed.
type Stroke struct {
	Surface Surface
	Points  []Point
}

// Outcome reports what a single event did.
type Outcome struct {
	Segment   *Segment
	Committed bool
	Erased    bool
	TextInput *TextInput
}

// Board is the tool state of the annotation surface for the displayed question.
type Board struct {
	mode    Mode
	labelID string
	stroke  *Stroke
	input   *TextInput
}

// NewBoard creates a board with no tool selected.
func NewBoard() Board {
	return Board{mode: ModeNone}
}

// RestoreBoard rebuilds a board from storage.
func RestoreBoard(mode Mode, labelID string, stroke *Stroke, input *TextInput) Board {
	if mode == "" {
		mode = ModeNone
	}
	return Board{mode: mode, labelID: labelID, stroke: stroke, input: input}
}

// Mode returns the active tool.
func (b Board) Mode() Mode { return b.mode }

// LabelID returns the question the board is focused on.
func (b Board) LabelID() string { return b.labelID }

// Stroke returns the stroke in progress, if any.
func (b Board) Stroke() *Stroke { return b.stroke }

// TextInput returns the open text box, if any.
func (b Board) TextInput() *TextInput { return b.input }

// Focus points the board at a question. Moving to another question resets
// the tool to none and drops any pending stroke or text box.
func (b *Board) Focus(labelID string) {
	if labelID == b.labelID {
		return
	}
	b.labelID = labelID
	b.mode = ModeNone
	b.cancel()
}

// SetMode switches the tool, cancelling any stroke or open text box.
func (b *Board) SetMode(m Mode) {
	b.mode = m
	b.cancel()
}

// Handle applies a pointer event to the board and the book.
func (b *Board) Handle(book *Book, ev Event) Outcome {
	if b.labelID == "" || b.mode == ModeNone {
		return Outcome{}
	}
	switch ev.Type {
	case PointerDown:
		return b.down(book, ev)
	case PointerMove:
		return b.move(ev)
	case PointerUp, PointerLeave:
		return b.up(book)
	default:
		return Outcome{}
	}
}

func (b *Board) down(book *Book, ev Event) Outcome {
	p := ev.Viewport.Map(ev.ClientX, ev.ClientY)
	switch b.mode {
	case ModePen:
		b.stroke = &Stroke{Surface: ev.Surface, Points: []Point{p}}
		return Outcome{}
	case ModeText:
		b.input = &TextInput{
			Surface: ev.Surface,
			Display: ev.Viewport.Local(ev.ClientX, ev.ClientY),
			Anchor:  p,
		}
		return Outcome{TextInput: b.input}
	case ModeEraser:
		return Outcome{Erased: book.Erase(b.labelID, ev.Surface, p)}
	default:
		return Outcome{}
	}
}

func (b *Board) move(ev Event) Outcome {
	if b.mode != ModePen || b.stroke == nil || ev.Surface != b.stroke.Surface {
		return Outcome{}
	}
	p := ev.Viewport.Map(ev.ClientX, ev.ClientY)
	last := b.stroke.Points[len(b.stroke.Points)-1]
	b.stroke.Points = append(b.stroke.Points, p)
	return Outcome{Segment: &Segment{From: last, To: p, Color: DefaultColor}}
}

func (b *Board) up(book *Book) Outcome {
	if b.stroke == nil {
		return Outcome{}
	}
	s := b.stroke
	b.stroke = nil
	committed := book.AddPath(b.labelID, s.Surface, Path{Points: s.Points, Color: DefaultColor})
	return Outcome{Committed: committed}
}

// SubmitText stores the open text box content as a label and closes the box.
// Blank text leaves the box open and stores nothing.
func (b *Board) SubmitText(book *Book, text string) bool {
	if b.input == nil || b.labelID == "" || strings.TrimSpace(text) == "" {
		return false
	}
	book.AddLabel(b.labelID, b.input.Surface, Label{
		X:     b.input.Anchor.X,
		Y:     b.input.Anchor.Y,
		Text:  text,
		Color: DefaultColor,
	})
	b.input = nil
	return true
}

// CloseText discards the open text box.
func (b *Board) CloseText() { b.input = nil }

func (b *Board) cancel() {
	b.stroke = nil
	b.input = nil
}
