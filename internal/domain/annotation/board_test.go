package annotation

import (
	"errors"
	"testing"

	"github.com/paperfinder/paperfinder/internal/domain"
)

var identity = Viewport{}

func ev(t EventType, s Surface, x, y float64) Event {
	return Event{Type: t, Surface: s, ClientX: x, ClientY: y, Viewport: identity}
}

func focusedBoard(m Mode) Board {
	b := NewBoard()
	b.Focus(qid)
	b.SetMode(m)
	return b
}

func TestBoard_PenStrokeCommitsOnUp(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModePen)

	b.Handle(&book, ev(PointerDown, SurfaceQuestion, 10, 10))
	out := b.Handle(&book, ev(PointerMove, SurfaceQuestion, 20, 15))
	if out.Segment == nil || out.Segment.From != (Point{10, 10}) || out.Segment.To != (Point{20, 15}) {
		t.Fatalf("unexpected segment: %+v", out.Segment)
	}
	b.Handle(&book, ev(PointerMove, SurfaceQuestion, 30, 20))
	out = b.Handle(&book, ev(PointerUp, SurfaceQuestion, 30, 20))
	if !out.Committed {
		t.Fatal("expected stroke committed")
	}
	if b.Stroke() != nil {
		t.Error("stroke should be cleared after commit")
	}

	d := book.Drawing(qid, SurfaceQuestion)
	if len(d.Paths) != 1 || len(d.Paths[0].Points) != 3 {
		t.Errorf("unexpected drawing: %+v", d)
	}
}

func TestBoard_LeaveCommitsToo(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModePen)
	b.Handle(&book, ev(PointerDown, SurfaceMarkscheme, 0, 0))
	b.Handle(&book, ev(PointerMove, SurfaceMarkscheme, 5, 5))
	if out := b.Handle(&book, ev(PointerLeave, SurfaceMarkscheme, 5, 5)); !out.Committed {
		t.Error("expected leave to commit")
	}
}

func TestBoard_ClickWithoutMoveDiscards(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModePen)
	b.Handle(&book, ev(PointerDown, SurfaceQuestion, 10, 10))
	if out := b.Handle(&book, ev(PointerUp, SurfaceQuestion, 10, 10)); out.Committed {
		t.Error("single point must not commit")
	}
	if !book.Drawing(qid, SurfaceQuestion).IsEmpty() {
		t.Error("expected nothing stored")
	}
}

func TestBoard_ModeSwitchCancels(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModePen)
	b.Handle(&book, ev(PointerDown, SurfaceQuestion, 10, 10))
	b.Handle(&book, ev(PointerMove, SurfaceQuestion, 20, 20))

	b.SetMode(ModeText)
	if b.Stroke() != nil {
		t.Fatal("mode switch must cancel the stroke")
	}
	b.Handle(&book, ev(PointerDown, SurfaceQuestion, 40, 40))
	if b.TextInput() == nil {
		t.Fatal("expected text input open")
	}
	b.SetMode(ModeEraser)
	if b.TextInput() != nil {
		t.Error("mode switch must close the text input")
	}
	if !book.Drawing(qid, SurfaceQuestion).IsEmpty() {
		t.Error("cancelled stroke must not be stored")
	}
}

func TestBoard_NoneModeIgnoresEvents(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModeNone)
	out := b.Handle(&book, ev(PointerDown, SurfaceQuestion, 1, 1))
	if out != (Outcome{}) || b.Stroke() != nil {
		t.Errorf("expected no effect, got %+v", out)
	}
}

func TestBoard_TextSubmit(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModeText)
	vp := Viewport{Left: 100, Top: 50, DisplayWidth: 400, DisplayHeight: 300, Width: 800, Height: 600}
	out := b.Handle(&book, Event{Type: PointerDown, Surface: SurfaceQuestion, ClientX: 150, ClientY: 80, Viewport: vp})
	if out.TextInput == nil {
		t.Fatal("expected text input")
	}
	if out.TextInput.Display != (Point{50, 30}) || out.TextInput.Anchor != (Point{100, 60}) {
		t.Errorf("unexpected input position: %+v", out.TextInput)
	}

	if b.SubmitText(&book, "   ") {
		t.Error("blank text must be ignored")
	}
	if b.TextInput() == nil {
		t.Error("blank submission keeps the input open")
	}
	if !b.SubmitText(&book, "x = 4") {
		t.Fatal("expected label stored")
	}
	if b.TextInput() != nil {
		t.Error("input should close after submission")
	}
	d := book.Drawing(qid, SurfaceQuestion)
	if len(d.Labels) != 1 || d.Labels[0].X != 100 || d.Labels[0].Y != 60 || d.Labels[0].Text != "x = 4" {
		t.Errorf("unexpected labels: %+v", d.Labels)
	}
}

func TestBoard_EraserOnDown(t *testing.T) {
	book := NewBook()
	book.AddPath(qid, SurfaceQuestion, line(0, 0, 10, 0))
	b := focusedBoard(ModeEraser)
	if out := b.Handle(&book, ev(PointerDown, SurfaceQuestion, 5, 5)); !out.Erased {
		t.Error("expected erase")
	}
}

func TestBoard_FocusResets(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModePen)
	b.Handle(&book, ev(PointerDown, SurfaceQuestion, 1, 1))

	b.Focus(qid)
	if b.Mode() != ModePen || b.Stroke() == nil {
		t.Fatal("refocusing the same question must keep state")
	}

	b.Focus("other.png")
	if b.Mode() != ModeNone || b.Stroke() != nil {
		t.Errorf("expected reset, got mode=%s stroke=%v", b.Mode(), b.Stroke())
	}
}

func TestBoard_MoveOnOtherSurfaceIgnored(t *testing.T) {
	book := NewBook()
	b := focusedBoard(ModePen)
	b.Handle(&book, ev(PointerDown, SurfaceQuestion, 1, 1))
	if out := b.Handle(&book, ev(PointerMove, SurfaceMarkscheme, 5, 5)); out.Segment != nil {
		t.Error("move over another surface must not extend the stroke")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeNone {
		t.Errorf("ParseMode(\"\") = %q, %v", m, err)
	}
	if _, err := ParseMode("brush"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
