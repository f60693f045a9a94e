package label

import (
	"errors"
	"testing"

	"github.com/paperfinder/paperfinder/internal/domain"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2019-june-h-1h-q4.png", "2019 June Higher • Paper 1 • Question 4"},
		{"2022-november-f-3f-q12.png", "2022 November Foundation • Paper 3 • Question 12"},
		{"2017-specimen1-h-2h-q7.png", "2017 Specimen Set 1 Higher • Paper 2 • Question 7"},
		{"2016-sample2-f-1f-q1.PNG", "2016 Sample Set 2 Foundation • Paper 1 • Question 1"},
		{"2020-june-x-paper-extra.png", "2020 June x • Paper paper • extra"},
		{"short-id.png", "short-id"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Format(tc.in); got != tc.want {
			t.Errorf("Format(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDocumentBase(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2019-june-h-1h-q4.png", "2019-june-h-1h", true},
		{"2019-june-h-1h-Q10.jpg", "2019-june-h-1h", true},
		{"no-question-part.png", "no-question-part", true},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := DocumentBase(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("DocumentBase(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestAssets_Paths(t *testing.T) {
	a := DefaultAssets()
	id := "2019-june-h-1h-q4.png"

	if got := a.QuestionPath(id); got != "/edexcel-gcse-maths-questions/2019-june-h-1h-q4.png" {
		t.Errorf("QuestionPath = %q", got)
	}
	if got := a.AnswerPath(id); got != "/edexcel-gcse-maths-answers/2019-june-h-1h-q4.png" {
		t.Errorf("AnswerPath = %q", got)
	}
	if got, _ := a.PaperPath(id); got != "/edexcel-gcse-maths-papers/2019-june-h-1h.pdf" {
		t.Errorf("PaperPath = %q", got)
	}
	if got, _ := a.MarkschemePath(id); got != "/edexcel-gcse-maths-markschemes/2019-june-h-1h.pdf" {
		t.Errorf("MarkschemePath = %q", got)
	}
}

func TestValidate(t *testing.T) {
	for _, bad := range []string{"", "../etc/passwd", "a/b.png", `a\b.png`, "x..png"} {
		if err := Validate(bad); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Validate(%q): expected ErrInvalidInput, got %v", bad, err)
		}
	}
	if err := Validate("2019-june-h-1h-q4.png"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsJPEG(t *testing.T) {
	if !IsJPEG("a.JPG") || !IsJPEG("b.jpeg") || IsJPEG("c.png") {
		t.Error("IsJPEG misclassified an extension")
	}
}
