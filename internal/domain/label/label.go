// Package label parses past-exam question identifiers such as
// "2019-june-h-1h-q4.png" and maps them to their static assets.
package label

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/paperfinder/paperfinder/internal/domain"
)

var (
	specialMonthRe = regexp.MustCompile(`^(specimen|sample)(\d+)$`)
	questionRe     = regexp.MustCompile(`(?i)q(\d+)`)
	trailingQRe    = regexp.MustCompile(`(?i)-q\d+$`)
	extRe          = regexp.MustCompile(`\.[^/.]+$`)
	pngRe          = regexp.MustCompile(`(?i)\.png$`)
)

// Validate rejects identifiers that could escape the asset directories.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("%w: label id is required", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: invalid label id %q", domain.ErrInvalidInput, id)
	}
	return nil
}

// Format renders an identifier for display, e.g.
// "2019 June Higher • Paper 1 • Question 4". Identifiers with fewer than five
// dash-separated parts are returned without their .png extension.
func Format(id string) string {
	if id == "" {
		return ""
	}
	cleaned := pngRe.ReplaceAllString(id, "")
	parts := strings.Split(cleaned, "-")
	if len(parts) < 5 {
		return cleaned
	}
	year, monthRaw, levelRaw, paperRaw, questionRaw := parts[0], parts[1], parts[2], parts[3], parts[4]

	var month string
	if m := specialMonthRe.FindStringSubmatch(strings.ToLower(monthRaw)); m != nil {
		month = capitalize(m[1]) + " Set " + m[2]
	} else {
		month = capitalize(monthRaw)
	}

	level := levelRaw
	switch strings.ToLower(levelRaw) {
	case "h":
		level = "Higher"
	case "f":
		level = "Foundation"
	}

	paperNumber := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, paperRaw)
	if paperNumber == "" {
		paperNumber = paperRaw
	}

	question := questionRaw
	if m := questionRe.FindStringSubmatch(questionRaw); m != nil {
		question = "Question " + m[1]
	}

	return fmt.Sprintf("%s %s %s • Paper %s • %s", year, month, level, paperNumber, question)
}

// DocumentBase strips the extension and the trailing question number, giving
// the name shared by the full paper and its mark scheme.
func DocumentBase(id string) (string, bool) {
	if id == "" {
		return "", false
	}
	withoutExt := extRe.ReplaceAllString(id, "")
	return trailingQRe.ReplaceAllString(withoutExt, ""), true
}

// IsJPEG reports whether the asset is stored as JPEG rather than PNG.
func IsJPEG(id string) bool {
	lower := strings.ToLower(id)
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Assets holds the URL path prefixes of the static question material.
type Assets struct {
	Questions   string
	Answers     string
	Papers      string
	Markschemes string
}

// DefaultAssets returns the prefixes the question bank is published under.
func DefaultAssets() Assets {
	return Assets{
		Questions:   "/edexcel-gcse-maths-questions",
		Answers:     "/edexcel-gcse-maths-answers",
		Papers:      "/edexcel-gcse-maths-papers",
		Markschemes: "/edexcel-gcse-maths-markschemes",
	}
}

// QuestionPath returns the path of the question image.
func (a Assets) QuestionPath(id string) string { return path.Join(a.Questions, id) }

// AnswerPath returns the path of the mark-scheme excerpt image.
func (a Assets) AnswerPath(id string) string { return path.Join(a.Answers, id) }

// PaperPath returns the full paper PDF path.
func (a Assets) PaperPath(id string) (string, bool) {
	base, ok := DocumentBase(id)
	if !ok {
		return "", false
	}
	return path.Join(a.Papers, base+".pdf"), true
}

// MarkschemePath returns the full mark scheme PDF path.
func (a Assets) MarkschemePath(id string) (string, bool) {
	base, ok := DocumentBase(id)
	if !ok {
		return "", false
	}
	return path.Join(a.Markschemes, base+".pdf"), true
}
