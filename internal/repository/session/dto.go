package session

import (
	"github.com/paperfinder/paperfinder/internal/domain/annotation"
	"github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	"github.com/paperfinder/paperfinder/internal/domain/selection"
	"github.com/paperfinder/paperfinder/internal/domain/session"
)

// schemaVersion is bumped when the stored layout changes incompatibly.
const schemaVersion = 1

type sessionDTO struct {
	Version   int          `json:"v"`
	ID        string       `json:"id"`
	CreatedAt int64        `json:"created_at"`
	UpdatedAt int64        `json:"updated_at"`
	Query     string       `json:"query,omitempty"`
	Filters   filtersDTO   `json:"filters"`
	Matches   []matchDTO   `json:"matches,omitempty"`
	Index     int          `json:"index"`
	Selection []string     `json:"selection,omitempty"`
	Drawings  []drawingDTO `json:"drawings,omitempty"`
	Board     boardDTO     `json:"board"`
	Tutor     tutorDTO     `json:"tutor"`
}

type filtersDTO struct {
	Level      string `json:"level"`
	Calculator string `json:"calculator"`
	TopK       int    `json:"top_k"`
	Backend    string `json:"backend"`
}

type matchDTO struct {
	LabelID    string  `json:"label_id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

type pathDTO struct {
	Points [][2]float64 `json:"points"`
	Color  string       `json:"color"`
}

type labelDTO struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Text  string  `json:"text"`
	Color string  `json:"color"`
}

type drawingDTO struct {
	LabelID string     `json:"label_id"`
	Surface string     `json:"surface"`
	Paths   []pathDTO  `json:"paths,omitempty"`
	Labels  []labelDTO `json:"labels,omitempty"`
}

type strokeDTO struct {
	Surface string       `json:"surface"`
	Points  [][2]float64 `json:"points"`
}

type inputDTO struct {
	Surface string     `json:"surface"`
	Display [2]float64 `json:"display"`
	Anchor  [2]float64 `json:"anchor"`
}

type boardDTO struct {
	Mode    string     `json:"mode"`
	LabelID string     `json:"label_id,omitempty"`
	Stroke  *strokeDTO `json:"stroke,omitempty"`
	Input   *inputDTO  `json:"input,omitempty"`
}

type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tutorDTO struct {
	LabelID          string       `json:"label_id,omitempty"`
	Messages         []messageDTO `json:"messages,omitempty"`
	StepMode         bool         `json:"step_mode,omitempty"`
	Step             int          `json:"step,omitempty"`
	SolutionComplete bool         `json:"solution_complete,omitempty"`
}

func toDTO(s session.Session) sessionDTO {
	f := s.Filters()
	cur := s.Cursor()

	matches := make([]matchDTO, 0, cur.Len())
	for _, m := range cur.Matches() {
		matches = append(matches, matchDTO{LabelID: m.LabelID(), Text: m.Text(), Similarity: m.Similarity()})
	}

	var drawings []drawingDTO
	for k, d := range s.Book().Entries() {
		drawings = append(drawings, drawingToDTO(k, d))
	}

	tr := s.Tutor()
	msgs := make([]messageDTO, 0, len(tr.Messages()))
	for _, m := range tr.Messages() {
		msgs = append(msgs, messageDTO{Role: string(m.Role), Content: m.Text})
	}

	return sessionDTO{
		Version:   schemaVersion,
		ID:        s.ID(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
		Query:     s.Query(),
		Filters: filtersDTO{
			Level:      string(f.Level()),
			Calculator: string(f.Calculator()),
			TopK:       f.TopK(),
			Backend:    string(f.Backend()),
		},
		Matches:   matches,
		Index:     cur.Index(),
		Selection: s.Selection().IDs(),
		Drawings:  drawings,
		Board:     boardToDTO(s.Board()),
		Tutor: tutorDTO{
			LabelID:          tr.LabelID(),
			Messages:         msgs,
			StepMode:         tr.StepMode(),
			Step:             tr.Step(),
			SolutionComplete: tr.SolutionComplete(),
		},
	}
}

func fromDTO(d sessionDTO) session.Session {
	f, err := filter.New(d.Filters.Level, d.Filters.Calculator, d.Filters.TopK, d.Filters.Backend)
	if err != nil {
		f = filter.Default()
	}

	matches := make([]match.Match, len(d.Matches))
	for i, m := range d.Matches {
		matches[i] = match.New(m.LabelID, m.Text, m.Similarity)
	}

	drawings := make(map[annotation.Key]annotation.DrawingData, len(d.Drawings))
	for _, dr := range d.Drawings {
		k, data := drawingFromDTO(dr)
		drawings[k] = data
	}

	msgs := make([]chat.Message, len(d.Tutor.Messages))
	for i, m := range d.Tutor.Messages {
		msgs[i] = chat.TextMessage(chat.Role(m.Role), m.Content)
	}

	return session.Reconstruct(session.State{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Query:     d.Query,
		Filters:   f,
		Cursor:    match.RestoreCursor(matches, d.Index),
		Selection: selection.New(d.Selection...),
		Book:      annotation.RestoreBook(drawings),
		Board:     boardFromDTO(d.Board),
		Tutor: chat.RestoreTranscript(
			d.Tutor.LabelID, msgs, d.Tutor.StepMode, d.Tutor.Step, d.Tutor.SolutionComplete,
		),
	})
}

func drawingToDTO(k annotation.Key, d annotation.DrawingData) drawingDTO {
	out := drawingDTO{LabelID: k.LabelID, Surface: string(k.Surface)}
	for _, p := range d.Paths {
		out.Paths = append(out.Paths, pathDTO{Points: pointsToDTO(p.Points), Color: p.Color})
	}
	for _, l := range d.Labels {
		out.Labels = append(out.Labels, labelDTO{X: l.X, Y: l.Y, Text: l.Text, Color: l.Color})
	}
	return out
}

func drawingFromDTO(d drawingDTO) (annotation.Key, annotation.DrawingData) {
	var data annotation.DrawingData
	for _, p := range d.Paths {
		data.Paths = append(data.Paths, annotation.Path{Points: pointsFromDTO(p.Points), Color: p.Color})
	}
	for _, l := range d.Labels {
		data.Labels = append(data.Labels, annotation.Label{X: l.X, Y: l.Y, Text: l.Text, Color: l.Color})
	}
	return annotation.Key{LabelID: d.LabelID, Surface: annotation.Surface(d.Surface)}, data
}

func boardToDTO(b annotation.Board) boardDTO {
	out := boardDTO{Mode: string(b.Mode()), LabelID: b.LabelID()}
	if s := b.Stroke(); s != nil {
		out.Stroke = &strokeDTO{Surface: string(s.Surface), Points: pointsToDTO(s.Points)}
	}
	if in := b.TextInput(); in != nil {
		out.Input = &inputDTO{
			Surface: string(in.Surface),
			Display: [2]float64{in.Display.X, in.Display.Y},
			Anchor:  [2]float64{in.Anchor.X, in.Anchor.Y},
		}
	}
	return out
}

func boardFromDTO(d boardDTO) annotation.Board {
	var stroke *annotation.Stroke
	if d.Stroke != nil {
		stroke = &annotation.Stroke{Surface: annotation.Surface(d.Stroke.Surface), Points: pointsFromDTO(d.Stroke.Points)}
	}
	var input *annotation.TextInput
	if d.Input != nil {
		input = &annotation.TextInput{
			Surface: annotation.Surface(d.Input.Surface),
			Display: annotation.Point{X: d.Input.Display[0], Y: d.Input.Display[1]},
			Anchor:  annotation.Point{X: d.Input.Anchor[0], Y: d.Input.Anchor[1]},
		}
	}
	return annotation.RestoreBoard(annotation.Mode(d.Mode), d.LabelID, stroke, input)
}

func pointsToDTO(pts []annotation.Point) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

func pointsFromDTO(pts [][2]float64) []annotation.Point {
	out := make([]annotation.Point, len(pts))
	for i, p := range pts {
		out[i] = annotation.Point{X: p[0], Y: p[1]}
	}
	return out
}
