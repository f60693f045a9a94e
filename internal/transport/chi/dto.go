package chi

import (
	"time"

	"github.com/paperfinder/paperfinder/internal/domain/annotation"
	domchat "github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
	domusage "github.com/paperfinder/paperfinder/internal/domain/usage"
	"github.com/paperfinder/paperfinder/internal/markdown"
)

// FiltersBody is the JSON form of search filters. Zero values select defaults.
type FiltersBody struct {
	Level       string `json:"level,omitempty"`
	Calculator  string `json:"calculator,omitempty"`
	ResultCount int    `json:"result_count,omitempty"`
	Backend     string `json:"backend,omitempty"`
}

func (b *FiltersBody) toDomain() (filter.Filters, error) {
	if b == nil {
		return filter.Default(), nil
	}
	return filter.New(b.Level, b.Calculator, b.ResultCount, b.Backend) //nolint:wrapcheck // domain error
}

func filtersToBody(f filter.Filters) FiltersBody {
	return FiltersBody{
		Level:       string(f.Level()),
		Calculator:  string(f.Calculator()),
		ResultCount: f.TopK(),
		Backend:     string(f.Backend()),
	}
}

// MatchItem is one search hit.
type MatchItem struct {
	LabelID     string  `json:"label_id"`
	DisplayName string  `json:"display_name,omitempty"`
	Text        string  `json:"text"`
	Similarity  float64 `json:"similarity"`
}

func matchToItem(m match.Match) MatchItem {
	item := MatchItem{
		LabelID:    m.LabelID(),
		Text:       m.Text(),
		Similarity: m.Similarity(),
	}
	if !m.IsError() {
		item.DisplayName = label.Format(m.LabelID())
	}
	return item
}

func matchesToItems(ms []match.Match) []MatchItem {
	items := make([]MatchItem, len(ms))
	for i, m := range ms {
		items[i] = matchToItem(m)
	}
	return items
}

// LabelResponse describes a question id and its assets.
type LabelResponse struct {
	LabelID        string `json:"label_id"`
	DisplayName    string `json:"display_name"`
	DocumentBase   string `json:"document_base,omitempty"`
	QuestionPath   string `json:"question_path"`
	AnswerPath     string `json:"answer_path"`
	PaperPath      string `json:"paper_path,omitempty"`
	MarkschemePath string `json:"markscheme_path,omitempty"`
}

func labelToResponse(id string, a label.Assets) LabelResponse {
	resp := LabelResponse{
		LabelID:      id,
		DisplayName:  label.Format(id),
		QuestionPath: a.QuestionPath(id),
		AnswerPath:   a.AnswerPath(id),
	}
	if base, ok := label.DocumentBase(id); ok {
		resp.DocumentBase = base
	}
	if p, ok := a.PaperPath(id); ok {
		resp.PaperPath = p
	}
	if p, ok := a.MarkschemePath(id); ok {
		resp.MarkschemePath = p
	}
	return resp
}

// SearchResponse is the outcome of a search.
type SearchResponse struct {
	Query   string      `json:"query"`
	Matches []MatchItem `json:"matches"`
}

// SessionResponse is the client view of a session.
type SessionResponse struct {
	ID           string       `json:"id"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Query        string       `json:"query"`
	Filters      FiltersBody  `json:"filters"`
	Matches      []MatchItem  `json:"matches"`
	CurrentIndex int          `json:"current_index"`
	Current      *MatchItem   `json:"current,omitempty"`
	Selection    []string     `json:"selection"`
	Board        BoardState   `json:"board"`
	Tutor        TutorSummary `json:"tutor"`
}

// BoardState is the annotation tool state.
type BoardState struct {
	Mode      annotation.Mode `json:"mode"`
	LabelID   string          `json:"label_id,omitempty"`
	Drawing   bool            `json:"drawing"`
	TextInput *TextInputBody  `json:"text_input,omitempty"`
}

// TextInputBody is an open floating text box.
type TextInputBody struct {
	Surface  annotation.Surface `json:"surface"`
	DisplayX float64            `json:"display_x"`
	DisplayY float64            `json:"display_y"`
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
}

func textInputToBody(in *annotation.TextInput) *TextInputBody {
	if in == nil {
		return nil
	}
	return &TextInputBody{
		Surface:  in.Surface,
		DisplayX: in.Display.X,
		DisplayY: in.Display.Y,
		X:        in.Anchor.X,
		Y:        in.Anchor.Y,
	}
}

// TutorSummary is the tutor state without messages.
type TutorSummary struct {
	LabelID          string `json:"label_id,omitempty"`
	Messages         int    `json:"messages"`
	StepMode         bool   `json:"step_mode"`
	Step             int    `json:"step"`
	SolutionComplete bool   `json:"solution_complete"`
}

func sessionToResponse(s domsession.Session) SessionResponse {
	c := s.Cursor()
	resp := SessionResponse{
		ID:           s.ID(),
		CreatedAt:    time.UnixMilli(s.CreatedAt()).UTC(),
		UpdatedAt:    time.UnixMilli(s.UpdatedAt()).UTC(),
		Query:        s.Query(),
		Filters:      filtersToBody(s.Filters()),
		Matches:      matchesToItems(c.Matches()),
		CurrentIndex: c.Index(),
		Selection:    s.Selection().IDs(),
	}
	if m, ok := c.Current(); ok {
		item := matchToItem(m)
		resp.Current = &item
	}
	if resp.Selection == nil {
		resp.Selection = []string{}
	}

	b := s.Board()
	resp.Board = BoardState{
		Mode:      b.Mode(),
		LabelID:   b.LabelID(),
		Drawing:   b.Stroke() != nil,
		TextInput: textInputToBody(b.TextInput()),
	}

	tr := s.Tutor()
	resp.Tutor = TutorSummary{
		LabelID:          tr.LabelID(),
		Messages:         len(tr.Messages()),
		StepMode:         tr.StepMode(),
		Step:             tr.Step(),
		SolutionComplete: tr.SolutionComplete(),
	}
	return resp
}

// PointBody is a point in surface coordinates.
type PointBody struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PathBody is a committed stroke.
type PathBody struct {
	Points []PointBody `json:"points"`
	Color  string      `json:"color"`
}

// LabelBody is a text annotation.
type LabelBody struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Text  string  `json:"text"`
	Color string  `json:"color"`
}

// DrawingResponse is everything drawn on one surface.
type DrawingResponse struct {
	LabelID string             `json:"label_id"`
	Surface annotation.Surface `json:"surface"`
	Paths   []PathBody         `json:"paths"`
	Labels  []LabelBody        `json:"labels"`
}

func drawingToResponse(labelID string, surface annotation.Surface, d annotation.DrawingData) DrawingResponse {
	resp := DrawingResponse{
		LabelID: labelID,
		Surface: surface,
		Paths:   make([]PathBody, len(d.Paths)),
		Labels:  make([]LabelBody, len(d.Labels)),
	}
	for i, p := range d.Paths {
		pts := make([]PointBody, len(p.Points))
		for j, q := range p.Points {
			pts[j] = PointBody{X: q.X, Y: q.Y}
		}
		resp.Paths[i] = PathBody{Points: pts, Color: p.Color}
	}
	for i, l := range d.Labels {
		resp.Labels[i] = LabelBody{X: l.X, Y: l.Y, Text: l.Text, Color: l.Color}
	}
	return resp
}

// ViewportBody is the on-screen box of a surface.
type ViewportBody struct {
	Left          float64 `json:"left"`
	Top           float64 `json:"top"`
	DisplayWidth  float64 `json:"display_width"`
	DisplayHeight float64 `json:"display_height"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
}

// EventBody is one pointer event.
type EventBody struct {
	Type     string       `json:"type"`
	Surface  string       `json:"surface"`
	ClientX  float64      `json:"client_x"`
	ClientY  float64      `json:"client_y"`
	Viewport ViewportBody `json:"viewport"`
}

// EventsRequest is a batch of pointer events applied in order.
type EventsRequest struct {
	Events []EventBody `json:"events"`
}

func (e EventBody) toDomain() (annotation.Event, error) {
	s, err := annotation.ParseSurface(e.Surface)
	if err != nil {
		return annotation.Event{}, err //nolint:wrapcheck // domain error
	}
	return annotation.Event{
		Type:    annotation.EventType(e.Type),
		Surface: s,
		ClientX: e.ClientX,
		ClientY: e.ClientY,
		Viewport: annotation.Viewport{
			Left:          e.Viewport.Left,
			Top:           e.Viewport.Top,
			DisplayWidth:  e.Viewport.DisplayWidth,
			DisplayHeight: e.Viewport.DisplayHeight,
			Width:         e.Viewport.Width,
			Height:        e.Viewport.Height,
		},
	}, nil
}

// SegmentBody is a line piece to paint while drawing.
type SegmentBody struct {
	From  PointBody `json:"from"`
	To    PointBody `json:"to"`
	Color string    `json:"color"`
}

// OutcomeBody reports what one event did.
type OutcomeBody struct {
	Segment   *SegmentBody   `json:"segment,omitempty"`
	Committed bool           `json:"committed,omitempty"`
	Erased    bool           `json:"erased,omitempty"`
	TextInput *TextInputBody `json:"text_input,omitempty"`
}

// EventsResponse lists one outcome per event.
type EventsResponse struct {
	Outcomes []OutcomeBody `json:"outcomes"`
	Board    BoardState    `json:"board"`
}

func outcomeToBody(o annotation.Outcome) OutcomeBody {
	body := OutcomeBody{
		Committed: o.Committed,
		Erased:    o.Erased,
		TextInput: textInputToBody(o.TextInput),
	}
	if o.Segment != nil {
		body.Segment = &SegmentBody{
			From:  PointBody{X: o.Segment.From.X, Y: o.Segment.From.Y},
			To:    PointBody{X: o.Segment.To.X, Y: o.Segment.To.Y},
			Color: o.Segment.Color,
		}
	}
	return body
}

// ChatMessageBody is one chat message. Content is a string or an array of parts.
type ChatMessageBody struct {
	Role    string      `json:"role"`
	Content ChatContent `json:"content"`
}

// ChatRequest is the body of the chat proxy.
type ChatRequest struct {
	Messages  []ChatMessageBody `json:"messages"`
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
}

func (r ChatRequest) toDomain() (domchat.Request, error) {
	msgs := make([]domchat.Message, len(r.Messages))
	for i, m := range r.Messages {
		msgs[i] = domchat.Message{Role: domchat.Role(m.Role), Text: m.Content.Text, Parts: m.Content.Parts}
	}
	return domchat.NewRequest(msgs, r.Model, r.MaxTokens) //nolint:wrapcheck // domain error
}

// TutorRequest is one tutor turn: free text or a quick action.
type TutorRequest struct {
	Message string `json:"message"`
	Action  string `json:"action"`
}

// TutorMessage is one rendered transcript entry.
type TutorMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

// TranscriptResponse is the tutor transcript of the displayed question.
type TranscriptResponse struct {
	LabelID          string         `json:"label_id,omitempty"`
	Messages         []TutorMessage `json:"messages"`
	StepMode         bool           `json:"step_mode"`
	Step             int            `json:"step"`
	SolutionComplete bool           `json:"solution_complete"`
}

func transcriptToResponse(t domchat.Transcript, render bool) (TranscriptResponse, error) {
	msgs := t.Messages()
	resp := TranscriptResponse{
		LabelID:          t.LabelID(),
		Messages:         make([]TutorMessage, len(msgs)),
		StepMode:         t.StepMode(),
		Step:             t.Step(),
		SolutionComplete: t.SolutionComplete(),
	}
	for i, m := range msgs {
		tm := TutorMessage{Role: string(m.Role), Text: m.Text}
		if render {
			html, err := markdown.ToHTML(m.Text)
			if err != nil {
				return TranscriptResponse{}, err //nolint:wrapcheck // rendered as internal error
			}
			tm.HTML = html
		}
		resp.Messages[i] = tm
	}
	return resp, nil
}

// BudgetStatus is the state of the chat token budget.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	Unlimited       bool       `json:"unlimited"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse reports chat token consumption.
type UsageResponse struct {
	Period        domusage.Period `json:"period"`
	Provider      string          `json:"provider,omitempty"`
	PeriodStartAt *time.Time      `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time      `json:"period_end_at,omitempty"`
	Tokens        int64           `json:"tokens"`
	Budget        BudgetStatus    `json:"budget"`
}

func usageToResponse(r domusage.Report) UsageResponse {
	b := r.Budget()
	resp := UsageResponse{
		Period:   r.Period(),
		Provider: r.Provider(),
		Tokens:   r.TokensUsed(),
		Budget: BudgetStatus{
			TokensLimit:     b.TokensLimit(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
			Unlimited:       b.Unlimited(),
		},
	}
	if r.PeriodStart() > 0 {
		start := time.UnixMilli(r.PeriodStart()).UTC()
		end := time.UnixMilli(r.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}
	if b.ResetsAt() > 0 && !b.Unlimited() {
		resetsAt := time.UnixMilli(b.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}
	return resp
}

// FeedbackRequest is the body of the feedback relay.
type FeedbackRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SignupRequest is the body of the signup relay.
type SignupRequest struct {
	Email string `json:"email"`
}

// StatusMessage is the user-facing outcome of a relay.
type StatusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
