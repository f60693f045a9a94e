package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/db/memory"
	"github.com/paperfinder/paperfinder/internal/domain"
	domchat "github.com/paperfinder/paperfinder/internal/domain/chat"
	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/domain/match"
	"github.com/paperfinder/paperfinder/internal/domain/search/request"
	reposession "github.com/paperfinder/paperfinder/internal/repository/session"
	"github.com/paperfinder/paperfinder/internal/transport/assets"
	chatuc "github.com/paperfinder/paperfinder/internal/usecase/chat"
	feedbackuc "github.com/paperfinder/paperfinder/internal/usecase/feedback"
	healthuc "github.com/paperfinder/paperfinder/internal/usecase/health"
	searchuc "github.com/paperfinder/paperfinder/internal/usecase/search"
	sessionuc "github.com/paperfinder/paperfinder/internal/usecase/session"
	usageuc "github.com/paperfinder/paperfinder/internal/usecase/usage"
	worksheetuc "github.com/paperfinder/paperfinder/internal/usecase/worksheet"
)

// --- Fakes ---

type fakeIndex struct {
	matches []match.Match
	err     error
	calls   int
}

func (f *fakeIndex) Matches(context.Context, request.Query) ([]match.Match, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

type fakeOCR struct {
	text string
}

func (f *fakeOCR) Recognize(context.Context, domain.Image) (string, error) { return f.text, nil }

type fakeStream struct {
	deltas []domchat.Delta
}

func (f *fakeStream) Recv() (domchat.Delta, error) {
	if len(f.deltas) == 0 {
		return domchat.Delta{}, io.EOF
	}
	d := f.deltas[0]
	f.deltas = f.deltas[1:]
	return d, nil
}

func (f *fakeStream) Close() error { return nil }

type fakeProvider struct {
	deltas []string
	err    error
}

func (f *fakeProvider) Stream(context.Context, domchat.Request) (domchat.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := &fakeStream{}
	for _, d := range f.deltas {
		st.deltas = append(st.deltas, domchat.Delta{Content: d})
	}
	return st, nil
}

type fakeMailer struct {
	configured bool
	sent       int
}

func (f *fakeMailer) Configured() bool { return f.configured }

func (f *fakeMailer) SendFeedback(context.Context, string, string) error {
	f.sent++
	return nil
}

type fakeSubscriber struct{}

func (fakeSubscriber) Subscribe(context.Context, string) error { return nil }

// --- Harness ---

type harness struct {
	handler  http.Handler
	index    *fakeIndex
	provider *fakeProvider
	mailer   *fakeMailer
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	sessions := reposession.New(store, time.Hour)

	idx := &fakeIndex{matches: []match.Match{
		match.New("2019-june-h-1h-q4.png", "Solve x", 0.91),
		match.New("2020-november-f-2f-q7.png", "Expand brackets", 0.82),
		match.New("2018-june-h-3h-q1.png", "Pythagoras", 0.77),
	}}
	provider := &fakeProvider{deltas: []string{"Try ", "factorising."}}
	mailer := &fakeMailer{}

	a := label.DefaultAssets()
	fetcher := assets.NewFS(fstest.MapFS{
		"edexcel-gcse-maths-questions/2019-june-h-1h-q4.png": {Data: pngBytes(t, 400, 120)},
		"edexcel-gcse-maths-answers/2019-june-h-1h-q4.png":   {Data: pngBytes(t, 400, 80)},
	})

	search := searchuc.New(idx, nil, &fakeOCR{text: "Solve x"}, logger)
	svc := Services{
		Sessions:   sessionuc.New(sessions, search),
		Search:     search,
		Chat:       chatuc.New(provider, nil, sessions, fetcher, a, logger),
		Worksheets: worksheetuc.New(fetcher, sessions, a, logger),
		Feedback:   feedbackuc.New(mailer, fakeSubscriber{}, logger),
		Usage:      usageuc.New(nil, "openai"),
		Health:     healthuc.New(store, nil),
	}

	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	NewServer(svc, a, logger).Routes(r)
	return &harness{handler: r, index: idx, provider: provider, mailer: mailer}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func (h *harness) newSession(t *testing.T) string {
	t.Helper()
	rr := h.do(t, http.MethodPost, "/v1/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rr.Code, rr.Body.String())
	}
	return decode[SessionResponse](t, rr).ID
}

func (h *harness) searchSession(t *testing.T, id string) SessionResponse {
	t.Helper()
	rr := h.do(t, http.MethodPost, "/v1/sessions/"+id+"/search", SearchRequest{Query: "solve for x"})
	if rr.Code != http.StatusOK {
		t.Fatalf("session search: %d %s", rr.Code, rr.Body.String())
	}
	return decode[SessionResponse](t, rr)
}

// --- Tests ---

func TestGetLabel(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/v1/labels/2019-june-h-1h-q4.png", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	resp := decode[LabelResponse](t, rr)
	if resp.DisplayName != "2019 June Higher • Paper 1 • Question 4" {
		t.Errorf("display name = %q", resp.DisplayName)
	}
	if resp.PaperPath != "/edexcel-gcse-maths-papers/2019-june-h-1h.pdf" {
		t.Errorf("paper path = %q", resp.PaperPath)
	}
	if resp.MarkschemePath != "/edexcel-gcse-maths-markschemes/2019-june-h-1h.pdf" {
		t.Errorf("markscheme path = %q", resp.MarkschemePath)
	}
}

func TestSearch_EmptyQueryNeverReachesIndex(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodPost, "/v1/search", SearchRequest{Query: "   "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != CodeEmptyQuery {
		t.Errorf("code = %q", resp.Code)
	}
	if h.index.calls != 0 {
		t.Errorf("index called %d times", h.index.calls)
	}
}

func TestSearch_UpstreamFailureYieldsErrorMatch(t *testing.T) {
	h := newHarness(t)
	h.index.err = domain.NewUpstreamError("pinecone", 500, "boom")

	rr := h.do(t, http.MethodPost, "/v1/search", SearchRequest{Query: "solve"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	resp := decode[SearchResponse](t, rr)
	if len(resp.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(resp.Matches))
	}
	if m := resp.Matches[0]; m.LabelID != match.ErrorLabelID || m.Similarity != 0 {
		t.Errorf("unexpected sentinel %+v", m)
	}
}

func TestSearch_SecondaryBackendNotConfigured(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodPost, "/v1/search", SearchRequest{
		Query:   "solve",
		Filters: &FiltersBody{Backend: "method2"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestSearch_InvalidFilters(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodPost, "/v1/search", SearchRequest{
		Query:   "solve",
		Filters: &FiltersBody{ResultCount: 51},
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)

	sess := h.searchSession(t, id)
	if len(sess.Matches) != 3 || sess.CurrentIndex != 0 {
		t.Fatalf("unexpected matches %d / index %d", len(sess.Matches), sess.CurrentIndex)
	}
	if sess.Current == nil || sess.Current.LabelID != "2019-june-h-1h-q4.png" {
		t.Fatalf("unexpected current %+v", sess.Current)
	}

	rr := h.do(t, http.MethodPost, "/v1/sessions/"+id+"/matches/prev", nil)
	if got := decode[SessionResponse](t, rr).CurrentIndex; got != 2 {
		t.Errorf("prev from 0 = %d, want 2", got)
	}
	rr = h.do(t, http.MethodPost, "/v1/sessions/"+id+"/matches/next", nil)
	if got := decode[SessionResponse](t, rr).CurrentIndex; got != 0 {
		t.Errorf("next wrap = %d, want 0", got)
	}

	rr = h.do(t, http.MethodPost, "/v1/sessions/"+id+"/selection/toggle",
		SelectionRequest{LabelID: "2019-june-h-1h-q4.png"})
	if sel := decode[SelectionResponse](t, rr); !sel.Selected || len(sel.Selection) != 1 {
		t.Errorf("toggle in: %+v", sel)
	}

	rr = h.do(t, http.MethodDelete, "/v1/sessions/"+id, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	rr = h.do(t, http.MethodGet, "/v1/sessions/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete: %d, want 404", rr.Code)
	}
}

func TestSessionSearch_EmptyQueryLeavesSessionUntouched(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.searchSession(t, id)

	rr := h.do(t, http.MethodPost, "/v1/sessions/"+id+"/search", SearchRequest{Query: ""})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	rr = h.do(t, http.MethodGet, "/v1/sessions/"+id, nil)
	if got := decode[SessionResponse](t, rr); len(got.Matches) != 3 || got.Query != "solve for x" {
		t.Errorf("session changed: %+v", got)
	}
}

func TestSessionSearchImage(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id+"/search/image",
		bytes.NewReader(pngBytes(t, 10, 10)))
	req.Header.Set("Content-Type", "image/png")
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if got := decode[SessionResponse](t, rr); got.Query != "Solve x" || len(got.Matches) != 3 {
		t.Errorf("unexpected session %+v", got)
	}
}

func TestRemoveSelection_NotSelected(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	rr := h.do(t, http.MethodDelete, "/v1/sessions/"+id+"/selection/missing.png", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rr.Code)
	}
}

func TestAnnotations_DrawUndoAndOverlay(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.searchSession(t, id)
	base := "/v1/sessions/" + id + "/annotations"

	rr := h.do(t, http.MethodPut, base+"/mode", ModeRequest{Mode: "pen"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set mode: %d %s", rr.Code, rr.Body.String())
	}

	vp := ViewportBody{DisplayWidth: 200, DisplayHeight: 100, Width: 400, Height: 200}
	rr = h.do(t, http.MethodPost, base+"/events", EventsRequest{Events: []EventBody{
		{Type: "down", Surface: "question", ClientX: 10, ClientY: 10, Viewport: vp},
		{Type: "move", Surface: "question", ClientX: 20, ClientY: 20, Viewport: vp},
		{Type: "up", Surface: "question", ClientX: 20, ClientY: 20, Viewport: vp},
	}})
	if rr.Code != http.StatusOK {
		t.Fatalf("events: %d %s", rr.Code, rr.Body.String())
	}
	ev := decode[EventsResponse](t, rr)
	if len(ev.Outcomes) != 3 || !ev.Outcomes[2].Committed {
		t.Fatalf("stroke not committed: %+v", ev.Outcomes)
	}

	rr = h.do(t, http.MethodGet, base+"/question", nil)
	d := decode[DrawingResponse](t, rr)
	if len(d.Paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(d.Paths))
	}
	if p := d.Paths[0].Points[0]; p.X != 20 || p.Y != 20 {
		t.Errorf("first point %+v, want mapped to (20,20)", p)
	}

	rr = h.do(t, http.MethodGet, base+"/question/overlay.png?width=400&height=200", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("overlay: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	if _, err := png.Decode(rr.Body); err != nil {
		t.Errorf("overlay is not a png: %v", err)
	}

	rr = h.do(t, http.MethodPost, base+"/undo", nil)
	if got := decode[ChangeResponse](t, rr); !got.Changed {
		t.Error("undo reported no change")
	}
	rr = h.do(t, http.MethodGet, base+"/question", nil)
	if d := decode[DrawingResponse](t, rr); len(d.Paths) != 0 {
		t.Errorf("expected no paths after undo, got %d", len(d.Paths))
	}
}

func TestAnnotations_UnknownSurface(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	rr := h.do(t, http.MethodGet, "/v1/sessions/"+id+"/annotations/sidebar", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestExportWorksheet(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.searchSession(t, id)
	h.do(t, http.MethodPost, "/v1/sessions/"+id+"/selection/toggle", SelectionRequest{LabelID: "2019-june-h-1h-q4.png"})

	rr := h.do(t, http.MethodPost, "/v1/sessions/"+id+"/worksheet?mode=interleaved", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "selected-interleaved.pdf") {
		t.Errorf("content disposition %q", cd)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
}

func TestExportWorksheet_MissingAssetAborts(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.do(t, http.MethodPost, "/v1/sessions/"+id+"/selection/toggle", SelectionRequest{LabelID: "2018-june-h-3h-q1.png"})

	rr := h.do(t, http.MethodPost, "/v1/sessions/"+id+"/worksheet?mode=questions", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rr.Code)
	}
}

func TestChatStream_MissingMessages(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodPost, "/v1/chat/stream", ChatRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Message != "Messages are required" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestChatStream_SSE(t *testing.T) {
	h := newHarness(t)
	body := `{"messages":[{"role":"user","content":[{"type":"text","text":"hi"},` +
		`{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type %q", ct)
	}
	want := "data: {\"content\":\"Try \"}\n\ndata: {\"content\":\"factorising.\"}\n\ndata: [DONE]\n\n"
	if got := rr.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestChatStream_UpstreamFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.err = errors.New("dial tcp: refused")

	rr := h.do(t, http.MethodPost, "/v1/chat/stream", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Message != "Internal Server Error" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestTutor_StreamsAndStoresTranscript(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	h.searchSession(t, id)

	rr := h.do(t, http.MethodPost, "/v1/sessions/"+id+"/tutor", TutorRequest{Action: "hint"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	out := rr.Body.String()
	if !strings.Contains(out, `"done":true`) || !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Errorf("unexpected stream %q", out)
	}

	rr = h.do(t, http.MethodGet, "/v1/sessions/"+id+"/tutor", nil)
	tr := decode[TranscriptResponse](t, rr)
	if len(tr.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(tr.Messages))
	}
	if last := tr.Messages[1]; last.Text != "Try factorising." || !strings.Contains(last.HTML, "<p>") {
		t.Errorf("unexpected reply %+v", last)
	}
}

func TestTutor_NoQuestion(t *testing.T) {
	h := newHarness(t)
	id := h.newSession(t)
	rr := h.do(t, http.MethodPost, "/v1/sessions/"+id+"/tutor", TutorRequest{Message: "help"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rr.Code)
	}
}

func TestFeedback(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodPost, "/v1/feedback", FeedbackRequest{Message: "hi"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank email: %d", rr.Code)
	}
	if got := decode[StatusMessage](t, rr).Message; got != feedbackuc.MsgEmailRequired {
		t.Errorf("message = %q", got)
	}

	rr = h.do(t, http.MethodPost, "/v1/feedback", FeedbackRequest{Email: "a@b.c", Message: "hi"})
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("not configured: %d", rr.Code)
	}

	h.mailer.configured = true
	rr = h.do(t, http.MethodPost, "/v1/feedback", FeedbackRequest{Email: "a@b.c", Message: "hi"})
	if rr.Code != http.StatusOK {
		t.Fatalf("send: %d", rr.Code)
	}
	if got := decode[StatusMessage](t, rr).Message; got != feedbackuc.MsgSent {
		t.Errorf("message = %q", got)
	}
	if h.mailer.sent != 1 {
		t.Errorf("sent = %d", h.mailer.sent)
	}
}

func TestSignup_BlankEmail(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodPost, "/v1/signup", SignupRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	if got := decode[StatusMessage](t, rr).Message; got != feedbackuc.MsgSignupEmailRequired {
		t.Errorf("message = %q", got)
	}
}

func TestChatBudget(t *testing.T) {
	h := newHarness(t)

	rr := h.do(t, http.MethodGet, "/v1/chat/budget", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if resp := decode[UsageResponse](t, rr); resp.Period != "day" || resp.Provider != "openai" {
		t.Errorf("unexpected report %+v", resp)
	}

	rr = h.do(t, http.MethodGet, "/v1/chat/budget?period=week", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad period: %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if resp := decode[HealthResponse](t, rr); resp.Status != healthuc.Healthy {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	rr := h.do(t, http.MethodGet, "/v1/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr); resp.Code != CodeNotFound {
		t.Errorf("code = %q", resp.Code)
	}
}
