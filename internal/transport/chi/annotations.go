package chi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/paperfinder/paperfinder/internal/domain/annotation"
	"github.com/paperfinder/paperfinder/internal/render"
)

// ModeRequest selects the annotation tool.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// TextRequest submits or cancels the open text input.
type TextRequest struct {
	Text   string `json:"text"`
	Cancel bool   `json:"cancel"`
}

// ChangeResponse reports whether an edit changed anything.
type ChangeResponse struct {
	Changed bool       `json:"changed"`
	Board   BoardState `json:"board"`
}

// SetAnnotationMode handles PUT /v1/sessions/{id}/annotations/mode.
func (s *Server) SetAnnotationMode(w http.ResponseWriter, r *http.Request) {
	var body ModeRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	m, err := annotation.ParseMode(body.Mode)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sess, err := s.sessions.SetMode(r.Context(), sessionID(r), m)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(sess).Board)
}

// AnnotationEvents handles POST /v1/sessions/{id}/annotations/events.
func (s *Server) AnnotationEvents(w http.ResponseWriter, r *http.Request) {
	var body EventsRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body.Events) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFail, "events are required")
		return
	}
	if len(body.Events) > maxEventsPerBatch {
		writeError(w, http.StatusBadRequest, CodeValidationFail,
			"too many events: max "+strconv.Itoa(maxEventsPerBatch))
		return
	}

	events := make([]annotation.Event, len(body.Events))
	for i, e := range body.Events {
		ev, err := e.toDomain()
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		events[i] = ev
	}

	sess, outcomes, err := s.sessions.HandleEvents(r.Context(), sessionID(r), events)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := EventsResponse{
		Outcomes: make([]OutcomeBody, len(outcomes)),
		Board:    sessionToResponse(sess).Board,
	}
	for i, o := range outcomes {
		resp.Outcomes[i] = outcomeToBody(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitAnnotationText handles POST /v1/sessions/{id}/annotations/text.
func (s *Server) SubmitAnnotationText(w http.ResponseWriter, r *http.Request) {
	var body TextRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	sess, added, err := s.sessions.SubmitText(r.Context(), sessionID(r), body.Text, body.Cancel)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeResponse{Changed: added, Board: sessionToResponse(sess).Board})
}

// UndoAnnotation handles POST /v1/sessions/{id}/annotations/undo.
func (s *Server) UndoAnnotation(w http.ResponseWriter, r *http.Request) {
	sess, removed, err := s.sessions.Undo(r.Context(), sessionID(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeResponse{Changed: removed, Board: sessionToResponse(sess).Board})
}

// ClearAnnotations handles POST /v1/sessions/{id}/annotations/clear.
func (s *Server) ClearAnnotations(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Clear(r.Context(), sessionID(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChangeResponse{Changed: true, Board: sessionToResponse(sess).Board})
}

// GetDrawing handles GET /v1/sessions/{id}/annotations/{surface}.
func (s *Server) GetDrawing(w http.ResponseWriter, r *http.Request) {
	surface, err := annotation.ParseSurface(chi.URLParam(r, "surface"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sess, err := s.sessions.Get(r.Context(), sessionID(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	d, err := sess.Drawing(surface)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drawingToResponse(sess.CurrentLabel(), surface, d))
}

// GetOverlay handles GET /v1/sessions/{id}/annotations/{surface}/overlay.png.
// width and height are the surface size; display_width optionally scales
// the result.
func (s *Server) GetOverlay(w http.ResponseWriter, r *http.Request) {
	surface, err := annotation.ParseSurface(chi.URLParam(r, "surface"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	q := r.URL.Query()
	width, werr := strconv.Atoi(q.Get("width"))
	height, herr := strconv.Atoi(q.Get("height"))
	if werr != nil || herr != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFail, "width and height are required integers")
		return
	}
	display := 0
	if v := q.Get("display_width"); v != "" {
		if display, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFail, "display_width must be an integer")
			return
		}
	}

	img, err := s.sessions.Overlay(r.Context(), sessionID(r), surface, width, height, display)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := render.EncodePNG(&buf, img); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
