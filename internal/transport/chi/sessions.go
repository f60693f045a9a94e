package chi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/paperfinder/paperfinder/internal/domain"
	domsession "github.com/paperfinder/paperfinder/internal/domain/session"
	domws "github.com/paperfinder/paperfinder/internal/domain/worksheet"
)

// CreateSessionRequest optionally carries initial filters.
type CreateSessionRequest struct {
	Filters *FiltersBody `json:"filters"`
}

// SearchRequest is a text search.
type SearchRequest struct {
	Query   string       `json:"query"`
	Filters *FiltersBody `json:"filters,omitempty"`
}

// SelectionRequest names a question to toggle.
type SelectionRequest struct {
	LabelID string `json:"label_id"`
}

// SelectionResponse reports the selection after a toggle.
type SelectionResponse struct {
	LabelID   string   `json:"label_id"`
	Selected  bool     `json:"selected"`
	Selection []string `json:"selection"`
}

func sessionID(r *http.Request) string { return chi.URLParam(r, "id") }

// CreateSession handles POST /v1/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	f, err := body.Filters.toDomain()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	sess, err := s.sessions.Create(r.Context(), f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r)(s.sessions.Get(r.Context(), sessionID(r)))
}

// DeleteSession handles DELETE /v1/sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), sessionID(r)); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFilters handles PUT /v1/sessions/{id}/filters.
func (s *Server) SetFilters(w http.ResponseWriter, r *http.Request) {
	var body FiltersBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	f, err := body.toDomain()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respondSession(w, r)(s.sessions.SetFilters(r.Context(), sessionID(r), f))
}

// SessionSearch handles POST /v1/sessions/{id}/search. Filters in the body
// replace the session's filters first.
func (s *Server) SessionSearch(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	id := sessionID(r)
	if body.Filters != nil {
		f, err := body.Filters.toDomain()
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		if _, err := s.sessions.SetFilters(r.Context(), id, f); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}
	s.respondSession(w, r)(s.sessions.Search(r.Context(), id, body.Query))
}

// SessionSearchImage handles POST /v1/sessions/{id}/search/image.
func (s *Server) SessionSearchImage(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.respondSession(w, r)(s.sessions.SearchImage(r.Context(), sessionID(r), img))
}

// NextMatch handles POST /v1/sessions/{id}/matches/next.
func (s *Server) NextMatch(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r)(s.sessions.Next(r.Context(), sessionID(r)))
}

// PrevMatch handles POST /v1/sessions/{id}/matches/prev.
func (s *Server) PrevMatch(w http.ResponseWriter, r *http.Request) {
	s.respondSession(w, r)(s.sessions.Prev(r.Context(), sessionID(r)))
}

// ToggleSelection handles POST /v1/sessions/{id}/selection/toggle.
func (s *Server) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	var body SelectionRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	sess, selected, err := s.sessions.ToggleSelection(r.Context(), sessionID(r), body.LabelID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{
		LabelID:   body.LabelID,
		Selected:  selected,
		Selection: nonNil(sess.Selection().IDs()),
	})
}

// RemoveSelection handles DELETE /v1/sessions/{id}/selection/{labelID}.
func (s *Server) RemoveSelection(w http.ResponseWriter, r *http.Request) {
	labelID := chi.URLParam(r, "labelID")
	sess, err := s.sessions.RemoveSelection(r.Context(), sessionID(r), labelID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{
		LabelID:   labelID,
		Selection: nonNil(sess.Selection().IDs()),
	})
}

// ExportWorksheet handles POST /v1/sessions/{id}/worksheet?mode=&annotated=.
func (s *Server) ExportWorksheet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := domws.ParseMode(q.Get("mode"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	annotated := false
	if v := q.Get("annotated"); v != "" {
		if annotated, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "annotated must be a boolean")
			return
		}
	}

	doc, err := s.worksheets.FromSession(r.Context(), sessionID(r), mode, annotated)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	w.Header().Set("X-Worksheet-Pages", strconv.Itoa(doc.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

// respondSession writes the session or maps the error.
func (s *Server) respondSession(w http.ResponseWriter, r *http.Request) func(domsession.Session, error) {
	return func(sess domsession.Session, err error) {
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionToResponse(sess))
	}
}

// readImage takes the upload from a multipart "image" field or the raw body.
func readImage(r *http.Request) (domain.Image, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(domain.MaxImageBytes); err != nil {
			return domain.Image{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			return domain.Image{}, fmt.Errorf("%w: image field is required", domain.ErrInvalidInput)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return domain.Image{}, fmt.Errorf("%w: read upload: %v", domain.ErrInvalidInput, err)
		}
		return domain.NewImage(data, hdr.Header.Get("Content-Type")) //nolint:wrapcheck // domain error
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return domain.Image{}, fmt.Errorf("%w: read body: %v", domain.ErrInvalidInput, err)
	}
	return domain.NewImage(data, r.Header.Get("Content-Type")) //nolint:wrapcheck // domain error
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
