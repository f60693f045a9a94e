package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/paperfinder/paperfinder/internal/domain/label"
	"github.com/paperfinder/paperfinder/internal/domain/search/filter"
	domusage "github.com/paperfinder/paperfinder/internal/domain/usage"
	chatuc "github.com/paperfinder/paperfinder/internal/usecase/chat"
	feedbackuc "github.com/paperfinder/paperfinder/internal/usecase/feedback"
	healthuc "github.com/paperfinder/paperfinder/internal/usecase/health"
	searchuc "github.com/paperfinder/paperfinder/internal/usecase/search"
	sessionuc "github.com/paperfinder/paperfinder/internal/usecase/session"
	usageuc "github.com/paperfinder/paperfinder/internal/usecase/usage"
	worksheetuc "github.com/paperfinder/paperfinder/internal/usecase/worksheet"
)

const (
	maxJSONBytes      = 1 << 20
	maxUploadBytes    = 11 << 20
	maxEventsPerBatch = 2000
)

// Services are the use cases behind the HTTP API.
type Services struct {
	Sessions   *sessionuc.Service
	Search     *searchuc.Service
	Chat       *chatuc.Service
	Worksheets *worksheetuc.Service
	Feedback   *feedbackuc.Service
	Usage      *usageuc.Service
	Health     *healthuc.Service
}

// Server serves the paperfinder HTTP API.
type Server struct {
	sessions      *sessionuc.Service
	search        *searchuc.Service
	chat          *chatuc.Service
	worksheets    *worksheetuc.Service
	feedback      *feedbackuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	assets        label.Assets
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, assets label.Assets, logger *zap.Logger) *Server {
	return &Server{
		sessions:      svc.Sessions,
		search:        svc.Search,
		chat:          svc.Chat,
		worksheets:    svc.Worksheets,
		feedback:      svc.Feedback,
		usage:         svc.Usage,
		health:        svc.Health,
		assets:        assets,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/labels/{labelID}", s.GetLabel)
		r.Post("/search", s.Search)
		r.Post("/ocr", s.OCR)

		r.Post("/chat/stream", s.ChatStream)
		r.Get("/chat/budget", s.ChatBudget)

		r.Post("/feedback", s.SendFeedback)
		r.Post("/signup", s.Signup)

		r.Post("/sessions", s.CreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Put("/filters", s.SetFilters)

			r.Post("/search", s.SessionSearch)
			r.Post("/search/image", s.SessionSearchImage)
			r.Post("/matches/next", s.NextMatch)
			r.Post("/matches/prev", s.PrevMatch)

			r.Post("/selection/toggle", s.ToggleSelection)
			r.Delete("/selection/{labelID}", s.RemoveSelection)

			r.Put("/annotations/mode", s.SetAnnotationMode)
			r.Post("/annotations/events", s.AnnotationEvents)
			r.Post("/annotations/text", s.SubmitAnnotationText)
			r.Post("/annotations/undo", s.UndoAnnotation)
			r.Post("/annotations/clear", s.ClearAnnotations)
			r.Get("/annotations/{surface}", s.GetDrawing)
			r.Get("/annotations/{surface}/overlay.png", s.GetOverlay)

			r.Post("/worksheet", s.ExportWorksheet)

			r.Post("/tutor", s.Tutor)
			r.Get("/tutor", s.Transcript)
		})
	})
}

// NotFound is the JSON 404 for unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
}

// MethodNotAllowed is the JSON 405 for known routes.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
}

// GetLabel handles GET /v1/labels/{labelID}.
func (s *Server) GetLabel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "labelID")
	if err := label.Validate(id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labelToResponse(id, s.assets))
}

// Search handles POST /v1/search. Upstream failures come back as the
// sentinel match with status 200.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	f, err := body.Filters.toDomain()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if f.Backend() == filter.BackendSecondary && !s.search.HasBackend(f.Backend()) {
		writeError(w, http.StatusBadRequest, CodeValidationFail, "search backend "+string(f.Backend())+" is not configured")
		return
	}
	res, err := s.search.Search(r.Context(), body.Query, f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: res.Query, Matches: matchesToItems(res.Matches)})
}

// OCRResponse is the recognized text of an upload.
type OCRResponse struct {
	Text string `json:"text"`
}

// OCR handles POST /v1/ocr.
func (s *Server) OCR(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	text, err := s.search.Recognize(r.Context(), img)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OCRResponse{Text: text})
}

// ChatBudget handles GET /v1/chat/budget?period=day|month|total.
func (s *Server) ChatBudget(w http.ResponseWriter, r *http.Request) {
	period, err := domusage.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usageToResponse(s.usage.GetReport(r.Context(), period)))
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status healthuc.Status                  `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// SendFeedback handles POST /v1/feedback.
func (s *Server) SendFeedback(w http.ResponseWriter, r *http.Request) {
	var body FeedbackRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	msg, err := s.feedback.Send(r.Context(), body.Email, body.Message)
	if err != nil {
		s.relayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusMessage{Status: "success", Message: msg})
}

// Signup handles POST /v1/signup.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var body SignupRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.feedback.Signup(r.Context(), body.Email); err != nil {
		s.relayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusMessage{Status: "success", Message: "Thanks! We'll be in touch."})
}

func (s *Server) relayError(w http.ResponseWriter, r *http.Request, err error) {
	fe, ok := feedbackuc.AsError(err)
	if !ok {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusBadGateway
	switch fe.Kind {
	case feedbackuc.KindInvalid:
		status = http.StatusBadRequest
	case feedbackuc.KindNotConfigured:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, StatusMessage{Status: "error", Message: fe.Message})
}
