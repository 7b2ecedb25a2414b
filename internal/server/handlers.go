// File: internal/server/handlers.go
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/api/schemas"
	"github.com/xkilldash9x/smishguard/internal/store"
)

// maxBodyBytes caps request bodies before decoding.
const maxBodyBytes = 1 << 20

// Health describes the readiness of both classification stages.
type Health struct {
	Status               string                 `json:"status"`
	Message              string                 `json:"message"`
	Version              string                 `json:"version"`
	ReputationConfigured bool                   `json:"reputation_configured"`
	ModelLoaded          bool                   `json:"model_loaded"`
	Model                *schemas.ModelMetadata `json:"model,omitempty"`
}

// HealthFunc reports the current Health.
type HealthFunc func() Health

// Limits bounds inbound requests.
type Limits struct {
	MaxTextLength int
	MaxURLs       int
}

// TextRequest is the body of POST /api/v1/analyze/text.
type TextRequest struct {
	Text string `json:"text"`
}

// URLsRequest is the body of POST /api/v1/analyze/urls.
type URLsRequest struct {
	URLs []string `json:"urls"`
}

// AnalysisResponse wraps a report for API clients.
type AnalysisResponse struct {
	Success        bool                    `json:"success"`
	InputType      schemas.InputType       `json:"input_type"`
	FinalRiskLevel schemas.RiskLevel       `json:"final_risk_level"`
	Message        string                  `json:"message"`
	Report         *schemas.AnalysisReport `json:"report"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handlers manages the HTTP request handling for the API.
type Handlers struct {
	log      *zap.Logger
	analyzer schemas.Analyzer
	reports  schemas.ReportStore
	health   HealthFunc
	limits   Limits
}

// NewHandlers creates a new Handlers instance. reports may be nil when
// history is disabled.
func NewHandlers(logger *zap.Logger, analyzer schemas.Analyzer, reports schemas.ReportStore, health HealthFunc, limits Limits) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if health == nil {
		health = func() Health { return Health{} }
	}
	return &Handlers{
		log:      logger.Named("handlers"),
		analyzer: analyzer,
		reports:  reports,
		health:   health,
		limits:   limits,
	}
}

// RegisterRoutes sets up the API routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Post("/analyze/text", h.HandleAnalyzeText)
		r.Post("/analyze/urls", h.HandleAnalyzeURLs)
		r.Get("/reports", h.HandleListReports)
		r.Get("/reports/{id}", h.HandleGetReport)
	})
}

// HandleHealth confirms the server is responsive and reports stage readiness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.health()
	if health.Status == "" {
		health.Status = "healthy"
	}
	if health.Message == "" {
		health.Message = "URL analysis API is running"
	}
	h.respond(w, http.StatusOK, health)
}

// HandleAnalyzeText extracts URLs from a message and assesses them.
func (h *Handlers) HandleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := utf8.RuneCountInString(req.Text)
	if strings.TrimSpace(req.Text) == "" {
		h.respondWithError(w, http.StatusUnprocessableEntity, "text must not be empty")
		return
	}
	if h.limits.MaxTextLength > 0 && n > h.limits.MaxTextLength {
		h.respondWithError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("text must be at most %d characters", h.limits.MaxTextLength))
		return
	}

	report := h.analyzer.Analyze(r.Context(), schemas.AnalysisRequest{Text: req.Text})
	h.respondWithReport(w, report)
}

// HandleAnalyzeURLs assesses URLs decoded by an upstream OCR or QR step.
func (h *Handlers) HandleAnalyzeURLs(w http.ResponseWriter, r *http.Request) {
	var req URLsRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.URLs) == 0 {
		h.respondWithError(w, http.StatusUnprocessableEntity, "urls must not be empty")
		return
	}
	if h.limits.MaxURLs > 0 && len(req.URLs) > h.limits.MaxURLs {
		h.respondWithError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("at most %d urls may be submitted at once", h.limits.MaxURLs))
		return
	}

	report := h.analyzer.Analyze(r.Context(), schemas.AnalysisRequest{URLs: req.URLs})
	h.respondWithReport(w, report)
}

// HandleGetReport returns a stored report.
func (h *Handlers) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.respondWithError(w, http.StatusNotFound, "report history is disabled")
		return
	}
	id := chi.URLParam(r, "id")
	report, err := h.reports.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.respondWithError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		h.log.Error("Failed to load report", zap.String("id", id), zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	h.respond(w, http.StatusOK, report)
}

// HandleListReports returns the most recent reports, newest first.
func (h *Handlers) HandleListReports(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		h.respondWithError(w, http.StatusNotFound, "report history is disabled")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			h.respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	reports, err := h.reports.ListRecent(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to list reports", zap.Error(err))
		h.respondWithError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	h.respond(w, http.StatusOK, reports)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func (h *Handlers) respondWithReport(w http.ResponseWriter, report *schemas.AnalysisReport) {
	h.respond(w, http.StatusOK, AnalysisResponse{
		Success:        true,
		InputType:      report.InputType,
		FinalRiskLevel: report.Assessment.Level,
		Message:        report.Assessment.Message,
		Report:         report,
	})
}

// respondWithError sends a standardized JSON error response.
func (h *Handlers) respondWithError(w http.ResponseWriter, statusCode int, message string) {
	h.respond(w, statusCode, ErrorResponse{Error: message})
}

func (h *Handlers) respond(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}
