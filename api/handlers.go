/*
handlers.go - HTTP API handlers for graduation checks

PURPOSE:
  Exposes the audit service via REST API. Handles HTTP request/response,
  upload limits and JSON serialization, and delegates to audit.Service.

ENDPOINTS:
  Evaluations:
    POST   /api/evaluations              Multipart upload, field "file" (.docx/.docm/.dotx)
    POST   /api/evaluations/transcript   Body: extraction-shaped JSON, ?name= labels it
    GET    /api/evaluations              History, ?limit= (default 50)
    GET    /api/evaluations/{id}         Stored evaluation
    GET    /api/evaluations/{id}/report  HTML report

  Curriculum:
    GET    /api/curriculum               Active rule set

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Rejected upload, malformed body or ID
  - 404: Evaluation not found
  - 413: Upload over the configured limit
  - 429: Extraction quota exhausted
  - 503: Extraction service unavailable
  - 504: Evaluation exceeded its time budget
  - 500: Internal errors

  A malformed answer from the extraction service is not an error; the
  evaluation proceeds on the parser's records.

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
  - audit/service.go: Evaluation pipeline
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/docx"
	"github.com/warp/curriculum-engine/extraction"
	"github.com/warp/curriculum-engine/report"
)

// DefaultMaxUpload is the upload limit when none is configured.
const DefaultMaxUpload = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	service *audit.Service
	logger  *zap.Logger

	// MaxUpload caps request bodies in bytes.
	MaxUpload int64
	// Timeout bounds one evaluation, extraction retries included. Zero means
	// only the client's connection bounds it.
	Timeout time.Duration
}

// NewHandler creates a new handler for the given service.
func NewHandler(service *audit.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:   service,
		logger:    logger,
		MaxUpload: DefaultMaxUpload,
	}
}

// =============================================================================
// EVALUATION ENDPOINTS
// =============================================================================

// UploadEvaluation handles POST /api/evaluations
func (h *Handler) UploadEvaluation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	if err := r.ParseMultipartForm(h.MaxUpload); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, "no file uploaded", docx.ErrNoFile)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload", err)
		return
	}
	defer file.Close()

	if err := docx.CheckFilename(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, "unsupported file", err)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload", err)
		return
	}
	text, err := docx.ReadBytes(data)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.evaluationContext(r.Context())
	defer cancel()

	e, err := h.service.Evaluate(ctx, audit.Request{Filename: header.Filename, Text: text})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// EvaluateTranscript handles POST /api/evaluations/transcript
func (h *Handler) EvaluateTranscript(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "transcript.json"
	}

	ctx, cancel := h.evaluationContext(r.Context())
	defer cancel()

	e, err := h.service.EvaluateTranscript(ctx, name, raw)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ListEvaluations handles GET /api/evaluations
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	list, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	dtos := make([]EvaluationSummaryDTO, len(list))
	for i, e := range list {
		dtos[i] = toSummaryDTO(e)
	}
	writeJSON(w, http.StatusOK, EvaluationListDTO{Evaluations: dtos, Count: len(dtos)})
}

// GetEvaluation handles GET /api/evaluations/{id}
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GetReport handles GET /api/evaluations/{id}/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(report.HTML(e))
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*audit.Evaluation, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid evaluation ID", err)
		return nil, false
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return nil, false
	}
	return e, true
}

// =============================================================================
// CURRICULUM & HEALTH
// =============================================================================

// GetCurriculum handles GET /api/curriculum
func (h *Handler) GetCurriculum(w http.ResponseWriter, r *http.Request) {
	rules := h.service.Rules()
	writeJSON(w, http.StatusOK, CurriculumDTO{
		Version:    rules.Version(),
		Name:       rules.Name(),
		Extensions: docx.Extensions,
		Definition: rules.Definition(),
	})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthDTO{
		Status:            "ok",
		Offline:           h.service.Offline(),
		CurriculumVersion: h.service.Rules().Version(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) evaluationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.Timeout)
}

// writeServiceError maps pipeline errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case audit.IsClientError(err):
		writeErrorCode(w, http.StatusBadRequest, "document_rejected", "document rejected", err)
	case audit.IsNotFound(err):
		writeErrorCode(w, http.StatusNotFound, "not_found", "evaluation not found", err)
	case extraction.IsQuota(err):
		writeErrorCode(w, http.StatusTooManyRequests, "quota_exceeded", "extraction quota exceeded, try again later", err)
	case audit.IsUpstream(err):
		writeErrorCode(w, http.StatusServiceUnavailable, "extraction_unavailable", "extraction service unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeErrorCode(w, http.StatusGatewayTimeout, "timeout", "evaluation timed out", err)
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorCode(w, status, "", message, err)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
