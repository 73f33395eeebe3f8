package surveyhandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clima/internal/domain/audit"
	"clima/internal/domain/catalog"
	"clima/internal/domain/survey"
	"clima/internal/platform/metrics"
	"clima/internal/transport/http/api"
	"clima/internal/transport/http/middleware"
	"clima/internal/transport/http/shared"
)

type Handler struct {
	Service     *survey.Service
	Idempotency *middleware.IdempotencyStore
	Audit       *audit.Service
	Metrics     *metrics.Collector
}

func NewHandler(service *survey.Service, idem *middleware.IdempotencyStore, auditSvc *audit.Service, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Idempotency: idem, Audit: auditSvc, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/survey", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/submissions", h.handleSubmit)
	})
	r.With(middleware.RequireAuth).Get("/survey-responses/mine", h.handleMyResponse)
}

type submitPayload struct {
	Section   string         `json:"section"`
	SubjectID string         `json:"subjectId"`
	PeriodID  string         `json:"periodId"`
	Category  string         `json:"category"`
	Answers   map[string]any `json:"answers"`
	Comment   string         `json:"comment"`
	Anonymous *bool          `json:"anonymous"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read request body", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash(raw)
	if idempotencyKey != "" {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, "survey.submit", idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "err", err)
		}
		if found {
			api.Success(w, json.RawMessage(stored), middleware.GetRequestID(r.Context()))
			return
		}
	}

	resp, err := h.Service.Submit(r.Context(), survey.Submission{
		EvaluatorID: user.EmployeeID,
		SubjectID:   payload.SubjectID,
		PeriodID:    payload.PeriodID,
		Section:     payload.Section,
		Category:    payload.Category,
		Answers:     payload.Answers,
		Comment:     payload.Comment,
		Anonymous:   payload.Anonymous,
	})
	if err != nil {
		h.failSubmit(w, r, err)
		return
	}

	merged := !resp.UpdatedAt.Equal(resp.CreatedAt)
	if h.Metrics != nil {
		h.Metrics.RecordSubmission(resp.Section, merged)
	}

	// Comments never reach the audit trail; only the shape of the write does.
	summary := map[string]any{
		"section":   resp.Section,
		"periodId":  resp.PeriodID,
		"questions": len(payload.Answers),
		"merged":    merged,
	}
	if err := h.Audit.Record(r.Context(), user.UserID, "survey.submit", "response", resp.SubjectID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, summary); err != nil {
		slog.Warn("audit survey.submit failed", "err", err)
	}

	if idempotencyKey != "" {
		encoded, err := json.Marshal(resp)
		if err != nil {
			slog.Warn("idempotency response encode failed", "err", err)
		} else if err := h.Idempotency.Save(r.Context(), user.UserID, "survey.submit", idempotencyKey, requestHash, encoded); err != nil {
			slog.Warn("idempotency save failed", "err", err)
		}
	}

	api.Success(w, resp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failSubmit(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, survey.ErrMissingAnonymityChoice):
		h.recordError("anonymity_required")
		api.Fail(w, http.StatusBadRequest, "anonymity_required", "first submission must state the anonymity choice", requestID)
	case errors.Is(err, survey.ErrSelfEvaluation):
		h.recordError("self_evaluation")
		api.Fail(w, http.StatusBadRequest, "self_evaluation", "peer evaluation cannot target yourself", requestID)
	case errors.Is(err, survey.ErrInvalidSubmission):
		h.recordError("invalid")
		api.Fail(w, http.StatusBadRequest, "invalid_submission", err.Error(), requestID)
	case errors.Is(err, survey.ErrPeriodMismatch):
		h.recordError("period_mismatch")
		api.Fail(w, http.StatusConflict, "period_mismatch", "existing response belongs to a different period", requestID)
	case errors.Is(err, catalog.ErrPeriodNotActive):
		h.recordError("period_not_active")
		api.Fail(w, http.StatusConflict, "period_not_active", "evaluation period is not accepting responses", requestID)
	case errors.Is(err, catalog.ErrNoActivePeriod):
		h.recordError("no_active_period")
		api.Fail(w, http.StatusConflict, "no_active_period", "no evaluation period is currently active", requestID)
	case errors.Is(err, catalog.ErrPeriodNotFound):
		h.recordError("period_not_found")
		api.Fail(w, http.StatusNotFound, "period_not_found", "evaluation period not found", requestID)
	default:
		h.recordError("internal")
		slog.Error("survey submit failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "submit_failed", "failed to save submission", requestID)
	}
}

func (h *Handler) recordError(reason string) {
	if h.Metrics != nil {
		h.Metrics.RecordSubmissionError(reason)
	}
}

func (h *Handler) handleMyResponse(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	subjectID := r.URL.Query().Get("subjectId")
	periodID := r.URL.Query().Get("periodId")

	resp, err := h.Service.MyResponse(r.Context(), user.EmployeeID, subjectID, periodID)
	if errors.Is(err, survey.ErrResponseNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "no saved response yet", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, catalog.ErrNoActivePeriod) {
		api.Fail(w, http.StatusConflict, "no_active_period", "no evaluation period is currently active", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "response_load_failed", "failed to load response", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, resp, middleware.GetRequestID(r.Context()))
}
