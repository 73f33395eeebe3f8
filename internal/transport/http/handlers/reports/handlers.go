package reportshandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clima/internal/domain/auth"
	"clima/internal/domain/catalog"
	"clima/internal/domain/directory"
	"clima/internal/domain/reporting"
	"clima/internal/transport/http/api"
	"clima/internal/transport/http/middleware"
	"clima/internal/transport/http/shared"
)

type Handler struct {
	Service *reporting.Service
	Runs    *reporting.Store
}

func NewHandler(service *reporting.Service, runs *reporting.Store) *Handler {
	return &Handler{Service: service, Runs: runs}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Get("/overview", h.handleOverview)
		r.Get("/overview/pdf", h.handleOverviewPDF)
		r.Get("/subjects", h.handleSubjectsSummary)
		r.Get("/subjects/{employeeID}", h.handleSubjectReport)
		r.Get("/subjects/{employeeID}/pdf", h.handleSubjectPDF)
		r.Get("/categories/{category}", h.handleCategoryDetail)
		r.Get("/job-runs", h.handleJobRuns)
	})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Service.Overview(r.Context(), r.URL.Query().Get("periodId"))
	if err != nil {
		h.failReport(w, r, err, "overview_failed", "failed to build overview report")
		return
	}
	api.Success(w, overview, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOverviewPDF(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Service.Overview(r.Context(), r.URL.Query().Get("periodId"))
	if err != nil {
		h.failReport(w, r, err, "overview_failed", "failed to build overview report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="informe-clima.pdf"`)
	if err := reporting.OverviewPDF(overview, w); err != nil {
		slog.Warn("overview pdf render failed", "err", err)
	}
}

func (h *Handler) handleSubjectsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.SubjectsSummary(r.Context(), r.URL.Query().Get("periodId"))
	if err != nil {
		h.failReport(w, r, err, "subjects_summary_failed", "failed to build subjects summary")
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubjectReport(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	report, err := h.Service.SubjectReport(r.Context(), employeeID, r.URL.Query().Get("periodId"))
	if err != nil {
		h.failReport(w, r, err, "subject_report_failed", "failed to build subject report")
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubjectPDF(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	report, err := h.Service.SubjectReport(r.Context(), employeeID, r.URL.Query().Get("periodId"))
	if err != nil {
		h.failReport(w, r, err, "subject_report_failed", "failed to build subject report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="informe-pares-%s.pdf"`, employeeID))
	if err := reporting.SubjectPDF(report, w); err != nil {
		slog.Warn("subject pdf render failed", "err", err)
	}
}

func (h *Handler) handleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	section := r.URL.Query().Get("section")
	if section == "" {
		section = catalog.SectionInternal
	}

	detail, err := h.Service.CategoryDetail(r.Context(), r.URL.Query().Get("periodId"), section, category)
	if err != nil {
		h.failReport(w, r, err, "category_detail_failed", "failed to build category detail")
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	filter := reporting.JobRunFilter{
		JobType: r.URL.Query().Get("jobType"),
		Status:  r.URL.Query().Get("status"),
	}

	total, err := h.Runs.CountJobRuns(r.Context(), filter)
	if err != nil {
		slog.Warn("job run count failed", "err", err)
	}

	runs, err := h.Runs.ListJobRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failReport(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, catalog.ErrPeriodNotFound):
		api.Fail(w, http.StatusNotFound, "period_not_found", "evaluation period not found", requestID)
	case errors.Is(err, catalog.ErrNoActivePeriod):
		api.Fail(w, http.StatusNotFound, "no_active_period", "no evaluation period is currently active", requestID)
	case errors.Is(err, catalog.ErrInvalidSection):
		api.Fail(w, http.StatusBadRequest, "invalid_section", "section must be internal or peer", requestID)
	case errors.Is(err, directory.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
	default:
		slog.Error("report build failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
