package cataloghandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clima/internal/domain/audit"
	"clima/internal/domain/auth"
	"clima/internal/domain/catalog"
	"clima/internal/transport/http/api"
	"clima/internal/transport/http/middleware"
	"clima/internal/transport/http/shared"
)

type Handler struct {
	Service *catalog.Service
	Audit   *audit.Service
}

func NewHandler(service *catalog.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/categories", h.handleListCategories)
		r.Get("/questions", h.handleListQuestions)
		r.Get("/periods/active", h.handleActivePeriod)

		admin := middleware.RequireRole(auth.RoleAdmin)
		r.With(admin).Post("/categories", h.handleCreateCategory)
		r.With(admin).Post("/questions", h.handleCreateQuestion)
		r.With(admin).Put("/questions/{questionID}", h.handleUpdateQuestion)
		r.With(admin).Get("/periods", h.handleListPeriods)
		r.With(admin).Post("/periods", h.handleCreatePeriod)
		r.With(admin).Post("/periods/{periodID}/open", h.handleOpenPeriod)
		r.With(admin).Post("/periods/{periodID}/close", h.handleClosePeriod)
	})
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section != "" && !catalog.ValidSection(section) {
		api.Fail(w, http.StatusBadRequest, "invalid_section", "section must be internal or peer", middleware.GetRequestID(r.Context()))
		return
	}
	categories, err := h.Service.ListCategories(r.Context(), section)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "category_list_failed", "failed to list categories", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, categories, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	section := r.URL.Query().Get("section")
	if section != "" && !catalog.ValidSection(section) {
		api.Fail(w, http.StatusBadRequest, "invalid_section", "section must be internal or peer", middleware.GetRequestID(r.Context()))
		return
	}

	activeOnly := true
	if r.URL.Query().Get("includeInactive") == "true" {
		user, _ := middleware.GetUser(r.Context())
		if user.Role == auth.RoleAdmin {
			activeOnly = false
		}
	}

	questions, err := h.Service.ListQuestions(r.Context(), section, activeOnly)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "question_list_failed", "failed to list questions", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, questions, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name         string `json:"name"`
		Section      string `json:"section"`
		Description  string `json:"description"`
		DisplayOrder int    `json:"displayOrder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Enum("section", payload.Section, []string{catalog.SectionInternal, catalog.SectionPeer}, "section must be internal or peer")
	v.Required("section", payload.Section, "section is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateCategory(r.Context(), catalog.Category{
		Name:         payload.Name,
		Section:      payload.Section,
		Description:  payload.Description,
		DisplayOrder: payload.DisplayOrder,
	})
	if errors.Is(err, catalog.ErrCategoryExists) {
		api.Fail(w, http.StatusConflict, "category_exists", "category already exists for this section", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "category_create_failed", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "catalog.category.create", "category", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit catalog.category.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

type questionPayload struct {
	Text         string   `json:"text"`
	Category     string   `json:"category"`
	Section      string   `json:"section"`
	Kind         string   `json:"kind"`
	Options      []string `json:"options"`
	Required     bool     `json:"required"`
	DisplayOrder int      `json:"displayOrder"`
	Active       *bool    `json:"active"`
}

func (p questionPayload) validate(v *shared.Validator) {
	v.Required("text", p.Text, "text is required")
	v.Required("section", p.Section, "section is required")
	v.Enum("section", p.Section, []string{catalog.SectionInternal, catalog.SectionPeer}, "section must be internal or peer")
	v.Required("kind", p.Kind, "kind is required")
	v.Enum("kind", p.Kind, []string{catalog.KindScale, catalog.KindText}, "kind must be scale or text")
	if p.Kind == catalog.KindScale && len(p.Options) < 2 {
		v.Add("options", "scale question needs at least 2 options")
	}
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload questionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	payload.validate(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	id, err := h.Service.CreateQuestion(r.Context(), catalog.Question{
		Text:         payload.Text,
		Category:     payload.Category,
		Section:      payload.Section,
		Kind:         payload.Kind,
		Options:      payload.Options,
		Required:     payload.Required,
		DisplayOrder: payload.DisplayOrder,
		Active:       active,
	})
	if errors.Is(err, catalog.ErrCategoryNotFound) {
		api.Fail(w, http.StatusBadRequest, "unknown_category", "category does not exist for this section", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "question_create_failed", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "catalog.question.create", "question", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit catalog.question.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	questionID := chi.URLParam(r, "questionID")
	current, err := h.Service.GetQuestion(r.Context(), questionID)
	if errors.Is(err, catalog.ErrQuestionNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "question not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "question_load_failed", "failed to load question", middleware.GetRequestID(r.Context()))
		return
	}

	var payload questionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.Section = current.Section

	v := shared.NewValidator()
	payload.validate(v)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	active := current.Active
	if payload.Active != nil {
		active = *payload.Active
	}

	err = h.Service.UpdateQuestion(r.Context(), catalog.Question{
		ID:           questionID,
		Text:         payload.Text,
		Category:     payload.Category,
		Section:      payload.Section,
		Kind:         payload.Kind,
		Options:      payload.Options,
		Required:     payload.Required,
		DisplayOrder: payload.DisplayOrder,
		Active:       active,
	})
	if errors.Is(err, catalog.ErrQuestionNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "question not found", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, catalog.ErrCategoryNotFound) {
		api.Fail(w, http.StatusBadRequest, "unknown_category", "category does not exist for this section", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "question_update_failed", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "catalog.question.update", "question", questionID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), current, payload); err != nil {
		slog.Warn("audit catalog.question.update failed", "err", err)
	}
	api.Success(w, map[string]string{"id": questionID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Service.ListPeriods(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "period_list_failed", "failed to list periods", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, periods, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleActivePeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Service.ActivePeriod(r.Context())
	if errors.Is(err, catalog.ErrNoActivePeriod) {
		api.Fail(w, http.StatusNotFound, "no_active_period", "no evaluation period is currently active", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "period_load_failed", "failed to load active period", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, period, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePeriod(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		Name      string `json:"name"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreatePeriod(r.Context(), payload.Name, start, end)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "period_create_failed", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "catalog.period.create", "period", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit catalog.period.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleOpenPeriod(w http.ResponseWriter, r *http.Request) {
	h.handlePeriodTransition(w, r, "open")
}

func (h *Handler) handleClosePeriod(w http.ResponseWriter, r *http.Request) {
	h.handlePeriodTransition(w, r, "close")
}

func (h *Handler) handlePeriodTransition(w http.ResponseWriter, r *http.Request, action string) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	periodID := chi.URLParam(r, "periodID")
	var err error
	targetStatus := catalog.PeriodStatusActive
	if action == "open" {
		err = h.Service.OpenPeriod(r.Context(), periodID)
	} else {
		targetStatus = catalog.PeriodStatusClosed
		err = h.Service.ClosePeriod(r.Context(), periodID)
	}

	switch {
	case errors.Is(err, catalog.ErrPeriodNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "period not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, catalog.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", "period is not in a state that allows this change", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, catalog.ErrPeriodConflict):
		api.Fail(w, http.StatusConflict, "period_conflict", "another period is already active", middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "period_transition_failed", "failed to update period", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "catalog.period."+action, "period", periodID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]string{"status": targetStatus}); err != nil {
		slog.Warn("audit catalog.period."+action+" failed", "err", err)
	}
	api.Success(w, map[string]string{"id": periodID, "status": targetStatus}, middleware.GetRequestID(r.Context()))
}
