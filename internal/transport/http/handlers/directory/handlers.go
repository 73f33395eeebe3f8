package directoryhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clima/internal/domain/audit"
	"clima/internal/domain/auth"
	"clima/internal/domain/directory"
	"clima/internal/transport/http/api"
	"clima/internal/transport/http/middleware"
	"clima/internal/transport/http/shared"
)

type Handler struct {
	Service *directory.Service
	Audit   *audit.Service
}

func NewHandler(service *directory.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/directory", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		// The roster is readable by every evaluator: picking a peer to
		// evaluate requires it.
		r.Get("/employees", h.handleListEmployees)
		r.Get("/employees/{employeeID}", h.handleGetEmployee)

		admin := middleware.RequireRole(auth.RoleAdmin)
		r.With(admin).Post("/employees", h.handleCreateEmployee)
		r.With(admin).Put("/employees/{employeeID}", h.handleUpdateEmployee)
		r.With(admin).Post("/employees/{employeeID}/deactivate", h.handleDeactivateEmployee)
	})
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	search := r.URL.Query().Get("search")
	activeOnly := r.URL.Query().Get("includeInactive") != "true"

	total, err := h.Service.CountEmployees(r.Context(), activeOnly, search)
	if err != nil {
		slog.Warn("employee count failed", "err", err)
	}

	employees, err := h.Service.ListEmployees(r.Context(), activeOnly, search, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	employee, err := h.Service.GetEmployee(r.Context(), employeeID)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_load_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, employee, middleware.GetRequestID(r.Context()))
}

type employeePayload struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("fullName", payload.FullName, "full name is required")
	v.Required("email", payload.Email, "email is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.CreateEmployee(r.Context(), directory.Employee{
		FullName: payload.FullName,
		Email:    payload.Email,
	})
	if errors.Is(err, directory.ErrDuplicateEmail) {
		api.Fail(w, http.StatusConflict, "duplicate_email", "an employee with this email already exists", middleware.GetRequestID(r.Context()))
		return
	}
	if errors.Is(err, directory.ErrInvalidEmployee) {
		api.Fail(w, http.StatusBadRequest, "invalid_employee", err.Error(), middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.employee.create", "employee", id, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit directory.employee.create failed", "err", err)
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	current, err := h.Service.GetEmployee(r.Context(), employeeID)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_load_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		FullName *string `json:"fullName"`
		Email    *string `json:"email"`
		Active   *bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	updated := current
	if payload.FullName != nil {
		updated.FullName = *payload.FullName
	}
	if payload.Email != nil {
		updated.Email = *payload.Email
	}
	if payload.Active != nil {
		updated.Active = *payload.Active
	}

	err = h.Service.UpdateEmployee(r.Context(), updated)
	switch {
	case errors.Is(err, directory.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, directory.ErrDuplicateEmail):
		api.Fail(w, http.StatusConflict, "duplicate_email", "an employee with this email already exists", middleware.GetRequestID(r.Context()))
		return
	case errors.Is(err, directory.ErrInvalidEmployee):
		api.Fail(w, http.StatusBadRequest, "invalid_employee", err.Error(), middleware.GetRequestID(r.Context()))
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.employee.update", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), current, updated); err != nil {
		slog.Warn("audit directory.employee.update failed", "err", err)
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	err := h.Service.Deactivate(r.Context(), employeeID)
	if errors.Is(err, directory.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_deactivate_failed", "failed to deactivate employee", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Audit.Record(r.Context(), user.UserID, "directory.employee.deactivate", "employee", employeeID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, map[string]bool{"active": false}); err != nil {
		slog.Warn("audit directory.employee.deactivate failed", "err", err)
	}
	api.Success(w, map[string]string{"id": employeeID}, middleware.GetRequestID(r.Context()))
}
