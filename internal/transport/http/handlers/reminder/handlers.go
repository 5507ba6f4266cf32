package reminderhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ibooking/internal/domain/audit"
	"ibooking/internal/domain/auth"
	"ibooking/internal/domain/reminder"
	"ibooking/internal/transport/http/api"
	"ibooking/internal/transport/http/middleware"
	"ibooking/internal/transport/http/shared"
)

type Handler struct {
	Service *reminder.Service
	Perms   middleware.PermissionStore
	Audit   *audit.Service
}

func NewHandler(service *reminder.Service, perms middleware.PermissionStore, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reminders", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRemindersRead, h.Perms)).Get("/{employeeID}", h.handleStatus)
		r.With(middleware.RequirePermission(auth.PermRemindersRead, h.Perms)).Get("/{employeeID}/next-due", h.handleNextDue)
		r.With(middleware.RequirePermission(auth.PermBookingAdmin, h.Perms)).Get("/batch/today", h.handleTodaysBatch)
	})
	r.Route("/policies", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRemindersRead, h.Perms)).Get("/", h.handleListPolicies)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Put("/", h.handleRegisterPolicy)
	})
	r.Route("/profiles", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRemindersRead, h.Perms)).Get("/{employeeID}", h.handleGetProfile)
		r.With(middleware.RequirePermission(auth.PermProfilesWrite, h.Perms)).Put("/", h.handleUpsertProfile)
	})
}

// canReadFor lets employees read their own reminder state; the admin
// permission opens the rest.
func (h *Handler) canReadFor(r *http.Request, actor auth.ActorContext, employeeID string) bool {
	if actor.EmployeeID == employeeID {
		return true
	}
	allowed, err := h.Perms.HasPermission(r.Context(), actor.Role, auth.PermBookingAdmin)
	if err != nil {
		return false
	}
	return allowed
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if !h.canReadFor(r, actor, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's reminders", middleware.GetRequestID(r.Context()))
		return
	}

	schedule, err := h.Service.Status(r.Context(), employeeID)
	if err != nil {
		h.writeReminderError(w, r, err, "reminder_status_failed", "failed to build reminder schedule")
		return
	}
	api.Success(w, schedule, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleNextDue(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if !h.canReadFor(r, actor, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's reminders", middleware.GetRequestID(r.Context()))
		return
	}

	nextDue, err := h.Service.CalculateNextDueDate(r.Context(), employeeID)
	if err != nil {
		h.writeReminderError(w, r, err, "next_due_failed", "failed to calculate next due date")
		return
	}
	payload := map[string]any{"employeeId": employeeID, "nextDueDate": nil}
	if nextDue != nil {
		payload["nextDueDate"] = nextDue.Format("2006-01-02")
	}
	api.Success(w, payload, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTodaysBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.Service.TodaysBatch(r.Context())
	if err != nil {
		h.writeReminderError(w, r, err, "reminder_batch_failed", "failed to build today's reminder batch")
		return
	}
	api.Success(w, batch, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Service.ListPolicies(r.Context())
	if err != nil {
		h.writeReminderError(w, r, err, "policies_list_failed", "failed to list reminder policies")
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRegisterPolicy(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var policy reminder.ReminderPolicy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	if err := h.Service.RegisterPolicy(r.Context(), policy); err != nil {
		h.writeReminderError(w, r, err, "policy_register_failed", "failed to register reminder policy")
		return
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "policy.register", "reminder_policy",
		string(policy.Status)+"/"+policy.Department, middleware.GetRequestID(r.Context()), middleware.ClientIP(r), nil, policy); err != nil {
		slog.Warn("audit policy.register failed", "err", err)
	}
	api.Success(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if !h.canReadFor(r, actor, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's profile", middleware.GetRequestID(r.Context()))
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), employeeID)
	if err != nil {
		h.writeReminderError(w, r, err, "profile_get_failed", "failed to load profile")
		return
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

type profilePayload struct {
	EmployeeID string                        `json:"employeeId"`
	Name       string                        `json:"name,omitempty"`
	Email      string                        `json:"email,omitempty"`
	Department string                        `json:"department,omitempty"`
	HireDate   string                        `json:"hireDate"`
	Status     reminder.EmploymentStatus     `json:"employmentStatus"`
	Special    reminder.SpecialCircumstances `json:"specialCircumstances"`
}

func (h *Handler) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload profilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	hireDate, _ := v.Date("hireDate", payload.HireDate)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	profile := reminder.EmployeeProfile{
		EmployeeID: payload.EmployeeID,
		Name:       payload.Name,
		Email:      payload.Email,
		Department: payload.Department,
		HireDate:   hireDate.UTC(),
		Status:     payload.Status,
		Special:    payload.Special,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := h.Service.UpsertProfile(r.Context(), profile); err != nil {
		h.writeReminderError(w, r, err, "profile_upsert_failed", "failed to save profile")
		return
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "profile.upsert", "employee_profile", payload.EmployeeID,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit profile.upsert failed", "err", err)
	}
	api.Success(w, profile, middleware.GetRequestID(r.Context()))
}

func (h *Handler) writeReminderError(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMessage string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, reminder.ErrProfileNotFound):
		api.Fail(w, http.StatusNotFound, "profile_not_found", "employee profile not found", requestID)
	case errors.Is(err, reminder.ErrPolicyNotFound):
		api.Fail(w, http.StatusNotFound, "policy_not_found", "reminder policy not found", requestID)
	case errors.Is(err, reminder.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		slog.Error("reminder handler error", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMessage, requestID)
	}
}
