package bookinghandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ibooking/internal/domain/audit"
	"ibooking/internal/domain/auth"
	"ibooking/internal/domain/booking"
	"ibooking/internal/domain/notifications"
	"ibooking/internal/platform/metrics"
	"ibooking/internal/transport/http/api"
	"ibooking/internal/transport/http/middleware"
	"ibooking/internal/transport/http/shared"
)

type Handler struct {
	Service     *booking.Service
	Perms       middleware.PermissionStore
	Notify      *notifications.Service
	Audit       *audit.Service
	Metrics     *metrics.Collector
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *booking.Service, perms middleware.PermissionStore, notify *notifications.Service, auditSvc *audit.Service, collector *metrics.Collector, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Notify: notify, Audit: auditSvc, Metrics: collector, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermBookingRequest, h.Perms)).Post("/", h.handleRequestBooking)
		r.With(middleware.RequirePermission(auth.PermBookingRead, h.Perms)).Get("/{bookingID}", h.handleGetBooking)
		r.With(middleware.RequirePermission(auth.PermBookingRequest, h.Perms)).Post("/{bookingID}/confirm", h.handleConfirm)
		r.With(middleware.RequirePermission(auth.PermBookingRequest, h.Perms)).Post("/{bookingID}/cancel", h.handleCancel)
		r.With(middleware.RequirePermission(auth.PermBookingRequest, h.Perms)).Post("/{bookingID}/reschedule", h.handleReschedule)
		r.With(middleware.RequirePermission(auth.PermBookingAdmin, h.Perms)).Post("/{bookingID}/complete", h.handleComplete)
		r.With(middleware.RequirePermission(auth.PermBookingAdmin, h.Perms)).Post("/{bookingID}/no-show", h.handleNoShow)
	})
	r.Route("/employees/{employeeID}", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermBookingRead, h.Perms)).Get("/bookings", h.handleHistory)
	})
	r.Route("/slots", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermBookingRead, h.Perms)).Get("/", h.handleListSlots)
		r.With(middleware.RequirePermission(auth.PermSlotsManage, h.Perms)).Post("/block", h.handleBlockSlot)
		r.With(middleware.RequirePermission(auth.PermSlotsManage, h.Perms)).Post("/unblock", h.handleUnblockSlot)
	})
	r.Route("/interviewers", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermBookingRead, h.Perms)).Get("/", h.handleListInterviewers)
		r.With(middleware.RequirePermission(auth.PermSlotsManage, h.Perms)).Put("/", h.handleUpsertInterviewer)
	})
}

// canActFor allows employees to touch only their own bookings; admin
// permission lifts that restriction.
func (h *Handler) canActFor(r *http.Request, actor auth.ActorContext, employeeID string) bool {
	if actor.EmployeeID == employeeID {
		return true
	}
	allowed, err := h.Perms.HasPermission(r.Context(), actor.Role, auth.PermBookingAdmin)
	if err != nil {
		return false
	}
	return allowed
}

func (h *Handler) handleRequestBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	var req booking.BookingRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if req.EmployeeID == "" {
		req.EmployeeID = actor.EmployeeID
	}
	if !h.canActFor(r, actor, req.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot book for another employee", middleware.GetRequestID(r.Context()))
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(raw)
	if idemKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), actor.EmployeeID, "bookings.request", idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different payload", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "idempotency_failed", "idempotency check failed", middleware.GetRequestID(r.Context()))
			return
		}
		if found {
			var replay booking.BookingResult
			if err := json.Unmarshal(stored, &replay); err == nil {
				api.Success(w, replay, middleware.GetRequestID(r.Context()))
				return
			}
		}
	}

	result, err := h.Service.RequestBooking(r.Context(), actor.EmployeeID, req)
	if err != nil {
		h.writeBookingError(w, r, err, "booking_request_failed", "failed to request booking")
		return
	}

	if idemKey != "" && h.Idempotency != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := h.Idempotency.Save(r.Context(), actor.EmployeeID, "bookings.request", idemKey, requestHash, payload); err != nil {
				slog.Warn("idempotency save failed", "err", err)
			}
		}
	}

	if !result.Accepted() {
		if h.Metrics != nil {
			h.Metrics.BookingDeclined()
		}
		api.Success(w, result, middleware.GetRequestID(r.Context()))
		return
	}

	if h.Metrics != nil {
		h.Metrics.BookingCreated()
	}
	if err := h.Notify.Notify(r.Context(), req.EmployeeID, req.Email, notifications.TypeBookingCreated,
		"Interview booked", "Your interview request was accepted and is awaiting confirmation."); err != nil {
		slog.Warn("booking notification failed", "err", err)
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "booking.request", "booking", result.BookingID,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), nil, result); err != nil {
		slog.Warn("audit booking.request failed", "err", err)
	}
	api.Created(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	b, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeBookingError(w, r, err, "booking_get_failed", "failed to load booking")
		return
	}
	if !h.canActFor(r, actor, b.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's booking", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, b, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if !h.canActFor(r, actor, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot view another employee's bookings", middleware.GetRequestID(r.Context()))
		return
	}
	history, err := h.Service.History(r.Context(), employeeID)
	if err != nil {
		h.writeBookingError(w, r, err, "booking_history_failed", "failed to load booking history")
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "booking.confirm", notifications.TypeBookingConfirmed,
		"Interview confirmed", "Your interview booking is confirmed.",
		func(id, actorID string) error {
			return h.Service.Confirm(r.Context(), id, actorID)
		})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "booking.cancel", notifications.TypeBookingCancelled,
		"Interview cancelled", "Your interview booking was cancelled and the slot released.",
		func(id, actorID string) error {
			return h.Service.Cancel(r.Context(), id, actorID)
		})
}

func (h *Handler) handleNoShow(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "booking.no_show", "", "", "",
		func(id, actorID string) error {
			return h.Service.MarkNoShow(r.Context(), id, actorID)
		})
}

// lifecycle factors the shared shape of confirm/cancel/no-show: load,
// ownership check, apply, notify, audit.
func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request, action, ntype, title, body string, apply func(id, actorID string) error) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id := chi.URLParam(r, "bookingID")

	before, err := h.Service.GetBooking(r.Context(), id)
	if err != nil {
		h.writeBookingError(w, r, err, "booking_get_failed", "failed to load booking")
		return
	}
	if !h.canActFor(r, actor, before.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot modify another employee's booking", middleware.GetRequestID(r.Context()))
		return
	}

	if err := apply(id, actor.EmployeeID); err != nil {
		h.writeBookingError(w, r, err, "booking_update_failed", "failed to update booking")
		return
	}

	after, err := h.Service.GetBooking(r.Context(), id)
	if err != nil {
		h.writeBookingError(w, r, err, "booking_get_failed", "failed to load booking")
		return
	}

	if ntype != "" {
		if err := h.Notify.Notify(r.Context(), before.EmployeeID, before.Email, ntype, title, body); err != nil {
			slog.Warn("booking notification failed", "action", action, "err", err)
		}
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, action, "booking", id,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), before, after); err != nil {
		slog.Warn("audit failed", "action", action, "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

type reschedulePayload struct {
	NewDate  string `json:"newDate"`
	NewStart string `json:"newStart"`
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id := chi.URLParam(r, "bookingID")

	var payload reschedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	if _, ok := v.Date("newDate", payload.NewDate); ok {
		v.ClockTime("newStart", payload.NewStart)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, err := h.Service.GetBooking(r.Context(), id)
	if err != nil {
		h.writeBookingError(w, r, err, "booking_get_failed", "failed to load booking")
		return
	}
	if !h.canActFor(r, actor, before.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "cannot modify another employee's booking", middleware.GetRequestID(r.Context()))
		return
	}

	after, err := h.Service.Reschedule(r.Context(), id, payload.NewDate, payload.NewStart, actor.EmployeeID)
	if err != nil {
		h.writeBookingError(w, r, err, "booking_reschedule_failed", "failed to reschedule booking")
		return
	}

	if err := h.Notify.Notify(r.Context(), before.EmployeeID, before.Email, notifications.TypeBookingRescheduled,
		"Interview rescheduled", "Your interview was moved to "+after.SlotDate+" "+after.SlotStart+"."); err != nil {
		slog.Warn("booking notification failed", "action", "booking.reschedule", "err", err)
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "booking.reschedule", "booking", id,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), before, after); err != nil {
		slog.Warn("audit booking.reschedule failed", "err", err)
	}
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id := chi.URLParam(r, "bookingID")

	var outcome booking.Outcome
	if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	before, err := h.Service.GetBooking(r.Context(), id)
	if err != nil {
		h.writeBookingError(w, r, err, "booking_get_failed", "failed to load booking")
		return
	}

	if err := h.Service.Complete(r.Context(), id, actor.EmployeeID, outcome); err != nil {
		h.writeBookingError(w, r, err, "booking_complete_failed", "failed to complete booking")
		return
	}

	if err := h.Notify.Notify(r.Context(), before.EmployeeID, before.Email, notifications.TypeBookingCompleted,
		"Interview completed", "Your interview was recorded as completed."); err != nil {
		slog.Warn("booking notification failed", "action", "booking.complete", "err", err)
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "booking.complete", "booking", id,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), before, outcome); err != nil {
		slog.Warn("audit booking.complete failed", "err", err)
	}
	api.Success(w, map[string]string{"id": id, "status": string(booking.StatusCompleted)}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListSlots(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	from, fromOK := v.Date("from", r.URL.Query().Get("from"))
	to, toOK := v.Date("to", r.URL.Query().Get("to"))
	if fromOK && toOK {
		v.DateOrder("from", from, "to", to)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	slots, err := h.Service.ListSlots(r.Context(), from.Format(booking.DateFormat), to.Format(booking.DateFormat))
	if err != nil {
		h.writeBookingError(w, r, err, "slots_list_failed", "failed to list slots")
		return
	}
	api.Success(w, slots, middleware.GetRequestID(r.Context()))
}

type slotPayload struct {
	Date   string `json:"date"`
	Start  string `json:"startTime"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleBlockSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload slotPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Date("date", payload.Date)
	v.ClockTime("startTime", payload.Start)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.BlockSlot(r.Context(), payload.Date, payload.Start, actor.EmployeeID, payload.Reason); err != nil {
		h.writeBookingError(w, r, err, "slot_block_failed", "failed to block slot")
		return
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "slot.block", "slot", payload.Date+" "+payload.Start,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit slot.block failed", "err", err)
	}
	api.Success(w, map[string]string{"date": payload.Date, "startTime": payload.Start, "state": "blocked"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUnblockSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload slotPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Date("date", payload.Date)
	v.ClockTime("startTime", payload.Start)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.UnblockSlot(r.Context(), payload.Date, payload.Start); err != nil {
		h.writeBookingError(w, r, err, "slot_unblock_failed", "failed to unblock slot")
		return
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "slot.unblock", "slot", payload.Date+" "+payload.Start,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), nil, payload); err != nil {
		slog.Warn("audit slot.unblock failed", "err", err)
	}
	api.Success(w, map[string]string{"date": payload.Date, "startTime": payload.Start, "state": "unblocked"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListInterviewers(w http.ResponseWriter, r *http.Request) {
	interviewers, err := h.Service.ListInterviewers(r.Context())
	if err != nil {
		h.writeBookingError(w, r, err, "interviewers_list_failed", "failed to list interviewers")
		return
	}
	api.Success(w, interviewers, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpsertInterviewer(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var iv booking.Interviewer
	if err := json.NewDecoder(r.Body).Decode(&iv); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("name", iv.Name, "name is required")
	v.ClockTime("workStart", iv.WorkStart)
	v.ClockTime("workEnd", iv.WorkEnd)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.UpsertInterviewer(r.Context(), iv); err != nil {
		h.writeBookingError(w, r, err, "interviewer_upsert_failed", "failed to save interviewer")
		return
	}
	if err := h.Audit.Record(r.Context(), actor.EmployeeID, "interviewer.upsert", "interviewer", iv.ID,
		middleware.GetRequestID(r.Context()), middleware.ClientIP(r), nil, iv); err != nil {
		slog.Warn("audit interviewer.upsert failed", "err", err)
	}
	api.Success(w, iv, middleware.GetRequestID(r.Context()))
}

// writeBookingError maps domain sentinels onto the error envelope.
func (h *Handler) writeBookingError(w http.ResponseWriter, r *http.Request, err error, fallbackCode, fallbackMessage string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, booking.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
	case errors.Is(err, booking.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, booking.ErrInvalidStateTransition):
		api.Fail(w, http.StatusConflict, "invalid_state_transition", err.Error(), requestID)
	case errors.Is(err, booking.ErrSlotConflict):
		if h.Metrics != nil {
			h.Metrics.SlotConflict()
		}
		api.Fail(w, http.StatusConflict, "slot_conflict", "the requested slot was taken by a concurrent booking", requestID)
	case errors.Is(err, booking.ErrSlotBooked):
		api.Fail(w, http.StatusConflict, "slot_booked", "the slot holds an active booking", requestID)
	default:
		slog.Error("booking handler error", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMessage, requestID)
	}
}
