package reportshandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ibooking/internal/domain/auth"
	"ibooking/internal/domain/reports"
	"ibooking/internal/transport/http/api"
	"ibooking/internal/transport/http/middleware"
)

type Handler struct {
	Service *reports.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *reports.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/compliance", h.handleCompliance)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/compliance/pdf", h.handleCompliancePDF)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/compliance/csv", h.handleComplianceCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/bookings/{employeeID}/pdf", h.handleBookingHistoryPDF)
	})
}

func (h *Handler) handleCompliance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Service.ComplianceRows(r.Context())
	if err != nil {
		slog.Error("compliance report failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build compliance report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, rows, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCompliancePDF(w http.ResponseWriter, r *http.Request) {
	payload, err := h.Service.CompliancePDF(r.Context())
	if err != nil {
		slog.Error("compliance pdf failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render compliance report", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="compliance.pdf"`)
	if _, err := w.Write(payload); err != nil {
		slog.Warn("compliance pdf write failed", "err", err)
	}
}

func (h *Handler) handleComplianceCSV(w http.ResponseWriter, r *http.Request) {
	payload, err := h.Service.ComplianceCSV(r.Context())
	if err != nil {
		slog.Error("compliance csv failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render compliance report", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="compliance.csv"`)
	if _, err := w.Write(payload); err != nil {
		slog.Warn("compliance csv write failed", "err", err)
	}
}

func (h *Handler) handleBookingHistoryPDF(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	payload, err := h.Service.BookingHistoryPDF(r.Context(), employeeID)
	if err != nil {
		slog.Error("booking history pdf failed", "employeeId", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render booking history", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings-`+employeeID+`.pdf"`)
	if _, err := w.Write(payload); err != nil {
		slog.Warn("booking history pdf write failed", "err", err)
	}
}
