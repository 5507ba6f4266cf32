package adminhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ibooking/internal/domain/auth"
	"ibooking/internal/platform/jobs"
	"ibooking/internal/platform/metrics"
	"ibooking/internal/transport/http/api"
	"ibooking/internal/transport/http/middleware"
)

type Handler struct {
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Perms   middleware.PermissionStore
}

func NewHandler(jobsSvc *jobs.Service, collector *metrics.Collector, perms middleware.PermissionStore) *Handler {
	return &Handler{Jobs: jobsSvc, Metrics: collector, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/metrics", h.handleMetrics)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Get("/jobs", h.handleJobHistory)
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Post("/jobs/{jobType}/run", h.handleRunJob)
	})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	api.Success(w, h.Jobs.History(limit), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRunJob(w http.ResponseWriter, r *http.Request) {
	jobType := chi.URLParam(r, "jobType")
	details, err := h.Jobs.RunNow(r.Context(), jobType)
	if err != nil {
		if errors.Is(err, jobs.ErrUnknownJob) {
			api.Fail(w, http.StatusNotFound, "unknown_job", "unknown job type", middleware.GetRequestID(r.Context()))
			return
		}
		slog.Error("job run failed", "jobType", jobType, "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "job execution failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{"jobType": jobType, "details": details}, middleware.GetRequestID(r.Context()))
}
