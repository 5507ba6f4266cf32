package server

import (
	"context"
	"time"

	"ibooking/internal/domain/booking"
	"ibooking/internal/domain/reminder"
)

// policyAdapter exposes the reminder engine's quota checks to the
// allocator behind booking.PolicyEngine.
type policyAdapter struct {
	reminders *reminder.Service
}

func (a policyAdapter) CheckQuota(ctx context.Context, employeeID, interviewType string) (booking.QuotaDecision, error) {
	decision, err := a.reminders.CheckQuota(ctx, employeeID, interviewType)
	if err != nil {
		return booking.QuotaDecision{}, err
	}
	return booking.QuotaDecision{
		Allowed: decision.Allowed,
		Code:    booking.DeclineReason(decision.Code),
		Reason:  decision.Reason,
	}, nil
}

func (a policyAdapter) OnInterviewCompleted(ctx context.Context, employeeID, interviewType string, completedAt time.Time) error {
	return a.reminders.OnInterviewCompleted(ctx, employeeID, interviewType, completedAt)
}

// counterAdapter exposes the allocator's booking table to the reminder
// engine behind reminder.BookingCounter.
type counterAdapter struct {
	store booking.StoreAPI
}

// quotaStatuses are the bookings that consume quota: everything except
// cancellations and no-shows.
var quotaStatuses = []booking.BookingStatus{
	booking.StatusPending, booking.StatusConfirmed,
	booking.StatusRescheduled, booking.StatusCompleted,
}

func (a counterAdapter) CountBookings(ctx context.Context, employeeID string, types []string, from, to time.Time) (int, error) {
	return a.store.CountBookings(ctx, employeeID, toInterviewTypes(types), quotaStatuses, from, to)
}

func (a counterAdapter) CountActiveBookings(ctx context.Context, employeeID string, types []string, from time.Time) (int, error) {
	farFuture := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	return a.store.CountBookings(ctx, employeeID, toInterviewTypes(types), booking.ActiveStatuses, from, farFuture)
}

func toInterviewTypes(types []string) []booking.InterviewType {
	out := make([]booking.InterviewType, 0, len(types))
	for _, t := range types {
		out = append(out, booking.InterviewType(t))
	}
	return out
}
