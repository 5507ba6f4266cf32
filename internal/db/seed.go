package db

import (
	"context"
	"log/slog"
	"time"

	"ibooking/internal/domain/booking"
	"ibooking/internal/domain/reminder"
)

// Seed loads a starter interviewer roster and a department policy
// override. It is idempotent: everything goes through upserts, so
// running it against a populated store is a no-op apart from resetting
// roster attributes.
func Seed(ctx context.Context, bookings booking.StoreAPI, reminders reminder.StoreAPI, logger *slog.Logger) error {
	weekdays := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}

	roster := []booking.Interviewer{
		{
			ID:   "hr-001",
			Name: "Sato Yuki",
			Specialties: []booking.InterviewCategory{
				booking.CategoryHRGeneral, booking.CategoryCareer,
			},
			WorkDays:   weekdays,
			WorkStart:  "09:00",
			WorkEnd:    "17:00",
			MaxPerDay:  6,
			MaxPerWeek: 25,
			Active:     true,
		},
		{
			ID:   "hr-002",
			Name: "Tanaka Hiroshi",
			Specialties: []booking.InterviewCategory{
				booking.CategoryWellbeing, booking.CategoryWorkplace,
			},
			WorkDays:   weekdays,
			WorkStart:  "10:00",
			WorkEnd:    "18:00",
			MaxPerDay:  5,
			MaxPerWeek: 20,
			Active:     true,
		},
		{
			ID:   "hr-003",
			Name: "Yamamoto Kenji",
			Specialties: []booking.InterviewCategory{
				booking.CategoryExit, booking.CategoryHRGeneral,
			},
			WorkDays:   []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			WorkStart:  "09:00",
			WorkEnd:    "15:00",
			MaxPerDay:  4,
			MaxPerWeek: 12,
			Active:     true,
		},
	}
	for _, iv := range roster {
		if err := bookings.UpsertInterviewer(ctx, iv); err != nil {
			return err
		}
	}

	// Sales runs a tighter cadence than the regular default.
	override := reminder.ReminderPolicy{
		Status:              reminder.StatusRegularEmployee,
		Department:          "sales",
		MandatoryType:       reminder.TypeBiannual,
		IntervalDays:        180,
		PreDueOffsets:       []int{14, 7, 3},
		OverdueOffsets:      []int{1, 7, 14},
		MaxOverdueReminders: 3,
	}
	if err := reminders.UpsertPolicy(ctx, override); err != nil {
		return err
	}
	for _, policy := range reminder.DefaultPolicies() {
		if _, ok, err := reminders.GetPolicy(ctx, policy.Status, policy.Department); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := reminders.UpsertPolicy(ctx, policy); err != nil {
			return err
		}
	}

	logger.Info("seed data loaded", "interviewers", len(roster))
	return nil
}
