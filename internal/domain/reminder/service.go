package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// BookingCounter exposes the allocator's booking table to quota checks.
// The range is half-open: [from, to). Implemented by an adapter over the
// booking store so the two domains stay decoupled.
type BookingCounter interface {
	CountBookings(ctx context.Context, employeeID string, types []string, from, to time.Time) (int, error)
	// CountActiveBookings counts bookings that currently hold a slot
	// (pending/confirmed/rescheduled) with a slot date on or after from.
	CountActiveBookings(ctx context.Context, employeeID string, types []string, from time.Time) (int, error)
}

type Service struct {
	store    StoreAPI
	bookings BookingCounter

	// Now is injectable for tests.
	Now func() time.Time
}

func NewService(store StoreAPI, bookings BookingCounter) *Service {
	return &Service{
		store:    store,
		bookings: bookings,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// UpsertProfile ingests an HR-feed record. Interview history is owned by
// this engine and survives re-ingestion.
func (s *Service) UpsertProfile(ctx context.Context, profile EmployeeProfile) error {
	if strings.TrimSpace(profile.EmployeeID) == "" {
		return fmt.Errorf("employeeId is required: %w", ErrValidation)
	}
	if !ValidStatus(profile.Status) {
		return fmt.Errorf("unknown employment status %q: %w", profile.Status, ErrValidation)
	}
	if profile.HireDate.IsZero() {
		return fmt.Errorf("hireDate is required: %w", ErrValidation)
	}
	if profile.Special.ReturnDate != "" {
		if _, err := time.Parse("2006-01-02", profile.Special.ReturnDate); err != nil {
			return fmt.Errorf("returnDate %q is not YYYY-MM-DD: %w", profile.Special.ReturnDate, ErrValidation)
		}
	}
	return s.store.UpsertProfile(ctx, profile)
}

func (s *Service) GetProfile(ctx context.Context, employeeID string) (EmployeeProfile, error) {
	return s.store.GetProfile(ctx, employeeID)
}

// RegisterPolicy installs a department override (or replaces a status
// default when Department is empty).
func (s *Service) RegisterPolicy(ctx context.Context, policy ReminderPolicy) error {
	if !ValidStatus(policy.Status) {
		return fmt.Errorf("unknown employment status %q: %w", policy.Status, ErrValidation)
	}
	if policy.IntervalDays <= 0 {
		return fmt.Errorf("intervalDays must be positive: %w", ErrValidation)
	}
	return s.store.UpsertPolicy(ctx, policy)
}

// policyFor resolves the (status, department) override before falling
// back to the status default.
func (s *Service) policyFor(ctx context.Context, status EmploymentStatus, department string) (ReminderPolicy, error) {
	if department != "" {
		policy, ok, err := s.store.GetPolicy(ctx, status, department)
		if err != nil {
			return ReminderPolicy{}, err
		}
		if ok {
			return policy, nil
		}
	}
	policy, ok, err := s.store.GetPolicy(ctx, status, "")
	if err != nil {
		return ReminderPolicy{}, err
	}
	if !ok {
		return ReminderPolicy{}, fmt.Errorf("status %s: %w", status, ErrPolicyNotFound)
	}
	return policy, nil
}

// CalculateNextDueDate returns the employee's next mandatory-interview
// due date, or nil when the status is excluded from cadences (on leave,
// retiring, maternity leave outside the one-month-prior window).
func (s *Service) CalculateNextDueDate(ctx context.Context, employeeID string) (*time.Time, error) {
	profile, err := s.store.GetProfile(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policyFor(ctx, profile.Status, profile.Department)
	if err != nil {
		if profile.Status == StatusOnLeave || profile.Status == StatusRetiring {
			return nil, nil
		}
		return nil, err
	}
	return nextDueDate(profile, policy, s.Now()), nil
}

// OnInterviewCompleted is the only mutation path into interview history:
// it advances first/last dates, bumps counters, zeroes the overdue count
// and thereby resets the cadence baseline.
func (s *Service) OnInterviewCompleted(ctx context.Context, employeeID, interviewType string, completedAt time.Time) error {
	profile, err := s.store.GetProfile(ctx, employeeID)
	if err != nil {
		return err
	}

	completed := completedAt.UTC()
	h := profile.History
	if h.FirstInterviewDate == nil || completed.Before(*h.FirstInterviewDate) {
		h.FirstInterviewDate = &completed
	}
	if h.LastInterviewDate == nil || completed.After(*h.LastInterviewDate) {
		h.LastInterviewDate = &completed
	}
	h.TotalCount++

	policy, err := s.policyFor(ctx, profile.Status, profile.Department)
	if err == nil && policy.MandatoryType == interviewType {
		if h.LastMandatoryDate == nil || completed.After(*h.LastMandatoryDate) {
			h.LastMandatoryDate = &completed
		}
		h.MandatoryCompleted++
	}
	h.OverdueCount = 0

	return s.store.SaveHistory(ctx, employeeID, h)
}

// Status builds the reminder view for one employee.
func (s *Service) Status(ctx context.Context, employeeID string) (ReminderSchedule, error) {
	profile, err := s.store.GetProfile(ctx, employeeID)
	if err != nil {
		return ReminderSchedule{}, err
	}
	return s.scheduleForProfile(ctx, profile, s.Now())
}

// GenerateReminderSchedule is pure given the same profile and "now":
// identical inputs always produce identical schedules.
func (s *Service) GenerateReminderSchedule(ctx context.Context, employeeID string) (ReminderSchedule, error) {
	return s.Status(ctx, employeeID)
}

func (s *Service) scheduleForProfile(ctx context.Context, profile EmployeeProfile, now time.Time) (ReminderSchedule, error) {
	policy, err := s.policyFor(ctx, profile.Status, profile.Department)
	if err != nil {
		if profile.Status == StatusOnLeave || profile.Status == StatusRetiring {
			return ReminderSchedule{EmployeeID: profile.EmployeeID}, nil
		}
		return ReminderSchedule{}, err
	}
	return buildSchedule(profile, policy, now), nil
}

// TodaysBatch returns the schedules that have a reminder falling due
// today; consumed by the notification dispatcher job.
func (s *Service) TodaysBatch(ctx context.Context) ([]ReminderSchedule, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	today := truncateDay(now)
	var batch []ReminderSchedule
	for _, profile := range profiles {
		schedule, err := s.scheduleForProfile(ctx, profile, now)
		if err != nil {
			return nil, err
		}
		for _, item := range schedule.Reminders {
			if truncateDay(item.Date).Equal(today) {
				batch = append(batch, schedule)
				break
			}
		}
	}
	return batch, nil
}

func (s *Service) ListPolicies(ctx context.Context) ([]ReminderPolicy, error) {
	return s.store.ListPolicies(ctx)
}

func (s *Service) ListProfiles(ctx context.Context) ([]EmployeeProfile, error) {
	return s.store.ListProfiles(ctx)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
