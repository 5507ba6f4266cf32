package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Decision mirrors the allocator's quota verdict without importing it.
type Decision struct {
	Allowed bool
	Code    string
	Reason  string
}

const (
	codeQuotaExceeded    = "quota_exceeded"
	codePermissionDenied = "permission_denied"
)

func allow() Decision {
	return Decision{Allowed: true}
}

func denyQuota(reason string) Decision {
	return Decision{Code: codeQuotaExceeded, Reason: reason}
}

func denyPermission(reason string) Decision {
	return Decision{Code: codePermissionDenied, Reason: reason}
}

// CheckQuota applies the status-specific booking limits. Mandatory
// cadences are counted over calendar periods; ad-hoc caps use rolling
// windows. The distinction is deliberate and preserved from the policy
// source.
func (s *Service) CheckQuota(ctx context.Context, employeeID, interviewType string) (Decision, error) {
	profile, err := s.store.GetProfile(ctx, employeeID)
	if errors.Is(err, ErrProfileNotFound) {
		return denyPermission("no employee profile on record"), nil
	}
	if err != nil {
		return Decision{}, err
	}

	now := s.Now()
	switch profile.Status {
	case StatusOnLeave:
		return s.checkOnLeave(profile, interviewType, now), nil
	case StatusRetiring:
		return s.checkRetiring(ctx, profile, interviewType, now)
	}

	policy, err := s.policyFor(ctx, profile.Status, profile.Department)
	if err != nil {
		return Decision{}, err
	}

	switch interviewType {
	case TypeReturnToWork, TypeExitInterview:
		return denyPermission(fmt.Sprintf("%s interviews are reserved for on-leave or retiring employees", interviewType)), nil
	case policy.MandatoryType:
		return s.checkMandatory(ctx, profile, policy, now)
	case TypeAdHoc:
		return s.checkAdHoc(ctx, profile, now)
	default:
		return denyPermission(fmt.Sprintf("interview type %s is not available for status %s", interviewType, profile.Status)), nil
	}
}

func (s *Service) checkOnLeave(profile EmployeeProfile, interviewType string, now time.Time) Decision {
	if interviewType != TypeReturnToWork {
		return denyPermission("employees on leave may only book a return_to_work interview")
	}
	returnDay, err := time.Parse("2006-01-02", profile.Special.ReturnDate)
	if err != nil {
		return denyPermission("no return date on record")
	}
	today := truncateDay(now)
	if today.Before(returnDay.AddDate(0, 0, -30)) || today.After(returnDay.AddDate(0, 0, 30)) {
		return denyPermission("return_to_work interviews can only be booked within one month of the return date")
	}
	return allow()
}

func (s *Service) checkRetiring(ctx context.Context, profile EmployeeProfile, interviewType string, now time.Time) (Decision, error) {
	if interviewType != TypeExitInterview {
		return denyPermission("retiring employees may only book an exit_interview"), nil
	}
	count, err := s.bookings.CountActiveBookings(ctx, profile.EmployeeID, []string{TypeExitInterview}, time.Time{})
	if err != nil {
		return Decision{}, err
	}
	if count > 0 {
		return denyQuota("an exit interview is already scheduled"), nil
	}
	return allow(), nil
}

// checkMandatory enforces the cadence quota: one booking of the
// mandatory type per calendar period (month for new employees, year for
// regular) or per rolling window (six months for management). An open
// future booking of the same type always consumes the quota.
func (s *Service) checkMandatory(ctx context.Context, profile EmployeeProfile, policy ReminderPolicy, now time.Time) (Decision, error) {
	open, err := s.bookings.CountActiveBookings(ctx, profile.EmployeeID, []string{policy.MandatoryType}, truncateDay(now))
	if err != nil {
		return Decision{}, err
	}
	if open > 0 {
		return denyQuota(fmt.Sprintf("a %s interview is already scheduled", policy.MandatoryType)), nil
	}

	var from, to time.Time
	var label string
	switch profile.Status {
	case StatusNewEmployee:
		from, to = calendarMonth(now)
		label = "calendar month"
	case StatusRegularEmployee:
		from, to = calendarYear(now)
		label = "calendar year"
	case StatusManagement:
		from = truncateDay(now).AddDate(0, -6, 0)
		to = truncateDay(now).AddDate(0, 6, 0)
		label = "rolling 6-month window"
	default:
		return denyPermission(fmt.Sprintf("no mandatory cadence for status %s", profile.Status)), nil
	}

	count, err := s.bookings.CountBookings(ctx, profile.EmployeeID, []string{policy.MandatoryType}, from, to)
	if err != nil {
		return Decision{}, err
	}
	if count >= 1 {
		return denyQuota(fmt.Sprintf("only one %s interview is permitted per %s", policy.MandatoryType, label)), nil
	}
	return allow(), nil
}

// checkAdHoc enforces the ad-hoc caps: one per calendar month for new
// employees, two per rolling 3-month window for regular employees,
// unlimited for management.
func (s *Service) checkAdHoc(ctx context.Context, profile EmployeeProfile, now time.Time) (Decision, error) {
	switch profile.Status {
	case StatusNewEmployee:
		from, to := calendarMonth(now)
		count, err := s.bookings.CountBookings(ctx, profile.EmployeeID, []string{TypeAdHoc}, from, to)
		if err != nil {
			return Decision{}, err
		}
		if count >= 1 {
			return denyQuota("only one ad-hoc interview is permitted per calendar month"), nil
		}
	case StatusRegularEmployee:
		from := truncateDay(now).AddDate(0, -3, 0)
		to := truncateDay(now).AddDate(0, 3, 0)
		count, err := s.bookings.CountBookings(ctx, profile.EmployeeID, []string{TypeAdHoc}, from, to)
		if err != nil {
			return Decision{}, err
		}
		if count >= 2 {
			return denyQuota("at most two ad-hoc interviews are permitted per rolling 3-month window"), nil
		}
	}
	return allow(), nil
}

func calendarMonth(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func calendarYear(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}
