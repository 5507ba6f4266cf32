package reminder

import (
	"fmt"
	"time"
)

// nextDueDate computes baseline + intervalDays. Baseline is the last
// completed mandatory interview, else the hire date. Excluded
// circumstances return nil: on leave, retiring, or maternity leave
// earlier than one month before the recorded return date.
func nextDueDate(profile EmployeeProfile, policy ReminderPolicy, now time.Time) *time.Time {
	if profile.Status == StatusOnLeave || profile.Status == StatusRetiring {
		return nil
	}
	if profile.Special.OnLeave || profile.Special.Retiring {
		return nil
	}
	if profile.Special.MaternityLeave {
		returnDay, err := time.Parse("2006-01-02", profile.Special.ReturnDate)
		if err != nil {
			return nil
		}
		if truncateDay(now).Before(returnDay.AddDate(0, 0, -30)) {
			return nil
		}
	}

	baseline := profile.HireDate
	if profile.History.LastMandatoryDate != nil {
		baseline = *profile.History.LastMandatoryDate
	}
	due := truncateDay(baseline).AddDate(0, 0, policy.IntervalDays)
	return &due
}

// buildSchedule emits the reminder sequence for a profile. Pre-due
// reminders fire at the configured offsets before the due date; once the
// due date passes, up to MaxOverdueReminders escalating reminders fire at
// the configured offsets after it.
func buildSchedule(profile EmployeeProfile, policy ReminderPolicy, now time.Time) ReminderSchedule {
	schedule := ReminderSchedule{EmployeeID: profile.EmployeeID}

	due := nextDueDate(profile, policy, now)
	if due == nil {
		return schedule
	}
	schedule.NextDueDate = due

	today := truncateDay(now)
	dueDay := truncateDay(*due)

	if !today.After(dueDay) {
		for _, offset := range policy.PreDueOffsets {
			date := dueDay.AddDate(0, 0, -offset)
			schedule.Reminders = append(schedule.Reminders, ReminderItem{
				Date:     date,
				Severity: severityForPreDue(offset),
				Message:  preDueMessage(policy.MandatoryType, offset),
			})
		}
		return schedule
	}

	schedule.IsOverdue = true
	schedule.DaysSinceOverdue = int(today.Sub(dueDay).Hours() / 24)

	total := len(policy.OverdueOffsets)
	if policy.MaxOverdueReminders > 0 && total > policy.MaxOverdueReminders {
		total = policy.MaxOverdueReminders
	}
	for i := 0; i < total; i++ {
		offset := policy.OverdueOffsets[i]
		date := dueDay.AddDate(0, 0, offset)
		schedule.Reminders = append(schedule.Reminders, ReminderItem{
			Date:     date,
			Severity: severityForOverdue(i, total),
			Message:  overdueMessage(policy.MandatoryType, offset),
			Overdue:  true,
		})
	}
	return schedule
}

func preDueMessage(mandatoryType string, daysBefore int) string {
	if daysBefore == 1 {
		return fmt.Sprintf("Your %s interview is due tomorrow. Please book a slot.", mandatoryType)
	}
	return fmt.Sprintf("Your %s interview is due in %d days. Please book a slot.", mandatoryType, daysBefore)
}

func overdueMessage(mandatoryType string, daysAfter int) string {
	if daysAfter == 1 {
		return fmt.Sprintf("Your %s interview is 1 day overdue. Book a slot immediately.", mandatoryType)
	}
	return fmt.Sprintf("Your %s interview is %d days overdue. Book a slot immediately.", mandatoryType, daysAfter)
}
