package reminder

// Interview type names shared with the allocator. Kept as strings at the
// package boundary so neither domain imports the other.
const (
	TypeNewEmployeeMonthly = "new_employee_monthly"
	TypeAnnual             = "annual"
	TypeBiannual           = "biannual"
	TypeReturnToWork       = "return_to_work"
	TypeExitInterview      = "exit_interview"
	TypeAdHoc              = "ad_hoc"
)

// DefaultPolicies is the status-level cadence table. Departments may
// override any entry via RegisterPolicy; overrides take precedence.
func DefaultPolicies() []ReminderPolicy {
	return []ReminderPolicy{
		{
			Status:              StatusNewEmployee,
			MandatoryType:       TypeNewEmployeeMonthly,
			IntervalDays:        30,
			PreDueOffsets:       []int{7, 3, 1},
			OverdueOffsets:      []int{1, 3, 7, 14},
			MaxOverdueReminders: 4,
		},
		{
			Status:              StatusRegularEmployee,
			MandatoryType:       TypeAnnual,
			IntervalDays:        365,
			PreDueOffsets:       []int{30, 14, 7},
			OverdueOffsets:      []int{1, 7, 14, 30},
			MaxOverdueReminders: 4,
		},
		{
			Status:              StatusManagement,
			MandatoryType:       TypeBiannual,
			IntervalDays:        180,
			PreDueOffsets:       []int{30, 14, 7},
			OverdueOffsets:      []int{1, 7, 14, 30},
			MaxOverdueReminders: 4,
		},
	}
}

func severityForPreDue(daysBefore int) Severity {
	switch {
	case daysBefore >= 30:
		return SeverityInfo
	case daysBefore >= 7:
		return SeverityWarning
	default:
		return SeverityUrgent
	}
}

// severityForOverdue escalates with the reminder's position in the
// overdue sequence, ending at critical.
func severityForOverdue(index, total int) Severity {
	if total > 1 && index == total-1 {
		return SeverityCritical
	}
	return SeverityOverdue
}
