package reminder

import "time"

type EmploymentStatus string

const (
	StatusNewEmployee     EmploymentStatus = "new_employee"
	StatusRegularEmployee EmploymentStatus = "regular_employee"
	StatusManagement      EmploymentStatus = "management"
	StatusOnLeave         EmploymentStatus = "on_leave"
	StatusRetiring        EmploymentStatus = "retiring"
)

var ValidStatuses = []EmploymentStatus{
	StatusNewEmployee, StatusRegularEmployee, StatusManagement,
	StatusOnLeave, StatusRetiring,
}

func ValidStatus(s EmploymentStatus) bool {
	for _, candidate := range ValidStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// SpecialCircumstances carries HR-feed flags that modify reminder
// behavior. ReturnDate is YYYY-MM-DD.
type SpecialCircumstances struct {
	OnLeave        bool   `json:"onLeave,omitempty"`
	Retiring       bool   `json:"retiring,omitempty"`
	MaternityLeave bool   `json:"maternityLeave,omitempty"`
	ReturnDate     string `json:"returnDate,omitempty"`
}

// InterviewHistory is mutated only through OnInterviewCompleted.
type InterviewHistory struct {
	FirstInterviewDate *time.Time `json:"firstInterviewDate,omitempty"`
	LastInterviewDate  *time.Time `json:"lastInterviewDate,omitempty"`
	LastMandatoryDate  *time.Time `json:"lastMandatoryDate,omitempty"`
	TotalCount         int        `json:"totalCount"`
	MandatoryCompleted int        `json:"mandatoryCompleted"`
	OverdueCount       int        `json:"overdueCount"`
}

type EmployeeProfile struct {
	EmployeeID string               `json:"employeeId"`
	Name       string               `json:"name,omitempty"`
	Email      string               `json:"email,omitempty"`
	Department string               `json:"department,omitempty"`
	HireDate   time.Time            `json:"hireDate"`
	Status     EmploymentStatus     `json:"employmentStatus"`
	Special    SpecialCircumstances `json:"specialCircumstances"`
	History    InterviewHistory     `json:"interviewHistory"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// ReminderPolicy is the cadence configuration for one employment status,
// optionally narrowed to a department.
type ReminderPolicy struct {
	Status              EmploymentStatus `json:"employmentStatus"`
	Department          string           `json:"department,omitempty"`
	MandatoryType       string           `json:"mandatoryInterviewType"`
	IntervalDays        int              `json:"intervalDays"`
	PreDueOffsets       []int            `json:"reminderOffsetsBeforeDue"`
	OverdueOffsets      []int            `json:"overdueOffsetsAfterDue"`
	MaxOverdueReminders int              `json:"maxOverdueReminders"`
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityUrgent   Severity = "urgent"
	SeverityOverdue  Severity = "overdue"
	SeverityCritical Severity = "critical"
)

type ReminderItem struct {
	Date     time.Time `json:"date"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Overdue  bool      `json:"overdue"`
}

type ReminderSchedule struct {
	EmployeeID       string         `json:"employeeId"`
	NextDueDate      *time.Time     `json:"nextDueDate,omitempty"`
	IsOverdue        bool           `json:"isOverdue"`
	DaysSinceOverdue int            `json:"daysSinceOverdue"`
	Reminders        []ReminderItem `json:"upcomingReminders"`
}
