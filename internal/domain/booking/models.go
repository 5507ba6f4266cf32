package booking

import "time"

type BookingStatus string

const (
	StatusPending     BookingStatus = "pending"
	StatusConfirmed   BookingStatus = "confirmed"
	StatusRescheduled BookingStatus = "rescheduled"
	StatusCompleted   BookingStatus = "completed"
	StatusCancelled   BookingStatus = "cancelled"
	StatusNoShow      BookingStatus = "no_show"
)

type InterviewType string

const (
	TypeNewEmployeeMonthly InterviewType = "new_employee_monthly"
	TypeAnnual             InterviewType = "annual"
	TypeBiannual           InterviewType = "biannual"
	TypeReturnToWork       InterviewType = "return_to_work"
	TypeExitInterview      InterviewType = "exit_interview"
	TypeAdHoc              InterviewType = "ad_hoc"
)

type InterviewCategory string

const (
	CategoryHRGeneral InterviewCategory = "hr_general"
	CategoryCareer    InterviewCategory = "career"
	CategoryWellbeing InterviewCategory = "wellbeing"
	CategoryWorkplace InterviewCategory = "workplace"
	CategoryExit      InterviewCategory = "exit"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// TimeSlot is one bookable window. Identity is (Date, Start); Date is
// YYYY-MM-DD and Start/End are HH:MM, always UTC.
type TimeSlot struct {
	Date          string `json:"date"`
	Start         string `json:"startTime"`
	End           string `json:"endTime"`
	Available     bool   `json:"available"`
	Blocked       bool   `json:"blocked"`
	BlockedBy     string `json:"blockedBy,omitempty"`
	BlockedReason string `json:"blockedReason,omitempty"`
	BookedBy      string `json:"bookedBy,omitempty"`
	BookingID     string `json:"bookingId,omitempty"`
}

// Outcome is recorded when an interview completes.
type Outcome struct {
	Summary          string `json:"summary"`
	FollowUpRequired bool   `json:"followUpRequired"`
	FollowUpDate     string `json:"followUpDate,omitempty"`
}

type InterviewBooking struct {
	ID             string            `json:"id"`
	EmployeeID     string            `json:"employeeId"`
	EmployeeName   string            `json:"employeeName,omitempty"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Department     string            `json:"department,omitempty"`
	SlotDate       string            `json:"slotDate"`
	SlotStart      string            `json:"slotStart"`
	SlotEnd        string            `json:"slotEnd"`
	Type           InterviewType     `json:"interviewType"`
	Category       InterviewCategory `json:"interviewCategory"`
	Urgency        Urgency           `json:"urgency"`
	Description    string            `json:"description,omitempty"`
	InterviewerID  string            `json:"interviewerId,omitempty"`
	Status         BookingStatus     `json:"status"`
	Outcome        *Outcome          `json:"outcome,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	CreatedBy      string            `json:"createdBy"`
	LastModified   time.Time         `json:"lastModified"`
	LastModifiedBy string            `json:"lastModifiedBy"`
}

type Interviewer struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Specialties     []InterviewCategory `json:"specialties"`
	WorkDays        []time.Weekday      `json:"workDays"`
	WorkStart       string              `json:"workStart"`
	WorkEnd         string              `json:"workEnd"`
	CurrentBookings int                 `json:"currentBookings"`
	MaxPerDay       int                 `json:"maxPerDay"`
	MaxPerWeek      int                 `json:"maxPerWeek"`
	Active          bool                `json:"active"`
}

// BookingRequest carries the caller's preferences. PreferredDates are
// tried in order; PreferredTimes apply within each date.
type BookingRequest struct {
	EmployeeID     string            `json:"employeeId"`
	EmployeeName   string            `json:"employeeName,omitempty"`
	Email          string            `json:"email,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	Department     string            `json:"department,omitempty"`
	PreferredDates []string          `json:"preferredDates"`
	PreferredTimes []string          `json:"preferredTimes"`
	Type           InterviewType     `json:"interviewType"`
	Category       InterviewCategory `json:"interviewCategory"`
	Urgency        Urgency           `json:"urgency"`
	Description    string            `json:"description,omitempty"`
}

type DeclineReason string

const (
	DeclineNoSlotAvailable  DeclineReason = "no_slot_available"
	DeclineQuotaExceeded    DeclineReason = "quota_exceeded"
	DeclinePermissionDenied DeclineReason = "permission_denied"
)

// SlotRef identifies a slot offered as an alternative.
type SlotRef struct {
	Date  string `json:"date"`
	Start string `json:"startTime"`
	End   string `json:"endTime"`
}

// BookingResult is the outcome of RequestBooking. Either BookingID is set
// or Declined carries the reason and any suggested alternatives.
type BookingResult struct {
	BookingID    string        `json:"bookingId,omitempty"`
	Declined     DeclineReason `json:"declined,omitempty"`
	Message      string        `json:"message,omitempty"`
	Alternatives []SlotRef     `json:"alternatives,omitempty"`
}

func (r BookingResult) Accepted() bool {
	return r.BookingID != ""
}

var ValidStatuses = []BookingStatus{
	StatusPending, StatusConfirmed, StatusRescheduled,
	StatusCompleted, StatusCancelled, StatusNoShow,
}

var ValidTypes = []InterviewType{
	TypeNewEmployeeMonthly, TypeAnnual, TypeBiannual,
	TypeReturnToWork, TypeExitInterview, TypeAdHoc,
}

var ValidCategories = []InterviewCategory{
	CategoryHRGeneral, CategoryCareer, CategoryWellbeing,
	CategoryWorkplace, CategoryExit,
}

var ValidUrgencies = []Urgency{UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent}

// transitions is the allowed state machine. Anything not listed is an
// invalid transition.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed:   {StatusRescheduled, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusRescheduled: {StatusConfirmed},
}

func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ActiveStatuses are bookings that hold a slot and count toward
// interviewer load and quota checks.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusRescheduled}

func IsActiveStatus(status BookingStatus) bool {
	for _, s := range ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status BookingStatus) bool {
	switch status {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}
