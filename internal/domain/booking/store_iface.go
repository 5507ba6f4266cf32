package booking

import (
	"context"
	"time"
)

// StoreAPI is the persistence contract for the allocator. Both the
// in-memory store and the Postgres store implement it.
//
// CommitBooking, SwapBookingSlot, ReleaseBooking and FinishBooking are
// atomic: either every effect (slot binding, booking row, interviewer
// load) lands or none does. CommitBooking and SwapBookingSlot return
// ErrSlotConflict when they lose a race for the target slot.
type StoreAPI interface {
	// Slots.
	EnsureSlots(ctx context.Context, slots []TimeSlot) (created int, err error)
	DeleteSlotsBefore(ctx context.Context, date string) (removed int, err error)
	GetSlot(ctx context.Context, date, start string) (TimeSlot, error)
	ListSlots(ctx context.Context, fromDate, toDate string) ([]TimeSlot, error)
	ListAvailableSlots(ctx context.Context, date string) ([]TimeSlot, error)
	BlockSlot(ctx context.Context, date, start, actor, reason string) error
	UnblockSlot(ctx context.Context, date, start string) error

	// Bookings.
	CommitBooking(ctx context.Context, b InterviewBooking) error
	GetBooking(ctx context.Context, id string) (InterviewBooking, error)
	ListBookingsByEmployee(ctx context.Context, employeeID string) ([]InterviewBooking, error)
	CountBookings(ctx context.Context, employeeID string, types []InterviewType, statuses []BookingStatus, from, to time.Time) (int, error)
	SetBookingStatus(ctx context.Context, id string, status BookingStatus, actor string) error
	ReleaseBooking(ctx context.Context, id string, status BookingStatus, actor string) error
	FinishBooking(ctx context.Context, id string, status BookingStatus, actor string, outcome *Outcome) error
	SwapBookingSlot(ctx context.Context, id, newDate, newStart, newEnd, actor string) (InterviewBooking, error)

	// Interviewers.
	UpsertInterviewer(ctx context.Context, iv Interviewer) error
	ListInterviewers(ctx context.Context) ([]Interviewer, error)
	CountInterviewerBookings(ctx context.Context, interviewerID, fromDate, toDate string) (int, error)
}
