package notifications

const (
	TypeBookingCreated     = "booking_created"
	TypeBookingConfirmed   = "booking_confirmed"
	TypeBookingCancelled   = "booking_cancelled"
	TypeBookingRescheduled = "booking_rescheduled"
	TypeBookingCompleted   = "booking_completed"
	TypeReminderDue        = "reminder_due"
	TypeReminderOverdue    = "reminder_overdue"
)
