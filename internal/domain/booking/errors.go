package booking

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrNoSlotAvailable        = errors.New("no slot available")
	ErrQuotaExceeded          = errors.New("quota exceeded")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrSlotConflict           = errors.New("slot already taken")
	ErrSlotBlocked            = errors.New("slot is blocked")
	ErrSlotBooked             = errors.New("slot is booked")
	ErrValidation             = errors.New("validation failed")
)
