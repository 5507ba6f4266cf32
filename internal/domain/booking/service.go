package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QuotaDecision is the policy engine's verdict on a booking request.
// Code distinguishes a recoverable quota rejection from a hard
// permission rejection (excluded employment status).
type QuotaDecision struct {
	Allowed bool
	Code    DeclineReason
	Reason  string
}

// PolicyEngine is the read-side of the reminder policy engine the
// allocator consults before committing a booking, plus the completion
// callback that resets an employee's cadence baseline.
type PolicyEngine interface {
	CheckQuota(ctx context.Context, employeeID, interviewType string) (QuotaDecision, error)
	OnInterviewCompleted(ctx context.Context, employeeID, interviewType string, completedAt time.Time) error
}

type Service struct {
	store     StoreAPI
	policy    PolicyEngine
	inventory InventoryConfig
	employees keyMutex

	// Now is injectable for tests.
	Now func() time.Time
}

func NewService(store StoreAPI, policy PolicyEngine, inventory InventoryConfig) *Service {
	if len(inventory.SlotStarts) == 0 {
		inventory = DefaultInventoryConfig()
	}
	return &Service{
		store:     store,
		policy:    policy,
		inventory: inventory,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// RequestBooking runs the full pipeline: quota check, first-fit slot
// search, interviewer assignment, atomic commit. The quota check and the
// commit are serialized per employee so two racing requests cannot both
// pass a last-remaining-quota check.
func (s *Service) RequestBooking(ctx context.Context, actorID string, req BookingRequest) (BookingResult, error) {
	if err := s.validateRequest(req); err != nil {
		return BookingResult{}, err
	}

	mu := s.employees.lock(req.EmployeeID)
	defer mu.Unlock()

	decision, err := s.policy.CheckQuota(ctx, req.EmployeeID, string(req.Type))
	if err != nil {
		return BookingResult{}, fmt.Errorf("quota check: %w", err)
	}
	if !decision.Allowed {
		result := BookingResult{Declined: decision.Code, Message: decision.Reason}
		if decision.Code == DeclineQuotaExceeded {
			result.Alternatives = s.suggestAlternatives(ctx, req)
		}
		return result, nil
	}

	// Bounded retry: losing a slot race falls through to the next
	// candidate in search order, never past the horizon's slot count.
	skip := make(map[string]bool)
	maxAttempts := s.inventory.HorizonDays * len(s.inventory.SlotStarts)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		slot, err := s.findSlot(ctx, req, skip)
		if err != nil {
			return BookingResult{}, err
		}
		if slot == nil {
			return BookingResult{
				Declined:     DeclineNoSlotAvailable,
				Message:      "no slot matches the requested dates and times",
				Alternatives: s.suggestAlternatives(ctx, req),
			}, nil
		}

		interviewerID, err := s.pickInterviewer(ctx, *slot, req.Category)
		if err != nil {
			return BookingResult{}, err
		}
		if interviewerID == "" {
			skip[slotKey(slot.Date, slot.Start)] = true
			continue
		}

		now := s.Now()
		b := InterviewBooking{
			ID:             uuid.NewString(),
			EmployeeID:     req.EmployeeID,
			EmployeeName:   req.EmployeeName,
			Email:          req.Email,
			Phone:          req.Phone,
			Department:     req.Department,
			SlotDate:       slot.Date,
			SlotStart:      slot.Start,
			SlotEnd:        slot.End,
			Type:           req.Type,
			Category:       req.Category,
			Urgency:        req.Urgency,
			Description:    req.Description,
			InterviewerID:  interviewerID,
			Status:         StatusPending,
			CreatedAt:      now,
			CreatedBy:      actorID,
			LastModified:   now,
			LastModifiedBy: actorID,
		}

		err = s.store.CommitBooking(ctx, b)
		if errors.Is(err, ErrSlotConflict) {
			skip[slotKey(slot.Date, slot.Start)] = true
			continue
		}
		if err != nil {
			return BookingResult{}, err
		}
		return BookingResult{BookingID: b.ID}, nil
	}

	return BookingResult{
		Declined:     DeclineNoSlotAvailable,
		Message:      "no slot could be reserved",
		Alternatives: s.suggestAlternatives(ctx, req),
	}, nil
}

func (s *Service) validateRequest(req BookingRequest) error {
	if strings.TrimSpace(req.EmployeeID) == "" {
		return fmt.Errorf("employeeId is required: %w", ErrValidation)
	}
	if len(req.PreferredDates) == 0 || len(req.PreferredDates) > MaxPreferredDates {
		return fmt.Errorf("between 1 and %d preferred dates required: %w", MaxPreferredDates, ErrValidation)
	}
	for _, date := range req.PreferredDates {
		if _, err := time.Parse(DateFormat, date); err != nil {
			return fmt.Errorf("preferred date %q is not YYYY-MM-DD: %w", date, ErrValidation)
		}
	}
	if len(req.PreferredTimes) == 0 {
		return fmt.Errorf("at least one preferred time required: %w", ErrValidation)
	}
	for _, hhmm := range req.PreferredTimes {
		if _, err := time.Parse(TimeFormat, hhmm); err != nil {
			return fmt.Errorf("preferred time %q is not HH:MM: %w", hhmm, ErrValidation)
		}
	}
	if !validType(req.Type) {
		return fmt.Errorf("unknown interview type %q: %w", req.Type, ErrValidation)
	}
	if !validCategory(req.Category) {
		return fmt.Errorf("unknown interview category %q: %w", req.Category, ErrValidation)
	}
	if req.Urgency != "" && !validUrgency(req.Urgency) {
		return fmt.Errorf("unknown urgency %q: %w", req.Urgency, ErrValidation)
	}
	return nil
}

// Confirm moves a pending or rescheduled booking to confirmed.
func (s *Service) Confirm(ctx context.Context, id, actor string) error {
	return s.transition(ctx, id, StatusConfirmed, func(b InterviewBooking) error {
		return s.store.SetBookingStatus(ctx, id, StatusConfirmed, actor)
	})
}

// Cancel releases the booking's slot and frees interviewer capacity.
func (s *Service) Cancel(ctx context.Context, id, actor string) error {
	return s.transition(ctx, id, StatusCancelled, func(b InterviewBooking) error {
		return s.store.ReleaseBooking(ctx, id, StatusCancelled, actor)
	})
}

// Reschedule atomically moves a confirmed booking to a new slot: the new
// slot is reserved before the old one is released, so the booking always
// holds exactly one of the two.
func (s *Service) Reschedule(ctx context.Context, id, newDate, newStart, actor string) (InterviewBooking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return InterviewBooking{}, err
	}
	if !CanTransition(b.Status, StatusRescheduled) {
		return InterviewBooking{}, fmt.Errorf("%s -> %s: %w", b.Status, StatusRescheduled, ErrInvalidStateTransition)
	}
	if !s.dateBookable(newDate, s.Now()) {
		return InterviewBooking{}, fmt.Errorf("date %s outside the booking window: %w", newDate, ErrValidation)
	}
	newEnd, err := addMinutes(newStart, s.inventory.SlotMinutes)
	if err != nil {
		return InterviewBooking{}, fmt.Errorf("new start time: %w", ErrValidation)
	}
	return s.store.SwapBookingSlot(ctx, id, newDate, newStart, newEnd, actor)
}

// Complete records the outcome, terminates the booking and notifies the
// reminder engine so the employee's cadence baseline resets.
func (s *Service) Complete(ctx context.Context, id, actor string, outcome Outcome) error {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(b.Status, StatusCompleted) {
		return fmt.Errorf("%s -> %s: %w", b.Status, StatusCompleted, ErrInvalidStateTransition)
	}
	if err := s.store.FinishBooking(ctx, id, StatusCompleted, actor, &outcome); err != nil {
		return err
	}

	completedAt, err := slotInstant(b.SlotDate, b.SlotStart)
	if err != nil {
		completedAt = s.Now()
	}
	if err := s.policy.OnInterviewCompleted(ctx, b.EmployeeID, string(b.Type), completedAt); err != nil {
		return fmt.Errorf("reminder engine completion: %w", err)
	}
	return nil
}

func (s *Service) MarkNoShow(ctx context.Context, id, actor string) error {
	return s.transition(ctx, id, StatusNoShow, func(b InterviewBooking) error {
		return s.store.FinishBooking(ctx, id, StatusNoShow, actor, nil)
	})
}

func (s *Service) transition(ctx context.Context, id string, to BookingStatus, apply func(InterviewBooking) error) error {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("%s -> %s: %w", b.Status, to, ErrInvalidStateTransition)
	}
	return apply(b)
}

func (s *Service) BlockSlot(ctx context.Context, date, start, actor, reason string) error {
	return s.store.BlockSlot(ctx, date, start, actor, reason)
}

func (s *Service) UnblockSlot(ctx context.Context, date, start string) error {
	return s.store.UnblockSlot(ctx, date, start)
}

func (s *Service) GetBooking(ctx context.Context, id string) (InterviewBooking, error) {
	return s.store.GetBooking(ctx, id)
}

// History returns the employee's bookings, most recent slot first.
func (s *Service) History(ctx context.Context, employeeID string) ([]InterviewBooking, error) {
	return s.store.ListBookingsByEmployee(ctx, employeeID)
}

func (s *Service) ListSlots(ctx context.Context, fromDate, toDate string) ([]TimeSlot, error) {
	return s.store.ListSlots(ctx, fromDate, toDate)
}

func (s *Service) UpsertInterviewer(ctx context.Context, iv Interviewer) error {
	if strings.TrimSpace(iv.ID) == "" {
		iv.ID = uuid.NewString()
	}
	return s.store.UpsertInterviewer(ctx, iv)
}

func (s *Service) ListInterviewers(ctx context.Context) ([]Interviewer, error) {
	return s.store.ListInterviewers(ctx)
}

func validType(t InterviewType) bool {
	for _, candidate := range ValidTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

func validCategory(c InterviewCategory) bool {
	for _, candidate := range ValidCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

func validUrgency(u Urgency) bool {
	for _, candidate := range ValidUrgencies {
		if candidate == u {
			return true
		}
	}
	return false
}
