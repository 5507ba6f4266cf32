package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps the full allocator state in process. All compound
// operations run under a single store mutex, so the check-and-reserve on
// a slot is atomic with the booking insert and the interviewer load
// change.
type MemoryStore struct {
	mu           sync.RWMutex
	slots        map[string]*TimeSlot
	bookings     map[string]*InterviewBooking
	interviewers map[string]*Interviewer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:        make(map[string]*TimeSlot),
		bookings:     make(map[string]*InterviewBooking),
		interviewers: make(map[string]*Interviewer),
	}
}

func slotKey(date, start string) string {
	return date + "T" + start
}

func (s *MemoryStore) EnsureSlots(ctx context.Context, slots []TimeSlot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	for _, slot := range slots {
		key := slotKey(slot.Date, slot.Start)
		if _, exists := s.slots[key]; exists {
			continue
		}
		copied := slot
		s.slots[key] = &copied
		created++
	}
	return created, nil
}

func (s *MemoryStore) DeleteSlotsBefore(ctx context.Context, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, slot := range s.slots {
		if slot.Date < date {
			delete(s.slots, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) GetSlot(ctx context.Context, date, start string) (TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[slotKey(date, start)]
	if !ok {
		return TimeSlot{}, fmt.Errorf("slot %s %s: %w", date, start, ErrNotFound)
	}
	return *slot, nil
}

func (s *MemoryStore) ListSlots(ctx context.Context, fromDate, toDate string) ([]TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TimeSlot
	for _, slot := range s.slots {
		if slot.Date < fromDate || slot.Date > toDate {
			continue
		}
		out = append(out, *slot)
	}
	sortSlots(out)
	return out, nil
}

func (s *MemoryStore) ListAvailableSlots(ctx context.Context, date string) ([]TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TimeSlot
	for _, slot := range s.slots {
		if slot.Date == date && slot.Available {
			out = append(out, *slot)
		}
	}
	sortSlots(out)
	return out, nil
}

func (s *MemoryStore) BlockSlot(ctx context.Context, date, start, actor, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotKey(date, start)]
	if !ok {
		return fmt.Errorf("slot %s %s: %w", date, start, ErrNotFound)
	}
	if slot.BookingID != "" {
		return ErrSlotBooked
	}
	slot.Blocked = true
	slot.BlockedBy = actor
	slot.BlockedReason = reason
	slot.Available = false
	return nil
}

func (s *MemoryStore) UnblockSlot(ctx context.Context, date, start string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotKey(date, start)]
	if !ok {
		return fmt.Errorf("slot %s %s: %w", date, start, ErrNotFound)
	}
	slot.Blocked = false
	slot.BlockedBy = ""
	slot.BlockedReason = ""
	slot.Available = slot.BookingID == ""
	return nil
}

func (s *MemoryStore) CommitBooking(ctx context.Context, b InterviewBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotKey(b.SlotDate, b.SlotStart)]
	if !ok {
		return fmt.Errorf("slot %s %s: %w", b.SlotDate, b.SlotStart, ErrNotFound)
	}
	if !slot.Available || slot.BookingID != "" {
		return ErrSlotConflict
	}
	if _, exists := s.bookings[b.ID]; exists {
		return fmt.Errorf("booking %s already exists", b.ID)
	}

	slot.Available = false
	slot.BookedBy = b.EmployeeID
	slot.BookingID = b.ID

	copied := b
	s.bookings[b.ID] = &copied

	if b.InterviewerID != "" {
		if iv, ok := s.interviewers[b.InterviewerID]; ok {
			iv.CurrentBookings++
		}
	}
	return nil
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (InterviewBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return InterviewBooking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return *b, nil
}

func (s *MemoryStore) ListBookingsByEmployee(ctx context.Context, employeeID string) ([]InterviewBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []InterviewBooking
	for _, b := range s.bookings {
		if b.EmployeeID == employeeID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotDate == out[j].SlotDate {
			return out[i].SlotStart > out[j].SlotStart
		}
		return out[i].SlotDate > out[j].SlotDate
	})
	return out, nil
}

func (s *MemoryStore) CountBookings(ctx context.Context, employeeID string, types []InterviewType, statuses []BookingStatus, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.bookings {
		if b.EmployeeID != employeeID {
			continue
		}
		if !containsType(types, b.Type) || !containsStatus(statuses, b.Status) {
			continue
		}
		slotDay, err := time.Parse(DateFormat, b.SlotDate)
		if err != nil {
			continue
		}
		if slotDay.Before(from) || !slotDay.Before(to) {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) SetBookingStatus(ctx context.Context, id string, status BookingStatus, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	b.Status = status
	b.LastModified = time.Now().UTC()
	b.LastModifiedBy = actor
	return nil
}

func (s *MemoryStore) ReleaseBooking(ctx context.Context, id string, status BookingStatus, actor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}

	if slot, ok := s.slots[slotKey(b.SlotDate, b.SlotStart)]; ok && slot.BookingID == id {
		slot.BookingID = ""
		slot.BookedBy = ""
		slot.Available = !slot.Blocked
	}
	s.releaseInterviewerLocked(b.InterviewerID)

	b.Status = status
	b.LastModified = time.Now().UTC()
	b.LastModifiedBy = actor
	return nil
}

func (s *MemoryStore) FinishBooking(ctx context.Context, id string, status BookingStatus, actor string, outcome *Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}

	s.releaseInterviewerLocked(b.InterviewerID)

	b.Status = status
	b.Outcome = outcome
	b.LastModified = time.Now().UTC()
	b.LastModifiedBy = actor
	return nil
}

func (s *MemoryStore) SwapBookingSlot(ctx context.Context, id, newDate, newStart, newEnd, actor string) (InterviewBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return InterviewBooking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}

	next, ok := s.slots[slotKey(newDate, newStart)]
	if !ok {
		return InterviewBooking{}, fmt.Errorf("slot %s %s: %w", newDate, newStart, ErrNotFound)
	}
	if !next.Available || next.BookingID != "" {
		return InterviewBooking{}, ErrSlotConflict
	}

	// Reserve the new slot before releasing the old one so there is no
	// window where the booking holds neither.
	next.Available = false
	next.BookedBy = b.EmployeeID
	next.BookingID = b.ID

	if prev, ok := s.slots[slotKey(b.SlotDate, b.SlotStart)]; ok && prev.BookingID == id {
		prev.BookingID = ""
		prev.BookedBy = ""
		prev.Available = !prev.Blocked
	}

	b.SlotDate = newDate
	b.SlotStart = newStart
	b.SlotEnd = newEnd
	b.Status = StatusRescheduled
	b.LastModified = time.Now().UTC()
	b.LastModifiedBy = actor
	return *b, nil
}

func (s *MemoryStore) UpsertInterviewer(ctx context.Context, iv Interviewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.interviewers[iv.ID]; ok {
		iv.CurrentBookings = existing.CurrentBookings
	}
	copied := iv
	s.interviewers[iv.ID] = &copied
	return nil
}

func (s *MemoryStore) ListInterviewers(ctx context.Context) ([]Interviewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Interviewer, 0, len(s.interviewers))
	for _, iv := range s.interviewers {
		out = append(out, *iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountInterviewerBookings(ctx context.Context, interviewerID, fromDate, toDate string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, b := range s.bookings {
		if b.InterviewerID != interviewerID || !IsActiveStatus(b.Status) {
			continue
		}
		if b.SlotDate < fromDate || b.SlotDate > toDate {
			continue
		}
		count++
	}
	return count, nil
}

func (s *MemoryStore) releaseInterviewerLocked(interviewerID string) {
	if interviewerID == "" {
		return
	}
	if iv, ok := s.interviewers[interviewerID]; ok && iv.CurrentBookings > 0 {
		iv.CurrentBookings--
	}
}

func sortSlots(slots []TimeSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date == slots[j].Date {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].Date < slots[j].Date
	})
}

func containsType(types []InterviewType, t InterviewType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsStatus(statuses []BookingStatus, st BookingStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, candidate := range statuses {
		if candidate == st {
			return true
		}
	}
	return false
}
