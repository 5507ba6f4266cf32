package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fixedNow is a Monday morning; all tests pin the clock here so slot
// math is deterministic.
var fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type stubPolicy struct {
	mu        sync.Mutex
	decision  QuotaDecision
	completed []string
}

func allowAll() *stubPolicy {
	return &stubPolicy{decision: QuotaDecision{Allowed: true}}
}

func (p *stubPolicy) CheckQuota(ctx context.Context, employeeID, interviewType string) (QuotaDecision, error) {
	return p.decision, nil
}

func (p *stubPolicy) OnInterviewCompleted(ctx context.Context, employeeID, interviewType string, completedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, employeeID+"/"+interviewType)
	return nil
}

func newTestService(t *testing.T, policy PolicyEngine, starts []string) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	inventory := InventoryConfig{
		HorizonDays:  30,
		SlotStarts:   starts,
		SlotMinutes:  30,
		WorkingDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MinLeadHours: 24,
	}
	svc := NewService(store, policy, inventory)
	svc.Now = func() time.Time { return fixedNow }

	if _, _, err := svc.RollHorizon(context.Background()); err != nil {
		t.Fatalf("roll horizon: %v", err)
	}
	if err := store.UpsertInterviewer(context.Background(), Interviewer{
		ID:          "iv-1",
		Name:        "Sato Yuki",
		Specialties: []InterviewCategory{CategoryHRGeneral, CategoryCareer},
		WorkDays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		WorkStart:   "09:00",
		WorkEnd:     "17:00",
		Active:      true,
	}); err != nil {
		t.Fatalf("seed interviewer: %v", err)
	}
	return svc, store
}

func baseRequest() BookingRequest {
	return BookingRequest{
		EmployeeID:     "emp-1",
		EmployeeName:   "Suzuki Akira",
		Email:          "akira@example.com",
		PreferredDates: []string{"2026-03-10"},
		PreferredTimes: []string{"13:40"},
		Type:           TypeAdHoc,
		Category:       CategoryHRGeneral,
		Urgency:        UrgencyNormal,
	}
}

func TestRequestBookingExactTimeMatch(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00", "10:00", "11:00", "13:40", "14:00"})

	result, err := svc.RequestBooking(context.Background(), "emp-1", baseRequest())
	if err != nil {
		t.Fatalf("request booking: %v", err)
	}
	if !result.Accepted() {
		t.Fatalf("expected acceptance, got decline %s: %s", result.Declined, result.Message)
	}

	b, err := store.GetBooking(context.Background(), result.BookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b.SlotDate != "2026-03-10" || b.SlotStart != "13:40" || b.SlotEnd != "14:10" {
		t.Fatalf("unexpected slot binding: %s %s-%s", b.SlotDate, b.SlotStart, b.SlotEnd)
	}
	if b.Status != StatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if b.InterviewerID != "iv-1" {
		t.Fatalf("expected interviewer iv-1, got %q", b.InterviewerID)
	}

	slot, err := store.GetSlot(context.Background(), "2026-03-10", "13:40")
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Available || slot.BookingID != b.ID {
		t.Fatalf("slot not bound to booking: available=%v bookingID=%s", slot.Available, slot.BookingID)
	}
}

func TestRequestBookingFallsBackToEarliestSlot(t *testing.T) {
	svc, _ := newTestService(t, allowAll(), []string{"09:00", "10:00", "11:00"})

	req := baseRequest()
	req.PreferredTimes = []string{"08:00"}
	result, err := svc.RequestBooking(context.Background(), "emp-1", req)
	if err != nil {
		t.Fatalf("request booking: %v", err)
	}
	if !result.Accepted() {
		t.Fatalf("expected acceptance, got decline %s", result.Declined)
	}

	b, err := svc.GetBooking(context.Background(), result.BookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if b.SlotStart != "09:00" {
		t.Fatalf("expected earliest slot 09:00, got %s", b.SlotStart)
	}
}

func TestRequestBookingSecondPreferredDateWins(t *testing.T) {
	svc, _ := newTestService(t, allowAll(), []string{"09:00"})

	// Saturday has no slots; the second preferred date should be used.
	req := baseRequest()
	req.PreferredDates = []string{"2026-03-07", "2026-03-11"}
	req.PreferredTimes = []string{"09:00"}
	result, err := svc.RequestBooking(context.Background(), "emp-1", req)
	if err != nil {
		t.Fatalf("request booking: %v", err)
	}
	if !result.Accepted() {
		t.Fatalf("expected acceptance, got decline %s", result.Declined)
	}
	b, _ := svc.GetBooking(context.Background(), result.BookingID)
	if b.SlotDate != "2026-03-11" {
		t.Fatalf("expected 2026-03-11, got %s", b.SlotDate)
	}
}

func TestRequestBookingRejectsSameDayWithinLeadTime(t *testing.T) {
	svc, _ := newTestService(t, allowAll(), []string{"09:00", "14:00"})

	req := baseRequest()
	req.PreferredDates = []string{fixedNow.Format(DateFormat)}
	req.PreferredTimes = []string{"14:00"}
	result, err := svc.RequestBooking(context.Background(), "emp-1", req)
	if err != nil {
		t.Fatalf("request booking: %v", err)
	}
	if result.Accepted() {
		t.Fatal("expected decline inside lead time")
	}
	if result.Declined != DeclineNoSlotAvailable {
		t.Fatalf("expected no_slot_available, got %s", result.Declined)
	}
	if len(result.Alternatives) == 0 {
		t.Fatal("expected alternatives outside the lead window")
	}
	for _, alt := range result.Alternatives {
		if alt.Date == fixedNow.Format(DateFormat) {
			t.Fatalf("alternative %s %s is inside the lead window", alt.Date, alt.Start)
		}
	}
}

func TestRequestBookingQuotaDeclineCarriesAlternatives(t *testing.T) {
	policy := &stubPolicy{decision: QuotaDecision{
		Allowed: false,
		Code:    DeclineQuotaExceeded,
		Reason:  "only one annual interview is permitted per calendar year",
	}}
	svc, _ := newTestService(t, policy, []string{"09:00", "10:00"})

	result, err := svc.RequestBooking(context.Background(), "emp-1", baseRequest())
	if err != nil {
		t.Fatalf("request booking: %v", err)
	}
	if result.Accepted() {
		t.Fatal("expected quota decline")
	}
	if result.Declined != DeclineQuotaExceeded {
		t.Fatalf("expected quota_exceeded, got %s", result.Declined)
	}
	if len(result.Alternatives) == 0 {
		t.Fatal("expected alternatives on quota decline")
	}
}

func TestRequestBookingPermissionDeniedHasNoAlternatives(t *testing.T) {
	policy := &stubPolicy{decision: QuotaDecision{
		Allowed: false,
		Code:    DeclinePermissionDenied,
		Reason:  "employees on leave may only book a return_to_work interview",
	}}
	svc, _ := newTestService(t, policy, []string{"09:00"})

	result, err := svc.RequestBooking(context.Background(), "emp-1", baseRequest())
	if err != nil {
		t.Fatalf("request booking: %v", err)
	}
	if result.Declined != DeclinePermissionDenied {
		t.Fatalf("expected permission_denied, got %s", result.Declined)
	}
	if len(result.Alternatives) != 0 {
		t.Fatal("permission denials must not suggest alternatives")
	}
}

func TestRequestBookingValidation(t *testing.T) {
	svc, _ := newTestService(t, allowAll(), []string{"09:00"})

	cases := []struct {
		name   string
		mutate func(*BookingRequest)
	}{
		{"missing employee", func(r *BookingRequest) { r.EmployeeID = "" }},
		{"no dates", func(r *BookingRequest) { r.PreferredDates = nil }},
		{"too many dates", func(r *BookingRequest) {
			r.PreferredDates = []string{"2026-03-10", "2026-03-11", "2026-03-12", "2026-03-13"}
		}},
		{"bad date", func(r *BookingRequest) { r.PreferredDates = []string{"10/03/2026"} }},
		{"no times", func(r *BookingRequest) { r.PreferredTimes = nil }},
		{"bad time", func(r *BookingRequest) { r.PreferredTimes = []string{"1pm"} }},
		{"bad type", func(r *BookingRequest) { r.Type = "coffee_chat" }},
		{"bad category", func(r *BookingRequest) { r.Category = "gossip" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)
			_, err := svc.RequestBooking(context.Background(), "emp-1", req)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCommitBookingSingleWinnerUnderContention(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.EnsureSlots(context.Background(), []TimeSlot{
		{Date: "2026-03-10", Start: "09:00", End: "09:30", Available: true},
	})
	if err != nil {
		t.Fatalf("ensure slots: %v", err)
	}

	const contenders = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	conflicts := 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b := InterviewBooking{
				ID:         "bk-" + string(rune('a'+n%26)) + string(rune('a'+n/26)),
				EmployeeID: "emp-x",
				SlotDate:   "2026-03-10",
				SlotStart:  "09:00",
				SlotEnd:    "09:30",
				Type:       TypeAdHoc,
				Category:   CategoryHRGeneral,
				Status:     StatusPending,
			}
			err := store.CommitBooking(context.Background(), b)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d (conflicts %d)", winners, conflicts)
	}
	if conflicts != contenders-1 {
		t.Fatalf("expected %d conflicts, got %d", contenders-1, conflicts)
	}
}

func TestConcurrentRequestsForSingleSlot(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00"})

	// Only one working day in range: block every other date.
	ctx := context.Background()
	slots, err := store.ListSlots(ctx, "2026-03-02", "2026-04-30")
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	for _, slot := range slots {
		if slot.Date != "2026-03-10" {
			if err := store.BlockSlot(ctx, slot.Date, slot.Start, "admin", "maintenance"); err != nil {
				t.Fatalf("block slot: %v", err)
			}
		}
	}

	const contenders = 8
	var wg sync.WaitGroup
	results := make([]BookingResult, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			req := baseRequest()
			req.EmployeeID = "emp-" + string(rune('a'+n))
			req.PreferredTimes = []string{"09:00"}
			result, err := svc.RequestBooking(ctx, req.EmployeeID, req)
			if err != nil {
				t.Errorf("request booking: %v", err)
				return
			}
			results[n] = result
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, result := range results {
		if result.Accepted() {
			accepted++
		} else if result.Declined != DeclineNoSlotAvailable {
			t.Fatalf("unexpected decline reason %s", result.Declined)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted booking, got %d", accepted)
	}
}

func TestLifecycleConfirmCompleteResetsPolicy(t *testing.T) {
	policy := allowAll()
	svc, store := newTestService(t, policy, []string{"09:00", "10:00"})
	ctx := context.Background()

	result, err := svc.RequestBooking(ctx, "emp-1", baseRequest())
	if err != nil || !result.Accepted() {
		t.Fatalf("request booking: %v %+v", err, result)
	}
	id := result.BookingID

	// Completing a pending booking is not allowed.
	if err := svc.Complete(ctx, id, "admin", Outcome{Summary: "fine"}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if err := svc.Confirm(ctx, id, "emp-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := svc.Complete(ctx, id, "admin", Outcome{Summary: "all good", FollowUpRequired: false}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	b, _ := store.GetBooking(ctx, id)
	if b.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", b.Status)
	}
	if b.Outcome == nil || b.Outcome.Summary != "all good" {
		t.Fatalf("outcome not recorded: %+v", b.Outcome)
	}
	if len(policy.completed) != 1 || policy.completed[0] != "emp-1/ad_hoc" {
		t.Fatalf("policy engine not notified: %v", policy.completed)
	}

	// Terminal states accept no further transitions.
	if err := svc.Cancel(ctx, id, "emp-1"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected invalid transition from completed, got %v", err)
	}
}

func TestCancelReleasesSlotAndInterviewer(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00"})
	ctx := context.Background()

	result, err := svc.RequestBooking(ctx, "emp-1", func() BookingRequest {
		r := baseRequest()
		r.PreferredTimes = []string{"09:00"}
		return r
	}())
	if err != nil || !result.Accepted() {
		t.Fatalf("request booking: %v %+v", err, result)
	}

	b, _ := store.GetBooking(ctx, result.BookingID)
	if err := svc.Cancel(ctx, result.BookingID, "emp-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	slot, _ := store.GetSlot(ctx, b.SlotDate, b.SlotStart)
	if !slot.Available || slot.BookingID != "" {
		t.Fatalf("slot not released: %+v", slot)
	}
	interviewers, _ := store.ListInterviewers(ctx)
	if interviewers[0].CurrentBookings != 0 {
		t.Fatalf("interviewer load not released: %d", interviewers[0].CurrentBookings)
	}
}

func TestRescheduleMovesSlotAtomically(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00", "10:00"})
	ctx := context.Background()

	result, err := svc.RequestBooking(ctx, "emp-1", func() BookingRequest {
		r := baseRequest()
		r.PreferredTimes = []string{"09:00"}
		return r
	}())
	if err != nil || !result.Accepted() {
		t.Fatalf("request booking: %v %+v", err, result)
	}
	id := result.BookingID
	if err := svc.Confirm(ctx, id, "emp-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	moved, err := svc.Reschedule(ctx, id, "2026-03-11", "10:00", "emp-1")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Status != StatusRescheduled || moved.SlotDate != "2026-03-11" || moved.SlotStart != "10:00" {
		t.Fatalf("unexpected booking after reschedule: %+v", moved)
	}

	oldSlot, _ := store.GetSlot(ctx, "2026-03-10", "09:00")
	if !oldSlot.Available || oldSlot.BookingID != "" {
		t.Fatalf("old slot not released: %+v", oldSlot)
	}
	newSlot, _ := store.GetSlot(ctx, "2026-03-11", "10:00")
	if newSlot.Available || newSlot.BookingID != id {
		t.Fatalf("new slot not bound: %+v", newSlot)
	}

	// Rescheduled bookings must be re-confirmed before completing.
	if err := svc.Complete(ctx, id, "admin", Outcome{Summary: "x"}); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := svc.Confirm(ctx, id, "emp-1"); err != nil {
		t.Fatalf("re-confirm: %v", err)
	}
}

func TestRescheduleToOccupiedSlotKeepsOriginal(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00"})
	ctx := context.Background()

	first, err := svc.RequestBooking(ctx, "emp-1", func() BookingRequest {
		r := baseRequest()
		r.PreferredTimes = []string{"09:00"}
		return r
	}())
	if err != nil || !first.Accepted() {
		t.Fatalf("first booking: %v %+v", err, first)
	}
	second, err := svc.RequestBooking(ctx, "emp-2", func() BookingRequest {
		r := baseRequest()
		r.EmployeeID = "emp-2"
		r.PreferredDates = []string{"2026-03-11"}
		r.PreferredTimes = []string{"09:00"}
		return r
	}())
	if err != nil || !second.Accepted() {
		t.Fatalf("second booking: %v %+v", err, second)
	}
	if err := svc.Confirm(ctx, second.BookingID, "emp-2"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// emp-2 tries to move onto emp-1's slot.
	_, err = svc.Reschedule(ctx, second.BookingID, "2026-03-10", "09:00", "emp-2")
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected slot conflict, got %v", err)
	}

	kept, _ := store.GetBooking(ctx, second.BookingID)
	if kept.SlotDate != "2026-03-11" || kept.SlotStart != "09:00" {
		t.Fatalf("booking lost its original slot: %+v", kept)
	}
	keptSlot, _ := store.GetSlot(ctx, "2026-03-11", "09:00")
	if keptSlot.BookingID != second.BookingID {
		t.Fatalf("original slot unbound after failed reschedule: %+v", keptSlot)
	}
}

func TestBlockedSlotIsSkipped(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00", "10:00"})
	ctx := context.Background()

	if err := svc.BlockSlot(ctx, "2026-03-10", "09:00", "admin", "maintenance"); err != nil {
		t.Fatalf("block: %v", err)
	}

	result, err := svc.RequestBooking(ctx, "emp-1", func() BookingRequest {
		r := baseRequest()
		r.PreferredTimes = []string{"09:00"}
		return r
	}())
	if err != nil || !result.Accepted() {
		t.Fatalf("request booking: %v %+v", err, result)
	}
	b, _ := store.GetBooking(ctx, result.BookingID)
	if b.SlotStart != "10:00" {
		t.Fatalf("expected fallback to 10:00, got %s", b.SlotStart)
	}

	// A booked slot cannot be blocked.
	if err := svc.BlockSlot(ctx, b.SlotDate, b.SlotStart, "admin", "maintenance"); !errors.Is(err, ErrSlotBooked) {
		t.Fatalf("expected ErrSlotBooked, got %v", err)
	}
}

func TestNoInterviewerMeansNoBooking(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00"})
	ctx := context.Background()

	req := baseRequest()
	req.Category = CategoryExit // iv-1 has no exit specialty
	result, err := svc.RequestBooking(ctx, "emp-1", req)
	if err != nil {
		t.Fatalf("request booking: %v", err)
	}
	if result.Accepted() {
		t.Fatal("expected decline without a qualified interviewer")
	}
	if result.Declined != DeclineNoSlotAvailable {
		t.Fatalf("expected no_slot_available, got %s", result.Declined)
	}

	// The probed slot must remain free.
	slot, _ := store.GetSlot(ctx, "2026-03-10", "09:00")
	if !slot.Available {
		t.Fatalf("slot leaked a reservation: %+v", slot)
	}
}

func TestInterviewerDailyCap(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00", "10:00", "11:00"})
	ctx := context.Background()

	if err := store.UpsertInterviewer(ctx, Interviewer{
		ID:          "iv-1",
		Name:        "Sato Yuki",
		Specialties: []InterviewCategory{CategoryHRGeneral},
		WorkDays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		WorkStart:   "09:00",
		WorkEnd:     "17:00",
		MaxPerDay:   2,
		Active:      true,
	}); err != nil {
		t.Fatalf("upsert interviewer: %v", err)
	}

	for i, want := range []string{"09:00", "10:00"} {
		req := baseRequest()
		req.EmployeeID = "emp-" + string(rune('a'+i))
		req.PreferredTimes = []string{want}
		result, err := svc.RequestBooking(ctx, req.EmployeeID, req)
		if err != nil || !result.Accepted() {
			t.Fatalf("booking %d: %v %+v", i, err, result)
		}
	}

	// Third booking on the same day exceeds MaxPerDay; with no other
	// interviewer the search moves to the next date.
	req := baseRequest()
	req.EmployeeID = "emp-c"
	req.PreferredDates = []string{"2026-03-10", "2026-03-11"}
	req.PreferredTimes = []string{"11:00"}
	result, err := svc.RequestBooking(ctx, req.EmployeeID, req)
	if err != nil || !result.Accepted() {
		t.Fatalf("third booking: %v %+v", err, result)
	}
	b, _ := store.GetBooking(ctx, result.BookingID)
	if b.SlotDate != "2026-03-11" {
		t.Fatalf("expected spillover to 2026-03-11, got %s", b.SlotDate)
	}
}
