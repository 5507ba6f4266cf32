package booking

import (
	"context"
	"testing"
	"time"
)

func TestExpandTemplateSkipsNonWorkingDays(t *testing.T) {
	cfg := InventoryConfig{
		HorizonDays:  7,
		SlotStarts:   []string{"09:00", "10:00"},
		SlotMinutes:  30,
		WorkingDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MinLeadHours: 24,
	}

	slots, err := cfg.expandTemplate(fixedNow)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	// Mon 2026-03-02 through Sun 2026-03-08: five working days.
	if len(slots) != 5*2 {
		t.Fatalf("expected 10 slots, got %d", len(slots))
	}
	for _, slot := range slots {
		if slot.Date == "2026-03-07" || slot.Date == "2026-03-08" {
			t.Fatalf("weekend slot generated: %s", slot.Date)
		}
		if !slot.Available {
			t.Fatalf("new slot not available: %+v", slot)
		}
	}
	if slots[0].Date != "2026-03-02" || slots[0].Start != "09:00" || slots[0].End != "09:30" {
		t.Fatalf("unexpected first slot: %+v", slots[0])
	}
}

func TestRollHorizonAdvancesWindow(t *testing.T) {
	svc, store := newTestService(t, allowAll(), []string{"09:00"})
	ctx := context.Background()

	// The fixture already rolled once; rolling again at the same clock is
	// a no-op.
	created, removed, err := svc.RollHorizon(ctx)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if created != 0 || removed != 0 {
		t.Fatalf("expected idempotent roll, got created=%d removed=%d", created, removed)
	}

	// A week later the far edge grows and the stale week is dropped.
	svc.Now = func() time.Time { return fixedNow.AddDate(0, 0, 7) }
	created, removed, err = svc.RollHorizon(ctx)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if created != 5 || removed != 5 {
		t.Fatalf("expected 5 created and 5 removed, got created=%d removed=%d", created, removed)
	}

	slots, err := store.ListSlots(ctx, "2026-01-01", "2026-12-31")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, slot := range slots {
		if slot.Date < "2026-03-09" {
			t.Fatalf("stale slot survived the roll: %s", slot.Date)
		}
	}
}

func TestRollHorizonKeepsBookedSlots(t *testing.T) {
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

	if _, _, err := svc.RollHorizon(ctx); err != nil {
		t.Fatalf("roll: %v", err)
	}
	slot, err := store.GetSlot(ctx, "2026-03-10", "09:00")
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Available || slot.BookingID != result.BookingID {
		t.Fatalf("roll disturbed a booked slot: %+v", slot)
	}
}

func TestAddMinutes(t *testing.T) {
	cases := []struct {
		start   string
		minutes int
		want    string
	}{
		{"09:00", 30, "09:30"},
		{"13:40", 30, "14:10"},
		{"23:45", 30, "00:15"},
	}
	for _, tc := range cases {
		got, err := addMinutes(tc.start, tc.minutes)
		if err != nil {
			t.Fatalf("addMinutes(%s): %v", tc.start, err)
		}
		if got != tc.want {
			t.Fatalf("addMinutes(%s, %d) = %s, want %s", tc.start, tc.minutes, got, tc.want)
		}
	}
}
