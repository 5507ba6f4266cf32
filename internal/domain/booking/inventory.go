package booking

import (
	"context"
	"fmt"
	"time"
)

// InventoryConfig describes the daily slot template and the rolling
// horizon it is expanded over.
type InventoryConfig struct {
	HorizonDays  int
	SlotStarts   []string
	SlotMinutes  int
	WorkingDays  []time.Weekday
	MinLeadHours int
}

func DefaultInventoryConfig() InventoryConfig {
	return InventoryConfig{
		HorizonDays:  DefaultHorizonDays,
		SlotStarts:   DefaultSlotStarts,
		SlotMinutes:  DefaultSlotMinutes,
		WorkingDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		MinLeadHours: DefaultMinLeadHours,
	}
}

func (c InventoryConfig) worksOn(day time.Weekday) bool {
	for _, wd := range c.WorkingDays {
		if wd == day {
			return true
		}
	}
	return false
}

// expandTemplate builds the slot set for every working day in
// [from, from+horizon). Existing slots are left untouched by EnsureSlots,
// so expansion is safe to re-run.
func (c InventoryConfig) expandTemplate(from time.Time) ([]TimeSlot, error) {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)

	var slots []TimeSlot
	for i := 0; i < c.HorizonDays; i++ {
		current := day.AddDate(0, 0, i)
		if !c.worksOn(current.Weekday()) {
			continue
		}
		date := current.Format(DateFormat)
		for _, start := range c.SlotStarts {
			end, err := addMinutes(start, c.SlotMinutes)
			if err != nil {
				return nil, fmt.Errorf("slot template: %w", err)
			}
			slots = append(slots, TimeSlot{
				Date:      date,
				Start:     start,
				End:       end,
				Available: true,
			})
		}
	}
	return slots, nil
}

// RollHorizon regenerates the inventory window: slots for new days at the
// far edge are created and slots for days already in the past are
// dropped. Booked slots inside the horizon are never touched.
func (s *Service) RollHorizon(ctx context.Context) (created, removed int, err error) {
	now := s.Now()
	slots, err := s.inventory.expandTemplate(now)
	if err != nil {
		return 0, 0, err
	}
	created, err = s.store.EnsureSlots(ctx, slots)
	if err != nil {
		return 0, 0, err
	}
	removed, err = s.store.DeleteSlotsBefore(ctx, now.UTC().Format(DateFormat))
	if err != nil {
		return created, 0, err
	}
	return created, removed, nil
}

func addMinutes(hhmm string, minutes int) (string, error) {
	parsed, err := time.Parse(TimeFormat, hhmm)
	if err != nil {
		return "", err
	}
	return parsed.Add(time.Duration(minutes) * time.Minute).Format(TimeFormat), nil
}

// slotInstant resolves a slot's date and start time to a UTC instant.
func slotInstant(date, start string) (time.Time, error) {
	return time.Parse(DateFormat+" "+TimeFormat, date+" "+start)
}
