package booking

import (
	"context"
	"sort"
	"time"
)

// findSlot walks preferred dates in caller order. Within a date it tries
// each preferred time for an exact start match, then falls back to the
// date's earliest available slot. First date yielding a slot wins; the
// skip set lets the commit loop fall through past slots it already lost
// a race for.
func (s *Service) findSlot(ctx context.Context, req BookingRequest, skip map[string]bool) (*TimeSlot, error) {
	now := s.Now()
	for _, date := range req.PreferredDates {
		if !s.dateBookable(date, now) {
			continue
		}
		available, err := s.store.ListAvailableSlots(ctx, date)
		if err != nil {
			return nil, err
		}
		if len(available) == 0 {
			continue
		}

		for _, preferred := range req.PreferredTimes {
			for i := range available {
				slot := available[i]
				if slot.Start != preferred || skip[slotKey(slot.Date, slot.Start)] {
					continue
				}
				if s.slotBookable(slot, now) {
					return &slot, nil
				}
			}
		}

		// No exact time match: earliest available slot on this date.
		for i := range available {
			slot := available[i]
			if skip[slotKey(slot.Date, slot.Start)] || !s.slotBookable(slot, now) {
				continue
			}
			return &slot, nil
		}
	}
	return nil, nil
}

// dateBookable enforces the advance-booking horizon and the minimum lead
// time.
func (s *Service) dateBookable(date string, now time.Time) bool {
	day, err := time.Parse(DateFormat, date)
	if err != nil {
		return false
	}
	// The whole day must clear the lead time: compare against the last
	// slot start of the day template.
	latest := s.inventory.SlotStarts[len(s.inventory.SlotStarts)-1]
	instant, err := slotInstant(date, latest)
	if err != nil {
		return false
	}
	if instant.Before(now.Add(time.Duration(s.inventory.MinLeadHours) * time.Hour)) {
		return false
	}
	horizon := now.AddDate(0, 0, s.inventory.HorizonDays)
	return day.Before(horizon)
}

func (s *Service) slotBookable(slot TimeSlot, now time.Time) bool {
	instant, err := slotInstant(slot.Date, slot.Start)
	if err != nil {
		return false
	}
	return !instant.Before(now.Add(time.Duration(s.inventory.MinLeadHours) * time.Hour))
}

// suggestAlternatives scans up to AlternativeScanDays either side of each
// preferred date and returns at most MaxAlternatives free slots, earliest
// first.
func (s *Service) suggestAlternatives(ctx context.Context, req BookingRequest) []SlotRef {
	now := s.Now()
	seen := make(map[string]bool)
	var out []SlotRef

	for _, date := range req.PreferredDates {
		day, err := time.Parse(DateFormat, date)
		if err != nil {
			continue
		}
		for offset := -AlternativeScanDays; offset <= AlternativeScanDays; offset++ {
			candidate := day.AddDate(0, 0, offset).Format(DateFormat)
			if seen["d:"+candidate] {
				continue
			}
			seen["d:"+candidate] = true
			if !s.dateBookable(candidate, now) {
				continue
			}
			available, err := s.store.ListAvailableSlots(ctx, candidate)
			if err != nil {
				continue
			}
			for _, slot := range available {
				if !s.slotBookable(slot, now) {
					continue
				}
				key := slotKey(slot.Date, slot.Start)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, SlotRef{Date: slot.Date, Start: slot.Start, End: slot.End})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].Start < out[j].Start
		}
		return out[i].Date < out[j].Date
	})
	if len(out) > MaxAlternatives {
		out = out[:MaxAlternatives]
	}
	return out
}

// pickInterviewer selects among active interviewers with the requested
// specialty whose working window covers the slot: lowest current load
// wins, ties broken by lowest id for determinism.
func (s *Service) pickInterviewer(ctx context.Context, slot TimeSlot, category InterviewCategory) (string, error) {
	interviewers, err := s.store.ListInterviewers(ctx)
	if err != nil {
		return "", err
	}

	day, err := time.Parse(DateFormat, slot.Date)
	if err != nil {
		return "", err
	}
	weekday := day.Weekday()

	var best *Interviewer
	for i := range interviewers {
		iv := interviewers[i]
		if !iv.Active || !ivHasSpecialty(iv, category) || !ivWorksOn(iv, weekday) {
			continue
		}
		if iv.WorkStart > slot.Start || iv.WorkEnd < slot.End {
			continue
		}
		if exceeded, err := s.interviewerCapped(ctx, iv, slot.Date); err != nil {
			return "", err
		} else if exceeded {
			continue
		}
		if best == nil || iv.CurrentBookings < best.CurrentBookings ||
			(iv.CurrentBookings == best.CurrentBookings && iv.ID < best.ID) {
			copied := iv
			best = &copied
		}
	}
	if best == nil {
		return "", nil
	}
	return best.ID, nil
}

func (s *Service) interviewerCapped(ctx context.Context, iv Interviewer, date string) (bool, error) {
	if iv.MaxPerDay > 0 {
		count, err := s.store.CountInterviewerBookings(ctx, iv.ID, date, date)
		if err != nil {
			return false, err
		}
		if count >= iv.MaxPerDay {
			return true, nil
		}
	}
	if iv.MaxPerWeek > 0 {
		day, err := time.Parse(DateFormat, date)
		if err != nil {
			return false, err
		}
		// Week runs Monday to Sunday.
		offset := (int(day.Weekday()) + 6) % 7
		weekStart := day.AddDate(0, 0, -offset)
		weekEnd := weekStart.AddDate(0, 0, 6)
		count, err := s.store.CountInterviewerBookings(ctx, iv.ID, weekStart.Format(DateFormat), weekEnd.Format(DateFormat))
		if err != nil {
			return false, err
		}
		if count >= iv.MaxPerWeek {
			return true, nil
		}
	}
	return false, nil
}

func ivHasSpecialty(iv Interviewer, category InterviewCategory) bool {
	for _, sp := range iv.Specialties {
		if sp == category {
			return true
		}
	}
	return false
}

func ivWorksOn(iv Interviewer, day time.Weekday) bool {
	for _, wd := range iv.WorkDays {
		if wd == day {
			return true
		}
	}
	return false
}
