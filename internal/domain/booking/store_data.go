package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Store) EnsureSlots(ctx context.Context, slots []TimeSlot) (int, error) {
	created := 0
	for _, slot := range slots {
		tag, err := s.DB.Exec(ctx, `
      INSERT INTO time_slots (slot_date, start_time, end_time, available)
      VALUES ($1,$2,$3,TRUE)
      ON CONFLICT (slot_date, start_time) DO NOTHING
    `, slot.Date, slot.Start, slot.End)
		if err != nil {
			return created, err
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

func (s *Store) DeleteSlotsBefore(ctx context.Context, date string) (int, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM time_slots WHERE slot_date < $1", date)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

const slotColumns = `slot_date, start_time, end_time, available, blocked, blocked_by, blocked_reason, booked_by, booking_id`

func (s *Store) GetSlot(ctx context.Context, date, start string) (TimeSlot, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+slotColumns+`
    FROM time_slots
    WHERE slot_date = $1 AND start_time = $2
  `, date, start)
	slot, err := scanSlot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TimeSlot{}, fmt.Errorf("slot %s %s: %w", date, start, ErrNotFound)
	}
	return slot, err
}

func (s *Store) ListSlots(ctx context.Context, fromDate, toDate string) ([]TimeSlot, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+slotColumns+`
    FROM time_slots
    WHERE slot_date >= $1 AND slot_date <= $2
    ORDER BY slot_date, start_time
  `, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

func (s *Store) ListAvailableSlots(ctx context.Context, date string) ([]TimeSlot, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+slotColumns+`
    FROM time_slots
    WHERE slot_date = $1 AND available
    ORDER BY start_time
  `, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSlots(rows)
}

func (s *Store) BlockSlot(ctx context.Context, date, start, actor, reason string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE time_slots
    SET blocked = TRUE, blocked_by = $3, blocked_reason = $4, available = FALSE
    WHERE slot_date = $1 AND start_time = $2 AND booking_id IS NULL
  `, date, start, actor, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetSlot(ctx, date, start); err != nil {
			return err
		}
		return ErrSlotBooked
	}
	return nil
}

func (s *Store) UnblockSlot(ctx context.Context, date, start string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE time_slots
    SET blocked = FALSE, blocked_by = '', blocked_reason = '', available = (booking_id IS NULL)
    WHERE slot_date = $1 AND start_time = $2
  `, date, start)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %s %s: %w", date, start, ErrNotFound)
	}
	return nil
}

// CommitBooking reserves the slot with a conditional update (the CAS),
// inserts the booking row and bumps the interviewer counter, all in one
// transaction.
func (s *Store) CommitBooking(ctx context.Context, b InterviewBooking) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE time_slots
    SET available = FALSE, booked_by = $3, booking_id = $4
    WHERE slot_date = $1 AND start_time = $2 AND available AND booking_id IS NULL
  `, b.SlotDate, b.SlotStart, b.EmployeeID, b.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
      SELECT EXISTS(SELECT 1 FROM time_slots WHERE slot_date = $1 AND start_time = $2)
    `, b.SlotDate, b.SlotStart).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("slot %s %s: %w", b.SlotDate, b.SlotStart, ErrNotFound)
		}
		return ErrSlotConflict
	}

	emailEnc, err := s.Crypto.EncryptString(b.Email)
	if err != nil {
		return err
	}
	phoneEnc, err := s.Crypto.EncryptString(b.Phone)
	if err != nil {
		return err
	}
	var outcomeJSON []byte
	if b.Outcome != nil {
		if outcomeJSON, err = json.Marshal(b.Outcome); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
    INSERT INTO bookings (id, employee_id, employee_name, email_enc, phone_enc, department,
      slot_date, slot_start, slot_end, interview_type, category, urgency, description,
      interviewer_id, status, outcome_json, created_at, created_by, last_modified, last_modified_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
  `, b.ID, b.EmployeeID, b.EmployeeName, emailEnc, phoneEnc, b.Department,
		b.SlotDate, b.SlotStart, b.SlotEnd, b.Type, b.Category, b.Urgency, b.Description,
		b.InterviewerID, b.Status, outcomeJSON, b.CreatedAt, b.CreatedBy, b.LastModified, b.LastModifiedBy); err != nil {
		return err
	}

	if b.InterviewerID != "" {
		if _, err := tx.Exec(ctx, `
      UPDATE interviewers SET current_bookings = current_bookings + 1 WHERE id = $1
    `, b.InterviewerID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

const bookingColumns = `id, employee_id, employee_name, email_enc, phone_enc, department,
  slot_date, slot_start, slot_end, interview_type, category, urgency, description,
  interviewer_id, status, outcome_json, created_at, created_by, last_modified, last_modified_by`

func (s *Store) GetBooking(ctx context.Context, id string) (InterviewBooking, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+bookingColumns+`
    FROM bookings
    WHERE id = $1
  `, id)
	b, err := s.scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return InterviewBooking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return b, err
}

func (s *Store) ListBookingsByEmployee(ctx context.Context, employeeID string) ([]InterviewBooking, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+bookingColumns+`
    FROM bookings
    WHERE employee_id = $1
    ORDER BY slot_date DESC, slot_start DESC
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InterviewBooking
	for rows.Next() {
		b, err := s.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CountBookings(ctx context.Context, employeeID string, types []InterviewType, statuses []BookingStatus, from, to time.Time) (int, error) {
	query := `
    SELECT COUNT(1) FROM bookings
    WHERE employee_id = $1 AND slot_date >= $2 AND slot_date < $3
  `
	args := []any{employeeID, from.Format(DateFormat), to.Format(DateFormat)}
	if len(types) > 0 {
		args = append(args, typeStrings(types))
		query += fmt.Sprintf(" AND interview_type = ANY($%d)", len(args))
	}
	if len(statuses) > 0 {
		args = append(args, statusStrings(statuses))
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}

	var count int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) SetBookingStatus(ctx context.Context, id string, status BookingStatus, actor string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE bookings
    SET status = $2, last_modified = now(), last_modified_by = $3
    WHERE id = $1
  `, id, status, actor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) ReleaseBooking(ctx context.Context, id string, status BookingStatus, actor string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var interviewerID string
	err = tx.QueryRow(ctx, `
    SELECT interviewer_id FROM bookings WHERE id = $1 FOR UPDATE
  `, id).Scan(&interviewerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
    UPDATE time_slots
    SET booking_id = NULL, booked_by = '', available = NOT blocked
    WHERE booking_id = $1
  `, id); err != nil {
		return err
	}
	if err := decrementInterviewer(ctx, tx, interviewerID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
    UPDATE bookings SET status = $2, last_modified = now(), last_modified_by = $3 WHERE id = $1
  `, id, status, actor); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) FinishBooking(ctx context.Context, id string, status BookingStatus, actor string, outcome *Outcome) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var interviewerID string
	err = tx.QueryRow(ctx, `
    SELECT interviewer_id FROM bookings WHERE id = $1 FOR UPDATE
  `, id).Scan(&interviewerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if err := decrementInterviewer(ctx, tx, interviewerID); err != nil {
		return err
	}

	var outcomeJSON []byte
	if outcome != nil {
		if outcomeJSON, err = json.Marshal(outcome); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `
    UPDATE bookings
    SET status = $2, outcome_json = $3, last_modified = now(), last_modified_by = $4
    WHERE id = $1
  `, id, status, outcomeJSON, actor); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SwapBookingSlot reserves the new slot before freeing the old one, so a
// crash or rollback never leaves the booking holding neither.
func (s *Store) SwapBookingSlot(ctx context.Context, id, newDate, newStart, newEnd, actor string) (InterviewBooking, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return InterviewBooking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var employeeID string
	err = tx.QueryRow(ctx, `
    SELECT employee_id FROM bookings WHERE id = $1 FOR UPDATE
  `, id).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return InterviewBooking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return InterviewBooking{}, err
	}

	tag, err := tx.Exec(ctx, `
    UPDATE time_slots
    SET available = FALSE, booked_by = $3, booking_id = $4
    WHERE slot_date = $1 AND start_time = $2 AND available AND booking_id IS NULL
  `, newDate, newStart, employeeID, id)
	if err != nil {
		return InterviewBooking{}, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
      SELECT EXISTS(SELECT 1 FROM time_slots WHERE slot_date = $1 AND start_time = $2)
    `, newDate, newStart).Scan(&exists); err != nil {
			return InterviewBooking{}, err
		}
		if !exists {
			return InterviewBooking{}, fmt.Errorf("slot %s %s: %w", newDate, newStart, ErrNotFound)
		}
		return InterviewBooking{}, ErrSlotConflict
	}

	if _, err := tx.Exec(ctx, `
    UPDATE time_slots
    SET booking_id = NULL, booked_by = '', available = NOT blocked
    WHERE booking_id = $1 AND NOT (slot_date = $2 AND start_time = $3)
  `, id, newDate, newStart); err != nil {
		return InterviewBooking{}, err
	}

	if _, err := tx.Exec(ctx, `
    UPDATE bookings
    SET slot_date = $2, slot_start = $3, slot_end = $4, status = $5,
        last_modified = now(), last_modified_by = $6
    WHERE id = $1
  `, id, newDate, newStart, newEnd, StatusRescheduled, actor); err != nil {
		return InterviewBooking{}, err
	}

	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := s.scanBooking(row)
	if err != nil {
		return InterviewBooking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return InterviewBooking{}, err
	}
	return b, nil
}

func (s *Store) UpsertInterviewer(ctx context.Context, iv Interviewer) error {
	days := make([]int32, 0, len(iv.WorkDays))
	for _, wd := range iv.WorkDays {
		days = append(days, int32(wd))
	}
	specialties := make([]string, 0, len(iv.Specialties))
	for _, sp := range iv.Specialties {
		specialties = append(specialties, string(sp))
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO interviewers (id, name, specialties, work_days, work_start, work_end, max_per_day, max_per_week, active)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (id) DO UPDATE SET
      name = EXCLUDED.name, specialties = EXCLUDED.specialties, work_days = EXCLUDED.work_days,
      work_start = EXCLUDED.work_start, work_end = EXCLUDED.work_end,
      max_per_day = EXCLUDED.max_per_day, max_per_week = EXCLUDED.max_per_week, active = EXCLUDED.active
  `, iv.ID, iv.Name, specialties, days, iv.WorkStart, iv.WorkEnd, iv.MaxPerDay, iv.MaxPerWeek, iv.Active)
	return err
}

func (s *Store) ListInterviewers(ctx context.Context) ([]Interviewer, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, specialties, work_days, work_start, work_end, current_bookings, max_per_day, max_per_week, active
    FROM interviewers
    ORDER BY id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Interviewer
	for rows.Next() {
		var iv Interviewer
		var specialties []string
		var days []int32
		if err := rows.Scan(&iv.ID, &iv.Name, &specialties, &days, &iv.WorkStart, &iv.WorkEnd,
			&iv.CurrentBookings, &iv.MaxPerDay, &iv.MaxPerWeek, &iv.Active); err != nil {
			return nil, err
		}
		for _, sp := range specialties {
			iv.Specialties = append(iv.Specialties, InterviewCategory(sp))
		}
		for _, d := range days {
			iv.WorkDays = append(iv.WorkDays, time.Weekday(d))
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (s *Store) CountInterviewerBookings(ctx context.Context, interviewerID, fromDate, toDate string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM bookings
    WHERE interviewer_id = $1 AND slot_date >= $2 AND slot_date <= $3 AND status = ANY($4)
  `, interviewerID, fromDate, toDate, statusStrings(ActiveStatuses)).Scan(&count)
	return count, err
}

func decrementInterviewer(ctx context.Context, tx pgx.Tx, interviewerID string) error {
	if interviewerID == "" {
		return nil
	}
	_, err := tx.Exec(ctx, `
    UPDATE interviewers
    SET current_bookings = GREATEST(current_bookings - 1, 0)
    WHERE id = $1
  `, interviewerID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (TimeSlot, error) {
	var slot TimeSlot
	var date time.Time
	var bookingID *string
	if err := row.Scan(&date, &slot.Start, &slot.End, &slot.Available, &slot.Blocked,
		&slot.BlockedBy, &slot.BlockedReason, &slot.BookedBy, &bookingID); err != nil {
		return TimeSlot{}, err
	}
	slot.Date = date.Format(DateFormat)
	if bookingID != nil {
		slot.BookingID = *bookingID
	}
	return slot, nil
}

func scanSlots(rows pgx.Rows) ([]TimeSlot, error) {
	var out []TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (s *Store) scanBooking(row rowScanner) (InterviewBooking, error) {
	var b InterviewBooking
	var slotDate time.Time
	var emailEnc, phoneEnc, outcomeJSON []byte
	if err := row.Scan(&b.ID, &b.EmployeeID, &b.EmployeeName, &emailEnc, &phoneEnc, &b.Department,
		&slotDate, &b.SlotStart, &b.SlotEnd, &b.Type, &b.Category, &b.Urgency, &b.Description,
		&b.InterviewerID, &b.Status, &outcomeJSON, &b.CreatedAt, &b.CreatedBy, &b.LastModified, &b.LastModifiedBy); err != nil {
		return InterviewBooking{}, err
	}
	b.SlotDate = slotDate.Format(DateFormat)

	var err error
	if b.Email, err = s.Crypto.DecryptString(emailEnc); err != nil {
		return InterviewBooking{}, err
	}
	if b.Phone, err = s.Crypto.DecryptString(phoneEnc); err != nil {
		return InterviewBooking{}, err
	}
	if len(outcomeJSON) > 0 {
		var outcome Outcome
		if err := json.Unmarshal(outcomeJSON, &outcome); err != nil {
			return InterviewBooking{}, err
		}
		b.Outcome = &outcome
	}
	return b, nil
}

func typeStrings(types []InterviewType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func statusStrings(statuses []BookingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, string(st))
	}
	return out
}
