package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const hireDateFormat = "2006-01-02"

func (s *Store) UpsertProfile(ctx context.Context, profile EmployeeProfile) error {
	emailEnc, err := s.Crypto.EncryptString(profile.Email)
	if err != nil {
		return err
	}
	specialJSON, err := json.Marshal(profile.Special)
	if err != nil {
		return err
	}
	// Interview history survives HR-feed updates; the feed owns
	// everything else.
	_, err = s.DB.Exec(ctx, `
    INSERT INTO employee_profiles
      (employee_id, name, email_enc, department, hire_date, employment_status, special_json, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,now())
    ON CONFLICT (employee_id) DO UPDATE SET
      name = EXCLUDED.name, email_enc = EXCLUDED.email_enc, department = EXCLUDED.department,
      hire_date = EXCLUDED.hire_date, employment_status = EXCLUDED.employment_status,
      special_json = EXCLUDED.special_json, updated_at = now()
  `, profile.EmployeeID, profile.Name, emailEnc, profile.Department,
		profile.HireDate.Format(hireDateFormat), profile.Status, specialJSON)
	return err
}

const profileColumns = `employee_id, name, email_enc, department, hire_date, employment_status, special_json,
  first_interview_at, last_interview_at, last_mandatory_at, total_count, mandatory_completed, overdue_count, updated_at`

func (s *Store) GetProfile(ctx context.Context, employeeID string) (EmployeeProfile, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+profileColumns+`
    FROM employee_profiles
    WHERE employee_id = $1
  `, employeeID)
	profile, err := s.scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return EmployeeProfile{}, fmt.Errorf("profile %s: %w", employeeID, ErrProfileNotFound)
	}
	return profile, err
}

func (s *Store) ListProfiles(ctx context.Context) ([]EmployeeProfile, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+profileColumns+`
    FROM employee_profiles
    ORDER BY employee_id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EmployeeProfile
	for rows.Next() {
		profile, err := s.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, profile)
	}
	return out, rows.Err()
}

func (s *Store) SaveHistory(ctx context.Context, employeeID string, history InterviewHistory) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employee_profiles
    SET first_interview_at = $2, last_interview_at = $3, last_mandatory_at = $4,
        total_count = $5, mandatory_completed = $6, overdue_count = $7, updated_at = now()
    WHERE employee_id = $1
  `, employeeID, history.FirstInterviewDate, history.LastInterviewDate, history.LastMandatoryDate,
		history.TotalCount, history.MandatoryCompleted, history.OverdueCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", employeeID, ErrProfileNotFound)
	}
	return nil
}

func (s *Store) UpsertPolicy(ctx context.Context, policy ReminderPolicy) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO reminder_policies
      (employment_status, department, mandatory_type, interval_days, pre_due_offsets, overdue_offsets, max_overdue_reminders)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (employment_status, department) DO UPDATE SET
      mandatory_type = EXCLUDED.mandatory_type, interval_days = EXCLUDED.interval_days,
      pre_due_offsets = EXCLUDED.pre_due_offsets, overdue_offsets = EXCLUDED.overdue_offsets,
      max_overdue_reminders = EXCLUDED.max_overdue_reminders
  `, policy.Status, policy.Department, policy.MandatoryType, policy.IntervalDays,
		toInt32(policy.PreDueOffsets), toInt32(policy.OverdueOffsets), policy.MaxOverdueReminders)
	return err
}

func (s *Store) GetPolicy(ctx context.Context, status EmploymentStatus, department string) (ReminderPolicy, bool, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT employment_status, department, mandatory_type, interval_days, pre_due_offsets, overdue_offsets, max_overdue_reminders
    FROM reminder_policies
    WHERE employment_status = $1 AND department = $2
  `, status, department)
	policy, err := scanPolicy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReminderPolicy{}, false, nil
	}
	if err != nil {
		return ReminderPolicy{}, false, err
	}
	return policy, true, nil
}

func (s *Store) ListPolicies(ctx context.Context) ([]ReminderPolicy, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employment_status, department, mandatory_type, interval_days, pre_due_offsets, overdue_offsets, max_overdue_reminders
    FROM reminder_policies
    ORDER BY employment_status, department
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReminderPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, policy)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanProfile(row rowScanner) (EmployeeProfile, error) {
	var profile EmployeeProfile
	var emailEnc, specialJSON []byte
	var hireDate time.Time
	if err := row.Scan(&profile.EmployeeID, &profile.Name, &emailEnc, &profile.Department,
		&hireDate, &profile.Status, &specialJSON,
		&profile.History.FirstInterviewDate, &profile.History.LastInterviewDate, &profile.History.LastMandatoryDate,
		&profile.History.TotalCount, &profile.History.MandatoryCompleted, &profile.History.OverdueCount,
		&profile.UpdatedAt); err != nil {
		return EmployeeProfile{}, err
	}
	profile.HireDate = hireDate.UTC()

	var err error
	if profile.Email, err = s.Crypto.DecryptString(emailEnc); err != nil {
		return EmployeeProfile{}, err
	}
	if len(specialJSON) > 0 {
		if err := json.Unmarshal(specialJSON, &profile.Special); err != nil {
			return EmployeeProfile{}, err
		}
	}
	return profile, nil
}

func scanPolicy(row rowScanner) (ReminderPolicy, error) {
	var policy ReminderPolicy
	var preDue, overdue []int32
	if err := row.Scan(&policy.Status, &policy.Department, &policy.MandatoryType, &policy.IntervalDays,
		&preDue, &overdue, &policy.MaxOverdueReminders); err != nil {
		return ReminderPolicy{}, err
	}
	policy.PreDueOffsets = fromInt32(preDue)
	policy.OverdueOffsets = fromInt32(overdue)
	return policy, nil
}

func toInt32(values []int) []int32 {
	out := make([]int32, 0, len(values))
	for _, v := range values {
		out = append(out, int32(v))
	}
	return out
}

func fromInt32(values []int32) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		out = append(out, int(v))
	}
	return out
}
