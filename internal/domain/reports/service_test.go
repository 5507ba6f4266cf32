package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"ibooking/internal/domain/booking"
	"ibooking/internal/domain/reminder"
)

var reportNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type allowPolicy struct{}

func (allowPolicy) CheckQuota(ctx context.Context, employeeID, interviewType string) (booking.QuotaDecision, error) {
	return booking.QuotaDecision{Allowed: true}, nil
}

func (allowPolicy) OnInterviewCompleted(ctx context.Context, employeeID, interviewType string, completedAt time.Time) error {
	return nil
}

type zeroCounter struct{}

func (zeroCounter) CountBookings(ctx context.Context, employeeID string, types []string, from, to time.Time) (int, error) {
	return 0, nil
}

func (zeroCounter) CountActiveBookings(ctx context.Context, employeeID string, types []string, from time.Time) (int, error) {
	return 0, nil
}

func newReportService(t *testing.T) (*Service, *reminder.Service) {
	t.Helper()
	ctx := context.Background()

	reminderSvc := reminder.NewService(reminder.NewMemoryStore(), zeroCounter{})
	reminderSvc.Now = func() time.Time { return reportNow }
	for _, policy := range reminder.DefaultPolicies() {
		if err := reminderSvc.RegisterPolicy(ctx, policy); err != nil {
			t.Fatalf("register policy: %v", err)
		}
	}

	bookingSvc := booking.NewService(booking.NewMemoryStore(), allowPolicy{}, booking.DefaultInventoryConfig())
	bookingSvc.Now = func() time.Time { return reportNow }

	svc := NewService(bookingSvc, reminderSvc)
	svc.Now = func() time.Time { return reportNow }
	return svc, reminderSvc
}

func TestComplianceRows(t *testing.T) {
	svc, reminders := newReportService(t)
	ctx := context.Background()

	if err := reminders.UpsertProfile(ctx, reminder.EmployeeProfile{
		EmployeeID: "emp-ok",
		Name:       "Suzuki Akira",
		Department: "engineering",
		Status:     reminder.StatusRegularEmployee,
		HireDate:   reportNow.AddDate(0, 0, -100),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := reminders.UpsertProfile(ctx, reminder.EmployeeProfile{
		EmployeeID: "emp-late",
		Name:       "Mori Hana",
		Department: "sales",
		Status:     reminder.StatusRegularEmployee,
		HireDate:   reportNow.AddDate(0, 0, -400),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rows, err := svc.ComplianceRows(ctx)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	byID := map[string]ComplianceRow{}
	for _, row := range rows {
		byID[row.EmployeeID] = row
	}
	if byID["emp-ok"].IsOverdue {
		t.Fatalf("emp-ok flagged overdue: %+v", byID["emp-ok"])
	}
	late := byID["emp-late"]
	if !late.IsOverdue || late.DaysSinceOverdue != 35 {
		t.Fatalf("emp-late standing wrong: %+v", late)
	}
	if late.NextDueDate == "" {
		t.Fatal("overdue row must still carry its due date")
	}
}

func TestComplianceCSV(t *testing.T) {
	svc, reminders := newReportService(t)
	ctx := context.Background()

	if err := reminders.UpsertProfile(ctx, reminder.EmployeeProfile{
		EmployeeID: "emp-1",
		Name:       "Suzuki Akira",
		Department: "engineering",
		Status:     reminder.StatusRegularEmployee,
		HireDate:   reportNow.AddDate(0, 0, -400),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	raw, err := svc.ComplianceCSV(ctx)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "employee_id,name,department") {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "emp-1") || !strings.Contains(lines[1], "true") {
		t.Fatalf("unexpected row: %s", lines[1])
	}
}

func TestPDFOutputs(t *testing.T) {
	svc, reminders := newReportService(t)
	ctx := context.Background()

	if err := reminders.UpsertProfile(ctx, reminder.EmployeeProfile{
		EmployeeID: "emp-1",
		Name:       "Suzuki Akira",
		Status:     reminder.StatusRegularEmployee,
		HireDate:   reportNow.AddDate(-1, 0, 0),
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	history, err := svc.BookingHistoryPDF(ctx, "emp-1")
	if err != nil {
		t.Fatalf("history pdf: %v", err)
	}
	if !bytes.HasPrefix(history, []byte("%PDF")) {
		t.Fatalf("history output is not a PDF: %q", history[:8])
	}

	compliance, err := svc.CompliancePDF(ctx)
	if err != nil {
		t.Fatalf("compliance pdf: %v", err)
	}
	if !bytes.HasPrefix(compliance, []byte("%PDF")) {
		t.Fatalf("compliance output is not a PDF: %q", compliance[:8])
	}
}
