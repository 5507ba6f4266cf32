package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"ibooking/internal/domain/booking"
	"ibooking/internal/domain/reminder"
)

type Service struct {
	Bookings  *booking.Service
	Reminders *reminder.Service

	// Now is injectable for tests.
	Now func() time.Time
}

func NewService(bookings *booking.Service, reminders *reminder.Service) *Service {
	return &Service{
		Bookings:  bookings,
		Reminders: reminders,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// BookingHistoryPDF renders one employee's interview history.
func (s *Service) BookingHistoryPDF(ctx context.Context, employeeID string) ([]byte, error) {
	history, err := s.Bookings.History(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Interview History")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employeeID))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", s.Now().Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(28, 8, "Date", "1", 0, "", false, 0, "")
	pdf.CellFormat(20, 8, "Time", "1", 0, "", false, 0, "")
	pdf.CellFormat(48, 8, "Type", "1", 0, "", false, 0, "")
	pdf.CellFormat(36, 8, "Category", "1", 0, "", false, 0, "")
	pdf.CellFormat(28, 8, "Status", "1", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, b := range history {
		pdf.CellFormat(28, 8, b.SlotDate, "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 8, b.SlotStart, "1", 0, "", false, 0, "")
		pdf.CellFormat(48, 8, string(b.Type), "1", 0, "", false, 0, "")
		pdf.CellFormat(36, 8, string(b.Category), "1", 0, "", false, 0, "")
		pdf.CellFormat(28, 8, string(b.Status), "1", 1, "", false, 0, "")
	}
	if len(history) == 0 {
		pdf.Cell(0, 8, "No interviews on record.")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ComplianceRow is one employee's cadence standing.
type ComplianceRow struct {
	EmployeeID       string `json:"employeeId"`
	Name             string `json:"name"`
	Department       string `json:"department"`
	Status           string `json:"employmentStatus"`
	NextDueDate      string `json:"nextDueDate"`
	IsOverdue        bool   `json:"isOverdue"`
	DaysSinceOverdue int    `json:"daysSinceOverdue"`
	TotalInterviews  int    `json:"totalInterviews"`
}

// ComplianceRows walks every profile and reports where each employee
// stands against their mandatory cadence.
func (s *Service) ComplianceRows(ctx context.Context) ([]ComplianceRow, error) {
	profiles, err := s.Reminders.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]ComplianceRow, 0, len(profiles))
	for _, profile := range profiles {
		schedule, err := s.Reminders.Status(ctx, profile.EmployeeID)
		if err != nil {
			return nil, err
		}
		row := ComplianceRow{
			EmployeeID:       profile.EmployeeID,
			Name:             profile.Name,
			Department:       profile.Department,
			Status:           string(profile.Status),
			IsOverdue:        schedule.IsOverdue,
			DaysSinceOverdue: schedule.DaysSinceOverdue,
			TotalInterviews:  profile.History.TotalCount,
		}
		if schedule.NextDueDate != nil {
			row.NextDueDate = schedule.NextDueDate.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CompliancePDF renders the cadence standing of the whole workforce.
func (s *Service) CompliancePDF(ctx context.Context) ([]byte, error) {
	rows, err := s.ComplianceRows(ctx)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(60, 10, "Interview Compliance Report")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", s.Now().Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(30, 8, "Employee", "1", 0, "", false, 0, "")
	pdf.CellFormat(50, 8, "Name", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 8, "Department", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 8, "Status", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 8, "Next due", "1", 0, "", false, 0, "")
	pdf.CellFormat(25, 8, "Overdue", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 8, "Days over", "1", 1, "", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		overdue := "no"
		if row.IsOverdue {
			overdue = "yes"
		}
		pdf.CellFormat(30, 8, row.EmployeeID, "1", 0, "", false, 0, "")
		pdf.CellFormat(50, 8, row.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 8, row.Department, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 8, row.Status, "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 8, row.NextDueDate, "1", 0, "", false, 0, "")
		pdf.CellFormat(25, 8, overdue, "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", row.DaysSinceOverdue), "1", 1, "", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
