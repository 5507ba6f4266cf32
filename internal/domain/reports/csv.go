package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
)

// ComplianceCSV is the spreadsheet form of the compliance report.
func (s *Service) ComplianceCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.ComplianceRows(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{
		"employee_id", "name", "department", "employment_status",
		"next_due_date", "is_overdue", "days_since_overdue", "total_interviews",
	}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.EmployeeID,
			row.Name,
			row.Department,
			row.Status,
			row.NextDueDate,
			strconv.FormatBool(row.IsOverdue),
			strconv.Itoa(row.DaysSinceOverdue),
			strconv.Itoa(row.TotalInterviews),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
