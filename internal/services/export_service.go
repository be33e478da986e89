package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/types"

	"github.com/sirupsen/logrus"
)

// ExportService writes daily and monthly attendance summaries as CSV files
// under the configured export directory.
type ExportService struct {
	reports   *ReportService
	exportDir string
}

func NewExportService(reports *ReportService, configManager types.ConfigManager) *ExportService {
	return &ExportService{
		reports:   reports,
		exportDir: configManager.GetExportDir(),
	}
}

// ExportDaily writes one row per active member for the given day and returns
// the file path. Column layout:
// Date, Member ID, Username, Full Name, Status, Timestamp, Fine Amount.
func (s *ExportService) ExportDaily(ctx context.Context, day time.Time) (string, error) {
	report, err := s.reports.BuildDailyReport(ctx, day)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("attendance_%s.csv", attendance.DayOf(day).Format("20060102"))
	path := filepath.Join(s.exportDir, filename)

	rows := [][]string{
		{"Date", "Member ID", "Username", "Full Name", "Status", "Timestamp", "Fine Amount"},
	}
	for _, group := range [][]ReportMemberEntry{report.Present, report.Late, report.Absent} {
		for _, entry := range group {
			timestamp := ""
			if entry.CheckedInAt != nil {
				timestamp = entry.CheckedInAt.Format(time.RFC3339)
			}
			rows = append(rows, []string{
				report.Day,
				entry.ExternalID,
				entry.Username,
				entry.FullName,
				entry.Status,
				timestamp,
				formatAmount(entry.FineAmount),
			})
		}
	}

	if err := s.writeCSV(path, rows); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{"path": path, "rows": len(rows) - 1}).Info("Daily attendance export written")
	return path, nil
}

// ExportMonthly writes one row per active member for the given calendar month
// and returns the file path. Column layout:
// Member ID, Username, Full Name, Total Present, Total Late, Total Absent,
// Total Fines.
func (s *ExportService) ExportMonthly(ctx context.Context, year int, month time.Month) (string, error) {
	report, err := s.reports.BuildMonthlyReport(ctx, year, month)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("attendance_%d_%02d.csv", year, int(month))
	path := filepath.Join(s.exportDir, filename)

	rows := [][]string{
		{"Member ID", "Username", "Full Name", "Total Present", "Total Late", "Total Absent", "Total Fines"},
	}
	for _, m := range report.Members {
		rows = append(rows, []string{
			m.ExternalID,
			m.Username,
			m.FullName,
			strconv.Itoa(m.TotalPresent),
			strconv.Itoa(m.TotalLate),
			strconv.Itoa(m.TotalAbsent),
			formatAmount(m.TotalFines),
		})
	}

	if err := s.writeCSV(path, rows); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{"path": path, "rows": len(rows) - 1}).Info("Monthly attendance export written")
	return path, nil
}

func (s *ExportService) writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return f.Close()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
