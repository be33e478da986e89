package services

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExportService(t *testing.T, reports *ReportService) *ExportService {
	t.Helper()
	return &ExportService{reports: reports, exportDir: t.TempDir()}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportDaily_Layout(t *testing.T) {
	t.Parallel()

	db := setupReportDB(t)
	svc := newTestReportService(db)
	exporter := newTestExportService(t, svc)
	day := mustDay(t, "2025-03-10")

	member := seedMember(t, db, "1001", "dara")
	seedRecord(t, db, member.ID, day, models.StatusLate)
	seedFine(t, db, member.ID, day, 20)

	path, err := exporter.ExportDaily(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, "attendance_20250310.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date", "Member ID", "Username", "Full Name", "Status", "Timestamp", "Fine Amount"}, rows[0])

	row := rows[1]
	assert.Equal(t, "2025-03-10", row[0])
	assert.Equal(t, "1001", row[1])
	assert.Equal(t, "dara", row[2])
	assert.Equal(t, "late", row[4])
	assert.NotEmpty(t, row[5])
	assert.Equal(t, "20.00", row[6])
}

func TestExportDaily_AbsentHasEmptyTimestamp(t *testing.T) {
	t.Parallel()

	db := setupReportDB(t)
	svc := newTestReportService(db)
	exporter := newTestExportService(t, svc)
	day := mustDay(t, "2025-03-10")

	member := seedMember(t, db, "1001", "dara")
	seedRecord(t, db, member.ID, day, models.StatusAbsent)
	seedFine(t, db, member.ID, day, 20)

	path, err := exporter.ExportDaily(context.Background(), day)
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "absent", rows[1][4])
	assert.Empty(t, rows[1][5])
}

func TestExportMonthly_Layout(t *testing.T) {
	t.Parallel()

	db := setupReportDB(t)
	svc := newTestReportService(db)
	exporter := newTestExportService(t, svc)

	member := seedMember(t, db, "1001", "dara")
	for i := 1; i <= 5; i++ {
		day := attendance.DayOf(time.Date(2025, time.April, i, 12, 0, 0, 0, time.UTC))
		seedRecord(t, db, member.ID, day, models.StatusPresent)
	}

	path, err := exporter.ExportMonthly(context.Background(), 2025, time.April)
	require.NoError(t, err)
	assert.Equal(t, "attendance_2025_04.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Member ID", "Username", "Full Name", "Total Present", "Total Late", "Total Absent", "Total Fines"}, rows[0])
	assert.Equal(t, []string{"1001", "dara", "", "5", "0", "25", "0.00"}, rows[1])
}
