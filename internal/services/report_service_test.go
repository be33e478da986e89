package services

import (
	"context"
	"testing"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupReportDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Member{},
		&models.AttendanceRecord{},
		&models.Fine{},
	))
	return db
}

func newTestReportService(db *gorm.DB) *ReportService {
	policy := attendance.NewFinePolicy(config.NewSettingsManager())
	return NewReportService(db, policy)
}

func mustDay(t *testing.T, value string) time.Time {
	t.Helper()
	day, err := attendance.ParseDay(value)
	require.NoError(t, err)
	return day
}

func seedMember(t *testing.T, db *gorm.DB, externalID, username string) models.Member {
	t.Helper()
	member := models.Member{ExternalID: externalID, Username: username, IsActive: true}
	require.NoError(t, db.Create(&member).Error)
	return member
}

func seedRecord(t *testing.T, db *gorm.DB, memberID uint, day time.Time, status string) {
	t.Helper()
	record := models.AttendanceRecord{MemberID: memberID, Day: datatypes.Date(day), Status: status}
	if status != models.StatusAbsent {
		at := day.Add(9*time.Hour + 30*time.Minute)
		record.CheckedInAt = &at
	}
	require.NoError(t, db.Create(&record).Error)
}

func seedFine(t *testing.T, db *gorm.DB, memberID uint, day time.Time, amount float64) {
	t.Helper()
	require.NoError(t, db.Create(&models.Fine{MemberID: memberID, Day: datatypes.Date(day), Amount: amount}).Error)
}

func TestBuildDailyReport_Partitions(t *testing.T) {
	t.Parallel()

	db := setupReportDB(t)
	svc := newTestReportService(db)
	day := mustDay(t, "2025-03-10")

	present := seedMember(t, db, "1001", "dara")
	late := seedMember(t, db, "1002", "bora")
	absent := seedMember(t, db, "1003", "sokha")
	unrecorded := seedMember(t, db, "1004", "vanna")
	inactive := seedMember(t, db, "1005", "gone")
	require.NoError(t, db.Model(&inactive).Update("is_active", false).Error)

	seedRecord(t, db, present.ID, day, models.StatusPresent)
	seedRecord(t, db, late.ID, day, models.StatusLate)
	seedFine(t, db, late.ID, day, 20)
	seedRecord(t, db, absent.ID, day, models.StatusAbsent)
	seedFine(t, db, absent.ID, day, 20)
	_ = unrecorded

	report, err := svc.BuildDailyReport(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-10", report.Day)
	require.Len(t, report.Present, 1)
	require.Len(t, report.Late, 1)
	// The unrecorded member is reported absent alongside the swept one
	require.Len(t, report.Absent, 2)
	assert.Equal(t, "dara", report.Present[0].Username)
	assert.Equal(t, 20.0, report.Late[0].FineAmount)

	// Inactive members never appear
	for _, entry := range append(append(report.Present, report.Late...), report.Absent...) {
		assert.NotEqual(t, "gone", entry.Username)
	}

	// Recorded fines plus the estimate for the unrecorded member
	assert.Equal(t, 60.0, report.TotalFines)
}

func TestBuildDailyReport_LifetimeFines(t *testing.T) {
	t.Parallel()

	db := setupReportDB(t)
	svc := newTestReportService(db)
	member := seedMember(t, db, "1001", "dara")

	earlier := mustDay(t, "2025-03-08")
	day := mustDay(t, "2025-03-10")
	later := mustDay(t, "2025-03-12")

	seedFine(t, db, member.ID, earlier, 20)
	seedFine(t, db, member.ID, day, 20)
	// The running total covers every fine row, even ones dated after the
	// reported day.
	seedFine(t, db, member.ID, later, 20)
	seedRecord(t, db, member.ID, day, models.StatusLate)

	report, err := svc.BuildDailyReport(context.Background(), day)
	require.NoError(t, err)

	require.Len(t, report.Late, 1)
	assert.Equal(t, 60.0, report.Late[0].TotalFines)
}

func TestBuildMonthlyReport_Arithmetic(t *testing.T) {
	t.Parallel()

	db := setupReportDB(t)
	svc := newTestReportService(db)
	member := seedMember(t, db, "1001", "dara")

	// 10 present days in April 2025 (30 days)
	for i := 1; i <= 10; i++ {
		day := time.Date(2025, time.April, i, 0, 0, 0, 0, time.UTC)
		seedRecord(t, db, member.ID, attendance.DayOf(day), models.StatusPresent)
	}
	// 2 late days
	for i := 11; i <= 12; i++ {
		day := time.Date(2025, time.April, i, 0, 0, 0, 0, time.UTC)
		seedRecord(t, db, member.ID, attendance.DayOf(day), models.StatusLate)
		seedFine(t, db, member.ID, attendance.DayOf(day), 20)
	}

	report, err := svc.BuildMonthlyReport(context.Background(), 2025, time.April)
	require.NoError(t, err)

	assert.Equal(t, 30, report.Days)
	require.Len(t, report.Members, 1)
	summary := report.Members[0]
	assert.Equal(t, 10, summary.TotalPresent)
	assert.Equal(t, 2, summary.TotalLate)
	// Late days are not-present at the monthly grain, so they count as absent
	assert.Equal(t, 20, summary.TotalAbsent)
	assert.Equal(t, 40.0, summary.TotalFines)
}

func TestBuildMonthlyReport_ExcludesOtherMonths(t *testing.T) {
	t.Parallel()

	db := setupReportDB(t)
	svc := newTestReportService(db)
	member := seedMember(t, db, "1001", "dara")

	seedRecord(t, db, member.ID, mustDay(t, "2025-03-31"), models.StatusPresent)
	seedRecord(t, db, member.ID, mustDay(t, "2025-04-01"), models.StatusPresent)
	seedFine(t, db, member.ID, mustDay(t, "2025-03-31"), 20)

	report, err := svc.BuildMonthlyReport(context.Background(), 2025, time.April)
	require.NoError(t, err)

	require.Len(t, report.Members, 1)
	assert.Equal(t, 1, report.Members[0].TotalPresent)
	assert.Equal(t, 0.0, report.Members[0].TotalFines)
}
