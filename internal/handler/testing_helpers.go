package handler

import (
	"testing"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/models"
	"rollcall/internal/services"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing (pure Go, no CGO)
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Member{},
		&models.AttendanceRecord{},
		&models.Fine{},
		&models.SystemSetting{},
		&models.CheckinLog{},
	)
	require.NoError(t, err)

	return db
}

// setupTestServer creates a test server frozen at the given instant.
func setupTestServer(t *testing.T, now time.Time) *Server {
	t.Helper()

	db := setupTestDB(t)
	settings := config.NewSettingsManager()
	clock := attendance.NewClockAt(func() time.Time { return now })
	window := attendance.NewWindowController(settings, clock)
	policy := attendance.NewFinePolicy(settings)
	ledger := attendance.NewLedger(db, window, policy, clock, nil)
	scheduler := attendance.NewWindowScheduler(window, ledger, settings, clock)
	reports := services.NewReportService(db, policy)

	return &Server{
		DB:              db,
		SettingsManager: settings,
		Clock:           clock,
		Window:          window,
		Ledger:          ledger,
		Policy:          policy,
		Scheduler:       scheduler,
		ReportService:   reports,
	}
}
