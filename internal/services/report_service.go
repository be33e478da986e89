package services

import (
	"context"
	"fmt"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportMemberEntry is one member's line in a daily report.
type ReportMemberEntry struct {
	MemberID    uint       `json:"member_id"`
	ExternalID  string     `json:"external_id"`
	Username    string     `json:"username"`
	FullName    string     `json:"full_name"`
	Status      string     `json:"status"`
	CheckedInAt *time.Time `json:"checked_in_at,omitempty"`
	FineAmount  float64    `json:"fine_amount"`
	// TotalFines is the member's lifetime fine total up to and including
	// this day.
	TotalFines float64 `json:"total_fines"`
}

// DailyReport summarizes one day's attendance partitions.
type DailyReport struct {
	Day        string              `json:"day"`
	Present    []ReportMemberEntry `json:"present"`
	Late       []ReportMemberEntry `json:"late"`
	Absent     []ReportMemberEntry `json:"absent"`
	TotalFines float64             `json:"total_fines"`
}

// MonthlyMemberSummary is one member's line in a monthly report.
type MonthlyMemberSummary struct {
	MemberID     uint    `json:"member_id"`
	ExternalID   string  `json:"external_id"`
	Username     string  `json:"username"`
	FullName     string  `json:"full_name"`
	TotalPresent int     `json:"total_present"`
	TotalLate    int     `json:"total_late"`
	TotalAbsent  int     `json:"total_absent"`
	TotalFines   float64 `json:"total_fines"`
}

// MonthlyReport aggregates a calendar month per member.
type MonthlyReport struct {
	Year    int                    `json:"year"`
	Month   int                    `json:"month"`
	Days    int                    `json:"days"`
	Members []MonthlyMemberSummary `json:"members"`
}

// ReportService builds the daily and monthly attendance summaries from the
// recorded ledger rows.
type ReportService struct {
	db     *gorm.DB
	policy *attendance.FinePolicy
}

func NewReportService(db *gorm.DB, policy *attendance.FinePolicy) *ReportService {
	return &ReportService{db: db, policy: policy}
}

// BuildDailyReport partitions all active members into present, late and
// absent for the given day. Members with no record yet (the window is still
// open, or the sweep has not run) are reported absent with the current policy
// amount as the fine estimate.
func (s *ReportService) BuildDailyReport(ctx context.Context, day time.Time) (*DailyReport, error) {
	day = attendance.DayOf(day)

	var members []models.Member
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	var records []models.AttendanceRecord
	if err := s.db.WithContext(ctx).Where("day = ?", datatypes.Date(day)).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load records for %s: %w", attendance.FormatDay(day), err)
	}
	recordByMember := make(map[uint]models.AttendanceRecord, len(records))
	for _, r := range records {
		recordByMember[r.MemberID] = r
	}

	var fines []models.Fine
	if err := s.db.WithContext(ctx).Where("day = ?", datatypes.Date(day)).Find(&fines).Error; err != nil {
		return nil, fmt.Errorf("failed to load fines for %s: %w", attendance.FormatDay(day), err)
	}
	fineByMember := make(map[uint]float64, len(fines))
	for _, f := range fines {
		fineByMember[f.MemberID] += f.Amount
	}

	lifetime, err := s.lifetimeFines(ctx)
	if err != nil {
		return nil, err
	}

	estimate := s.policy.CurrentAmount()
	report := &DailyReport{Day: attendance.FormatDay(day)}
	for _, member := range members {
		entry := ReportMemberEntry{
			MemberID:   member.ID,
			ExternalID: member.ExternalID,
			Username:   member.Username,
			FullName:   member.FullName,
			TotalFines: lifetime[member.ID],
		}
		record, recorded := recordByMember[member.ID]
		if !recorded {
			// No row yet means an unswept day. Report as absent with the
			// would-be fine so the summary is usable mid-day.
			entry.Status = models.StatusAbsent
			entry.FineAmount = estimate
			report.Absent = append(report.Absent, entry)
			report.TotalFines += entry.FineAmount
			continue
		}

		entry.Status = record.Status
		entry.CheckedInAt = record.CheckedInAt
		entry.FineAmount = fineByMember[member.ID]
		report.TotalFines += entry.FineAmount
		switch record.Status {
		case models.StatusPresent:
			report.Present = append(report.Present, entry)
		case models.StatusLate:
			report.Late = append(report.Late, entry)
		default:
			report.Absent = append(report.Absent, entry)
		}
	}

	logrus.WithFields(logrus.Fields{
		"day":     report.Day,
		"present": len(report.Present),
		"late":    len(report.Late),
		"absent":  len(report.Absent),
	}).Debug("Daily report built")
	return report, nil
}

// BuildMonthlyReport aggregates per member over a calendar month. Absent days
// count every day of the month without a present or late record, so members
// who joined mid-month carry absences for the days before they appeared.
func (s *ReportService) BuildMonthlyReport(ctx context.Context, year int, month time.Month) (*MonthlyReport, error) {
	first, last, days := attendance.MonthBounds(year, month)

	var members []models.Member
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	var records []models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("day BETWEEN ? AND ?", datatypes.Date(first), datatypes.Date(last)).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load records for %d-%02d: %w", year, month, err)
	}

	presentDays := make(map[uint]int)
	lateDays := make(map[uint]int)
	for _, r := range records {
		switch r.Status {
		case models.StatusPresent:
			presentDays[r.MemberID]++
		case models.StatusLate:
			lateDays[r.MemberID]++
		}
	}

	var fines []models.Fine
	err = s.db.WithContext(ctx).
		Where("day BETWEEN ? AND ?", datatypes.Date(first), datatypes.Date(last)).
		Find(&fines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load fines for %d-%02d: %w", year, month, err)
	}
	fineTotals := make(map[uint]float64)
	for _, f := range fines {
		fineTotals[f.MemberID] += f.Amount
	}

	report := &MonthlyReport{Year: year, Month: int(month), Days: days}
	for _, member := range members {
		// Late days count as not-present at the monthly grain, so absent is
		// derived from present days alone.
		report.Members = append(report.Members, MonthlyMemberSummary{
			MemberID:     member.ID,
			ExternalID:   member.ExternalID,
			Username:     member.Username,
			FullName:     member.FullName,
			TotalPresent: presentDays[member.ID],
			TotalLate:    lateDays[member.ID],
			TotalAbsent:  days - presentDays[member.ID],
			TotalFines:   fineTotals[member.ID],
		})
	}
	return report, nil
}

// EmitDailyReport builds and logs the daily summary. Invoked by the
// scheduler at the configured report time.
func (s *ReportService) EmitDailyReport(ctx context.Context, day time.Time) {
	report, err := s.BuildDailyReport(ctx, day)
	if err != nil {
		logrus.WithError(err).Error("Failed to build scheduled daily report")
		return
	}
	logrus.WithFields(logrus.Fields{
		"day":         report.Day,
		"present":     len(report.Present),
		"late":        len(report.Late),
		"absent":      len(report.Absent),
		"total_fines": report.TotalFines,
	}).Info("Daily attendance report")
}

// lifetimeFines sums every fine row per member. The running total is not
// bounded to the reported day.
func (s *ReportService) lifetimeFines(ctx context.Context) (map[uint]float64, error) {
	type row struct {
		MemberID uint
		Total    float64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.Fine{}).
		Select("member_id, SUM(amount) AS total").
		Group("member_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum fines: %w", err)
	}
	totals := make(map[uint]float64, len(rows))
	for _, r := range rows {
		totals[r.MemberID] = r.Total
	}
	return totals, nil
}
