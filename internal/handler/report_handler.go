package handler

import (
	"strconv"
	"time"

	"rollcall/internal/attendance"
	app_errors "rollcall/internal/errors"
	"rollcall/internal/response"

	"github.com/gin-gonic/gin"
)

// DailyReport handles GET /api/admin/reports/daily?day=YYYY-MM-DD.
// The day defaults to today.
func (s *Server) DailyReport(c *gin.Context) {
	day, ok := s.dayParam(c)
	if !ok {
		return
	}

	report, err := s.ReportService.BuildDailyReport(c.Request.Context(), day)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, report)
}

// MonthlyReport handles GET /api/admin/reports/monthly?year=&month=.
// Defaults to the current month.
func (s *Server) MonthlyReport(c *gin.Context) {
	year, month, ok := s.monthParams(c)
	if !ok {
		return
	}

	report, err := s.ReportService.BuildMonthlyReport(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, report)
}

// ExportDaily handles POST /api/admin/exports/daily. The CSV is written
// under the export directory and its path returned.
func (s *Server) ExportDaily(c *gin.Context) {
	day, ok := s.dayParam(c)
	if !ok {
		return
	}

	path, err := s.ExportService.ExportDaily(c.Request.Context(), day)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, gin.H{"path": path, "day": attendance.FormatDay(day)})
}

// ExportMonthly handles POST /api/admin/exports/monthly.
func (s *Server) ExportMonthly(c *gin.Context) {
	year, month, ok := s.monthParams(c)
	if !ok {
		return
	}

	path, err := s.ExportService.ExportMonthly(c.Request.Context(), year, month)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, gin.H{"path": path, "year": year, "month": int(month)})
}

func (s *Server) dayParam(c *gin.Context) (time.Time, bool) {
	value := c.Query("day")
	if value == "" {
		return s.Clock.Today(), true
	}
	day, err := attendance.ParseDay(value)
	if err != nil {
		response.Error(c, app_errors.NewValidationError("day must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return day, true
}

func (s *Server) monthParams(c *gin.Context) (int, time.Month, bool) {
	now := s.Clock.Now()
	year, month := now.Year(), now.Month()

	if v := c.Query("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 2000 || parsed > 9999 {
			response.Error(c, app_errors.NewValidationError("invalid year"))
			return 0, 0, false
		}
		year = parsed
	}
	if v := c.Query("month"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			response.Error(c, app_errors.NewValidationError("invalid month"))
			return 0, 0, false
		}
		month = time.Month(parsed)
	}
	return year, month, true
}
