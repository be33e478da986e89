package handler

import (
	"strings"

	"rollcall/internal/attendance"
	app_errors "rollcall/internal/errors"
	"rollcall/internal/models"
	"rollcall/internal/response"

	"github.com/gin-gonic/gin"
)

// CheckInRequest is the payload for a member check-in.
type CheckInRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// CheckInResponse reports the outcome of a check-in attempt.
type CheckInResponse struct {
	Outcome string `json:"outcome"`
	Status  string `json:"status,omitempty"`
	Day     string `json:"day"`
}

// CheckIn handles POST /api/checkin.
func (s *Server) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	req.MemberID = strings.TrimSpace(req.MemberID)
	if req.MemberID == "" {
		response.Error(c, app_errors.NewValidationError("member_id is required"))
		return
	}

	now := s.Clock.Now()
	display := attendance.DisplayInfo{
		Username: strings.TrimSpace(req.Username),
		FullName: strings.TrimSpace(req.FullName),
	}
	outcome, err := s.Ledger.RecordCheckIn(c.Request.Context(), req.MemberID, display, now, c.ClientIP())
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	response.Success(c, CheckInResponse{
		Outcome: string(outcome.Kind),
		Status:  outcome.Status,
		Day:     attendance.FormatDay(now),
	})
}

// WindowStatusResponse describes the current window state.
type WindowStatusResponse struct {
	Open        bool   `json:"open"`
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	Now         string `json:"now"`
	Day         string `json:"day"`
}

// WindowStatus handles GET /api/window.
func (s *Server) WindowStatus(c *gin.Context) {
	start, end := s.SettingsManager.GetWindow()
	now := s.Clock.Now()
	response.Success(c, WindowStatusResponse{
		Open:        s.Window.IsOpen(),
		WindowStart: start,
		WindowEnd:   end,
		Now:         now.Format("15:04:05"),
		Day:         attendance.FormatDay(now),
	})
}

// ForceMarkRequest is the payload for an administrative status override.
type ForceMarkRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Status   string `json:"status" binding:"required"`
	Day      string `json:"day"`
}

// ForceMark handles POST /api/admin/force-mark.
func (s *Server) ForceMark(c *gin.Context) {
	var req ForceMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}
	if !models.ValidStatus(req.Status) {
		response.Error(c, app_errors.NewValidationError("status must be one of present, late, absent"))
		return
	}

	day := s.Clock.Today()
	if req.Day != "" {
		parsed, err := attendance.ParseDay(req.Day)
		if err != nil {
			response.Error(c, app_errors.NewValidationError("day must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	found, err := s.Ledger.ForceMark(c.Request.Context(), strings.TrimSpace(req.MemberID), req.Status, day)
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	if !found {
		response.Error(c, app_errors.NewNotFoundError("member not found"))
		return
	}

	response.Success(c, gin.H{
		"member_id": req.MemberID,
		"status":    req.Status,
		"day":       attendance.FormatDay(day),
	})
}

// TriggerSweep handles POST /api/admin/sweep. It reruns the absentee sweep
// for today.
func (s *Server) TriggerSweep(c *gin.Context) {
	swept, err := s.Scheduler.TriggerSweep(c.Request.Context())
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, gin.H{"swept": swept, "day": attendance.FormatDay(s.Clock.Today())})
}
