package handler

import (
	"errors"
	"strings"

	app_errors "rollcall/internal/errors"
	"rollcall/internal/models"
	"rollcall/internal/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListMembers handles GET /api/admin/members. Inactive members are included
// so operators can re-enable them.
func (s *Server) ListMembers(c *gin.Context) {
	var members []models.Member
	if err := s.DB.Order("id ASC").Find(&members).Error; err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}
	response.Success(c, members)
}

// UpdateMemberRequest toggles a member's active flag or updates display
// fields.
type UpdateMemberRequest struct {
	IsActive *bool   `json:"is_active"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
}

// UpdateMember handles PUT /api/admin/members/:external_id.
func (s *Server) UpdateMember(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("external_id"))
	if externalID == "" {
		response.Error(c, app_errors.NewValidationError("external_id is required"))
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	var member models.Member
	err := s.DB.Where("external_id = ?", externalID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Error(c, app_errors.NewNotFoundError("member not found"))
		return
	}
	if err != nil {
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	updates := map[string]any{}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Username != nil {
		updates["username"] = strings.TrimSpace(*req.Username)
	}
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if len(updates) > 0 {
		if err := s.DB.Model(&member).Updates(updates).Error; err != nil {
			response.Error(c, app_errors.ParseDBError(err))
			return
		}
	}

	response.Success(c, member)
}
