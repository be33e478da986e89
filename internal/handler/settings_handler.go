package handler

import (
	"fmt"

	app_errors "rollcall/internal/errors"
	"rollcall/internal/response"

	"github.com/gin-gonic/gin"
)

// GetSettings handles the GET /api/admin/settings request.
func (s *Server) GetSettings(c *gin.Context) {
	response.Success(c, s.SettingsManager.GetSettings())
}

// UpdateSettings handles the PUT /api/admin/settings request. Values arrive
// as a flat key/value map and are validated per key before persisting.
func (s *Server) UpdateSettings(c *gin.Context) {
	var settingsMap map[string]any
	if err := c.ShouldBindJSON(&settingsMap); err != nil {
		response.Error(c, app_errors.NewAPIError(app_errors.ErrInvalidJSON, err.Error()))
		return
	}

	if len(settingsMap) == 0 {
		response.Success(c, s.SettingsManager.GetSettings())
		return
	}

	asStrings := make(map[string]string, len(settingsMap))
	for key, value := range settingsMap {
		asStrings[key] = fmt.Sprint(value)
	}

	if err := s.SettingsManager.UpdateSettings(asStrings); err != nil {
		if apiErr, ok := err.(*app_errors.APIError); ok {
			response.Error(c, apiErr)
			return
		}
		response.Error(c, app_errors.ParseDBError(err))
		return
	}

	response.Success(c, s.SettingsManager.GetSettings())
}
