package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health. It reports process uptime and database
// connectivity, returning 503 when the database is unreachable.
func (s *Server) Health(c *gin.Context) {
	status := "healthy"
	dbStatus := "ok"
	httpStatus := http.StatusOK

	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := sqlDB.PingContext(ctx); err != nil {
				status = "unhealthy"
				dbStatus = "unavailable"
				httpStatus = http.StatusServiceUnavailable
			}
		} else {
			status = "unhealthy"
			dbStatus = "unavailable"
			httpStatus = http.StatusServiceUnavailable
		}
	}

	uptime := ""
	if start, exists := c.Get("serverStartTime"); exists {
		if startTime, ok := start.(time.Time); ok {
			uptime = time.Since(startTime).Round(time.Second).String()
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"database":  dbStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    uptime,
	})
}
