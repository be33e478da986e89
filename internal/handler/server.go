// Package handler contains the HTTP handlers for the admin and check-in APIs.
package handler

import (
	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/services"
	"rollcall/internal/types"

	"go.uber.org/dig"
	"gorm.io/gorm"
)

// Server aggregates the dependencies shared by all HTTP handlers.
type Server struct {
	DB              *gorm.DB
	config          types.ConfigManager
	SettingsManager *config.SettingsManager
	Clock           *attendance.Clock
	Window          *attendance.WindowController
	Ledger          *attendance.Ledger
	Policy          *attendance.FinePolicy
	Scheduler       *attendance.WindowScheduler
	ReportService   *services.ReportService
	ExportService   *services.ExportService
}

// ServerParams contains the dependencies for the Server.
type ServerParams struct {
	dig.In

	DB              *gorm.DB
	Config          types.ConfigManager
	SettingsManager *config.SettingsManager
	Clock           *attendance.Clock
	Window          *attendance.WindowController
	Ledger          *attendance.Ledger
	Policy          *attendance.FinePolicy
	Scheduler       *attendance.WindowScheduler
	ReportService   *services.ReportService
	ExportService   *services.ExportService
}

// NewServer creates a new Server instance.
func NewServer(params ServerParams) *Server {
	return &Server{
		DB:              params.DB,
		config:          params.Config,
		SettingsManager: params.SettingsManager,
		Clock:           params.Clock,
		Window:          params.Window,
		Ledger:          params.Ledger,
		Policy:          params.Policy,
		Scheduler:       params.Scheduler,
		ReportService:   params.ReportService,
		ExportService:   params.ExportService,
	}
}
