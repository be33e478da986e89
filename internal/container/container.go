// Package container wires the application's dependencies with dig.
package container

import (
	"rollcall/internal/app"
	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/db"
	"rollcall/internal/handler"
	"rollcall/internal/router"
	"rollcall/internal/services"
	"rollcall/internal/store"

	"go.uber.org/dig"
)

// BuildContainer creates the dependency injection container and registers
// every constructor.
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	constructors := []any{
		// Infrastructure
		config.NewManager,
		config.NewSettingsManager,
		store.NewStore,
		db.NewDB,

		// Attendance core
		attendance.NewClock,
		attendance.NewWindowController,
		attendance.NewFinePolicy,
		attendance.NewCheckinLogService,
		attendance.NewLedger,
		attendance.NewWindowScheduler,

		// Services
		services.NewReportService,
		services.NewExportService,

		// Transport
		handler.NewServer,
		router.NewRouter,

		// Application
		app.NewApp,
	}

	for _, c := range constructors {
		if err := container.Provide(c); err != nil {
			return nil, err
		}
	}

	return container, nil
}
