// Package app provides the main application logic and lifecycle management.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/models"
	"rollcall/internal/services"
	"rollcall/internal/store"
	"rollcall/internal/types"
	"rollcall/internal/version"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"
	"gorm.io/gorm"
)

// App holds all services and manages the application lifecycle.
type App struct {
	engine          *gin.Engine
	configManager   types.ConfigManager
	settingsManager *config.SettingsManager
	scheduler       *attendance.WindowScheduler
	auditService    *attendance.CheckinLogService
	reportService   *services.ReportService
	storage         store.Store
	db              *gorm.DB
	httpServer      *http.Server
}

// AppParams defines the dependencies for the App.
type AppParams struct {
	dig.In
	Engine          *gin.Engine
	ConfigManager   types.ConfigManager
	SettingsManager *config.SettingsManager
	Scheduler       *attendance.WindowScheduler
	AuditService    *attendance.CheckinLogService
	ReportService   *services.ReportService
	Storage         store.Store
	DB              *gorm.DB
}

// NewApp is the constructor for App, with dependencies injected by dig.
func NewApp(params AppParams) *App {
	// The scheduler fires the daily report; the report service builds it.
	// Wired here to keep the two packages independent.
	params.Scheduler.OnReport = params.ReportService.EmitDailyReport

	return &App{
		engine:          params.Engine,
		configManager:   params.ConfigManager,
		settingsManager: params.SettingsManager,
		scheduler:       params.Scheduler,
		auditService:    params.AuditService,
		reportService:   params.ReportService,
		storage:         params.Storage,
		db:              params.DB,
	}
}

// Start runs the application, it is a non-blocking call.
func (a *App) Start() error {
	// Database migration
	if err := a.db.AutoMigrate(
		&models.SystemSetting{},
		&models.Member{},
		&models.AttendanceRecord{},
		&models.Fine{},
		&models.CheckinLog{},
	); err != nil {
		return fmt.Errorf("database auto-migration failed: %w", err)
	}
	logrus.Info("Database auto-migration completed.")

	// Initialize system settings
	if err := a.settingsManager.Initialize(a.db, a.storage); err != nil {
		return fmt.Errorf("failed to initialize system settings: %w", err)
	}
	if err := a.settingsManager.EnsureSettingsInitialized(); err != nil {
		return fmt.Errorf("failed to seed default settings: %w", err)
	}
	logrus.Info("System settings initialized in DB.")

	// Background services
	a.auditService.Start()
	a.scheduler.Start()

	a.configManager.DisplayServerConfig()

	// Create HTTP server
	serverConfig := a.configManager.GetEffectiveServerConfig()
	a.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:        a.engine,
		ReadTimeout:    time.Duration(serverConfig.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(serverConfig.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(serverConfig.IdleTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start HTTP server in a new goroutine
	go func() {
		logrus.Infof("Rollcall server started successfully on Version: %s", version.Version)
		logrus.Infof("Server address: http://%s:%d", serverConfig.Host, serverConfig.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the application.
func (a *App) Stop(ctx context.Context) {
	logrus.Info("Shutting down server...")

	serverConfig := a.configManager.GetEffectiveServerConfig()
	totalTimeout := time.Duration(serverConfig.GracefulShutdownTimeout) * time.Second

	// Reserve time for background services after the HTTP server drains.
	httpShutdownTimeout := totalTimeout - 5*time.Second
	if httpShutdownTimeout <= 0 {
		httpShutdownTimeout = time.Second
	}
	httpShutdownCtx, cancelHttpShutdown := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancelHttpShutdown()

	httpShutdownStart := time.Now()
	if err := a.httpServer.Shutdown(httpShutdownCtx); err != nil {
		logrus.Debug("HTTP server graceful shutdown timed out, forcing remaining connections to close.")
		if closeErr := a.httpServer.Close(); closeErr != nil {
			logrus.Errorf("Error forcing HTTP server to close: %v", closeErr)
		}
	}
	logrus.Infof("HTTP server has been shut down. (took %v)", time.Since(httpShutdownStart))

	stoppableServices := []func(context.Context){
		a.scheduler.Stop,
		a.auditService.Stop,
		a.settingsManager.Stop,
	}

	var wg sync.WaitGroup
	wg.Add(len(stoppableServices))
	for _, stopFunc := range stoppableServices {
		go func(stop func(context.Context)) {
			defer wg.Done()
			stop(ctx)
		}(stopFunc)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("All background services stopped.")
	case <-ctx.Done():
		logrus.Warn("Shutdown timed out, some services may not have stopped gracefully.")
	}

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			logrus.Errorf("Error closing storage: %v", err)
		}
	}

	closeDBConnection(a.db, "Main database")
	logrus.Info("Server exited gracefully")
}

// closeDBConnection gracefully closes a GORM database connection with timeout.
func closeDBConnection(gormDB *gorm.DB, name string) {
	if gormDB == nil {
		return
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		logrus.Errorf("Error getting sql.DB for %s: %v", name, err)
		return
	}

	// Force idle connections to close immediately.
	sqlDB.SetMaxIdleConns(0)
	sqlDB.SetConnMaxIdleTime(0)
	sqlDB.SetConnMaxLifetime(0)

	done := make(chan error, 1)
	go func() {
		done <- sqlDB.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			logrus.Errorf("[%s] Error closing connection: %v", name, err)
		}
	case <-time.After(1 * time.Second):
		logrus.Warnf("[%s] Connection close timed out after 1s, proceeding anyway", name)
	}
}
