// Package config provides environment configuration and DB-backed settings.
package config

import (
	"fmt"

	"rollcall/internal/types"
	"rollcall/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Manager implements types.ConfigManager on top of environment variables.
type Manager struct {
	serverConfig      types.ServerConfig
	authConfig        types.AuthConfig
	corsConfig        types.CORSConfig
	performanceConfig types.PerformanceConfig
	logConfig         types.LogConfig
	databaseConfig    types.DatabaseConfig
	redisDSN          string
	exportDir         string
	settingsManager   *SettingsManager
}

// NewManager creates a new configuration manager from the environment.
func NewManager(settingsManager *SettingsManager) (types.ConfigManager, error) {
	// Load .env if present; existing environment variables win.
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment variables")
	}

	manager := &Manager{settingsManager: settingsManager}
	if err := manager.ReloadConfig(); err != nil {
		return nil, err
	}

	if err := manager.Validate(); err != nil {
		return nil, err
	}

	return manager, nil
}

// ReloadConfig re-reads configuration from the environment.
func (m *Manager) ReloadConfig() error {
	m.serverConfig = types.ServerConfig{
		Port:                    utils.ParseInteger(utils.GetEnvOrDefault("PORT", "3001"), 3001),
		Host:                    utils.GetEnvOrDefault("HOST", "0.0.0.0"),
		ReadTimeout:             utils.ParseInteger(utils.GetEnvOrDefault("SERVER_READ_TIMEOUT", "60"), 60),
		WriteTimeout:            utils.ParseInteger(utils.GetEnvOrDefault("SERVER_WRITE_TIMEOUT", "60"), 60),
		IdleTimeout:             utils.ParseInteger(utils.GetEnvOrDefault("SERVER_IDLE_TIMEOUT", "120"), 120),
		GracefulShutdownTimeout: utils.ParseInteger(utils.GetEnvOrDefault("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", "10"), 10),
	}

	m.authConfig = types.AuthConfig{
		Key: utils.GetEnvOrDefault("AUTH_KEY", ""),
	}

	m.corsConfig = types.CORSConfig{
		Enabled:          utils.ParseBoolean(utils.GetEnvOrDefault("ENABLE_CORS", "true"), true),
		AllowedOrigins:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_ORIGINS", "*"), []string{"*"}),
		AllowedMethods:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"), []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		AllowedHeaders:   utils.ParseArray(utils.GetEnvOrDefault("ALLOWED_HEADERS", "*"), []string{"*"}),
		AllowCredentials: utils.ParseBoolean(utils.GetEnvOrDefault("ALLOW_CREDENTIALS", "false"), false),
	}

	m.performanceConfig = types.PerformanceConfig{
		MaxConcurrentRequests: utils.ParseInteger(utils.GetEnvOrDefault("MAX_CONCURRENT_REQUESTS", "100"), 100),
	}

	m.logConfig = types.LogConfig{
		Level:      utils.GetEnvOrDefault("LOG_LEVEL", "info"),
		Format:     utils.GetEnvOrDefault("LOG_FORMAT", "text"),
		EnableFile: utils.ParseBoolean(utils.GetEnvOrDefault("LOG_ENABLE_FILE", "false"), false),
		FilePath:   utils.GetEnvOrDefault("LOG_FILE_PATH", "./data/logs/app.log"),
	}

	m.databaseConfig = types.DatabaseConfig{
		DSN: utils.GetEnvOrDefault("DATABASE_DSN", "./data/rollcall.db"),
	}

	m.redisDSN = utils.GetEnvOrDefault("REDIS_DSN", "")
	m.exportDir = utils.GetEnvOrDefault("EXPORT_DIR", "./data/exports")

	return nil
}

// Validate checks the configuration for invalid values.
func (m *Manager) Validate() error {
	if m.serverConfig.Port < 1 || m.serverConfig.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", m.serverConfig.Port)
	}

	if m.authConfig.Key == "" {
		return fmt.Errorf("AUTH_KEY is required. Please set it in the environment")
	}

	if m.databaseConfig.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	return nil
}

// GetAuthConfig returns authentication configuration.
func (m *Manager) GetAuthConfig() types.AuthConfig {
	return m.authConfig
}

// GetCORSConfig returns CORS configuration.
func (m *Manager) GetCORSConfig() types.CORSConfig {
	return m.corsConfig
}

// GetPerformanceConfig returns performance configuration.
func (m *Manager) GetPerformanceConfig() types.PerformanceConfig {
	return m.performanceConfig
}

// GetLogConfig returns logging configuration.
func (m *Manager) GetLogConfig() types.LogConfig {
	return m.logConfig
}

// GetDatabaseConfig returns database configuration.
func (m *Manager) GetDatabaseConfig() types.DatabaseConfig {
	return m.databaseConfig
}

// GetEffectiveServerConfig returns the server configuration.
func (m *Manager) GetEffectiveServerConfig() types.ServerConfig {
	return m.serverConfig
}

// GetRedisDSN returns the Redis DSN, empty when the in-memory store is used.
func (m *Manager) GetRedisDSN() string {
	return m.redisDSN
}

// GetExportDir returns the directory CSV exports are written to.
func (m *Manager) GetExportDir() string {
	return m.exportDir
}

// DisplayServerConfig logs the effective server configuration at startup.
func (m *Manager) DisplayServerConfig() {
	logrus.Info("Server configuration:")
	logrus.Infof("  Listen: %s:%d", m.serverConfig.Host, m.serverConfig.Port)
	logrus.Infof("  Database DSN: %s", m.databaseConfig.DSN)
	if m.redisDSN != "" {
		logrus.Info("  Store: redis")
	} else {
		logrus.Info("  Store: memory")
	}
	logrus.Infof("  Log level: %s", m.logConfig.Level)
	logrus.Infof("  Export dir: %s", m.exportDir)
}
