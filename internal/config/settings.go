package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	app_errors "rollcall/internal/errors"
	"rollcall/internal/models"
	"rollcall/internal/store"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys persisted in the system_settings table.
const (
	KeyFineAmount  = "fine_amount"
	KeyWindowStart = "window_start"
	KeyWindowEnd   = "window_end"
	KeyReportTime  = "report_time"
)

// Default values used when a setting row is absent.
const (
	DefaultFineAmount  = 20.0
	DefaultWindowStart = "09:00"
	DefaultWindowEnd   = "10:00"
	DefaultReportTime  = "10:05"
)

// settingsUpdatedChannel is the store pub/sub channel used to invalidate the
// settings cache across instances and to reschedule the window scheduler.
const settingsUpdatedChannel = "rollcall:settings:updated"

var settingDescriptions = map[string]string{
	KeyFineAmount:  "Fine charged for a late or absent day",
	KeyWindowStart: "Daily attendance window opening time (HH:MM)",
	KeyWindowEnd:   "Daily attendance window closing time (HH:MM)",
	KeyReportTime:  "Daily report generation time (HH:MM)",
}

// Settings is the resolved view over the mutable system settings.
type Settings struct {
	FineAmount  float64 `json:"fine_amount"`
	WindowStart string  `json:"window_start"`
	WindowEnd   string  `json:"window_end"`
	ReportTime  string  `json:"report_time"`
}

// SettingsManager manages the DB-backed mutable settings with an in-memory
// cache. Reads never hit the database; writes persist, refresh the cache, and
// broadcast an invalidation through the store.
type SettingsManager struct {
	mu       sync.RWMutex
	settings Settings
	db       *gorm.DB
	storage  store.Store
	sub      store.Subscription
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// onUpdate callbacks fire after the cache refreshes (e.g. scheduler re-arm).
	callbackMu sync.Mutex
	onUpdate   []func()
}

// NewSettingsManager creates an uninitialized SettingsManager.
func NewSettingsManager() *SettingsManager {
	return &SettingsManager{
		settings: defaultSettings(),
		stopCh:   make(chan struct{}),
	}
}

func defaultSettings() Settings {
	return Settings{
		FineAmount:  DefaultFineAmount,
		WindowStart: DefaultWindowStart,
		WindowEnd:   DefaultWindowEnd,
		ReportTime:  DefaultReportTime,
	}
}

// Initialize wires the manager to its database and store, loads the cache,
// and subscribes to cross-instance invalidations.
func (sm *SettingsManager) Initialize(db *gorm.DB, storage store.Store) error {
	sm.db = db
	sm.storage = storage

	if err := sm.reloadFromDB(); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if storage != nil {
		sub, err := storage.Subscribe(settingsUpdatedChannel)
		if err != nil {
			logrus.WithError(err).Warn("Settings invalidation subscription unavailable")
		} else {
			sm.sub = sub
			sm.wg.Add(1)
			go sm.listenForUpdates(sub)
		}
	}

	return nil
}

// EnsureSettingsInitialized seeds default rows for any missing setting keys.
func (sm *SettingsManager) EnsureSettingsInitialized() error {
	defaults := map[string]string{
		KeyFineAmount:  strconv.FormatFloat(DefaultFineAmount, 'f', -1, 64),
		KeyWindowStart: DefaultWindowStart,
		KeyWindowEnd:   DefaultWindowEnd,
		KeyReportTime:  DefaultReportTime,
	}

	for key, value := range defaults {
		setting := models.SystemSetting{
			SettingKey:   key,
			SettingValue: value,
			Description:  settingDescriptions[key],
		}
		if err := sm.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoNothing: true,
		}).Create(&setting).Error; err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}

	return sm.reloadFromDB()
}

// GetSettings returns a snapshot of the current settings.
func (sm *SettingsManager) GetSettings() Settings {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.settings
}

// GetFineAmount returns the current fine amount.
func (sm *SettingsManager) GetFineAmount() float64 {
	return sm.GetSettings().FineAmount
}

// GetWindow returns the configured window start and end clock times.
func (sm *SettingsManager) GetWindow() (start, end string) {
	s := sm.GetSettings()
	return s.WindowStart, s.WindowEnd
}

// GetReportTime returns the configured daily report clock time.
func (sm *SettingsManager) GetReportTime() string {
	return sm.GetSettings().ReportTime
}

// OnUpdate registers a callback invoked after any settings change is applied.
func (sm *SettingsManager) OnUpdate(fn func()) {
	sm.callbackMu.Lock()
	defer sm.callbackMu.Unlock()
	sm.onUpdate = append(sm.onUpdate, fn)
}

// UpdateSettings validates and persists the given key/value pairs, refreshes
// the cache and notifies other instances.
func (sm *SettingsManager) UpdateSettings(updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}

	for key, value := range updates {
		if err := validateSetting(key, value); err != nil {
			return app_errors.NewValidationError(err.Error())
		}
	}

	err := sm.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range updates {
			setting := models.SystemSetting{
				SettingKey:   key,
				SettingValue: value,
				Description:  settingDescriptions[key],
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "setting_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
			}).Create(&setting).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}

	if err := sm.reloadFromDB(); err != nil {
		return err
	}
	sm.fireCallbacks()

	if sm.storage != nil {
		if err := sm.storage.Publish(settingsUpdatedChannel, []byte("1")); err != nil {
			logrus.WithError(err).Warn("Failed to publish settings invalidation")
		}
	}

	return nil
}

// Stop terminates the subscription listener.
func (sm *SettingsManager) Stop(ctx context.Context) {
	close(sm.stopCh)
	if sm.sub != nil {
		_ = sm.sub.Close()
	}

	done := make(chan struct{})
	go func() {
		sm.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Debug("SettingsManager stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("SettingsManager stop timed out.")
	}
}

func (sm *SettingsManager) listenForUpdates(sub store.Subscription) {
	defer sm.wg.Done()
	for {
		select {
		case <-sm.stopCh:
			return
		case _, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := sm.reloadFromDB(); err != nil {
				logrus.WithError(err).Warn("Failed to reload settings after invalidation")
				continue
			}
			sm.fireCallbacks()
		}
	}
}

func (sm *SettingsManager) fireCallbacks() {
	sm.callbackMu.Lock()
	callbacks := make([]func(), len(sm.onUpdate))
	copy(callbacks, sm.onUpdate)
	sm.callbackMu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (sm *SettingsManager) reloadFromDB() error {
	var rows []models.SystemSetting
	if err := sm.db.Find(&rows).Error; err != nil {
		return err
	}

	settings := defaultSettings()
	for _, row := range rows {
		switch row.SettingKey {
		case KeyFineAmount:
			if v, err := strconv.ParseFloat(row.SettingValue, 64); err == nil && v >= 0 {
				settings.FineAmount = v
			} else {
				logrus.Warnf("Ignoring invalid %s setting: %q", KeyFineAmount, row.SettingValue)
			}
		case KeyWindowStart:
			if isValidClock(row.SettingValue) {
				settings.WindowStart = row.SettingValue
			}
		case KeyWindowEnd:
			if isValidClock(row.SettingValue) {
				settings.WindowEnd = row.SettingValue
			}
		case KeyReportTime:
			if isValidClock(row.SettingValue) {
				settings.ReportTime = row.SettingValue
			}
		}
	}

	sm.mu.Lock()
	sm.settings = settings
	sm.mu.Unlock()
	return nil
}

// validateSetting checks a single key/value pair before persisting it.
func validateSetting(key, value string) error {
	switch key {
	case KeyFineAmount:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number, got %q", key, value)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", key, v)
		}
	case KeyWindowStart, KeyWindowEnd, KeyReportTime:
		if !isValidClock(value) {
			return fmt.Errorf("%s must be in HH:MM format, got %q", key, value)
		}
	default:
		return fmt.Errorf("unknown setting key: %s", key)
	}
	return nil
}

// isValidClock reports whether value is a valid HH:MM clock time.
func isValidClock(value string) bool {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}
