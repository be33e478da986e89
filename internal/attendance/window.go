package attendance

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"rollcall/internal/config"

	"github.com/sirupsen/logrus"
)

// WindowController owns the process-wide attendance window state. The state
// machine has two states, Closed (initial) and Open, flipped by the scheduler
// at the configured start/end times.
//
// IsOpen intentionally requires BOTH the flag and the wall clock to agree:
// after a restart the flag defaults to closed even mid-window, and a stale
// flag must never admit a check-in outside the configured bounds. The
// conjunction is a restart-safety check, not a redundancy.
type WindowController struct {
	mu       sync.RWMutex
	open     bool
	settings *config.SettingsManager
	clock    *Clock
}

// NewWindowController creates a WindowController in the Closed state.
func NewWindowController(settings *config.SettingsManager, clock *Clock) *WindowController {
	return &WindowController{
		settings: settings,
		clock:    clock,
	}
}

// Open transitions the window to the Open state.
func (w *WindowController) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		w.open = true
		logrus.Info("Attendance window opened")
	}
}

// Close transitions the window to the Closed state.
func (w *WindowController) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open {
		w.open = false
		logrus.Info("Attendance window closed")
	}
}

// FlagOpen returns the raw state flag, ignoring the wall clock.
func (w *WindowController) FlagOpen() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.open
}

// IsOpen reports whether a check-in may currently be accepted: the state flag
// must be set AND the current instant must fall within [start, end).
func (w *WindowController) IsOpen() bool {
	if !w.FlagOpen() {
		return false
	}
	return w.WithinWindow(w.clock.Now())
}

// WithinWindow reports whether the given instant falls within the configured
// [start, end) window on its own civil day.
func (w *WindowController) WithinWindow(instant time.Time) bool {
	start, end := w.settings.GetWindow()

	startMin, err := parseClockToMinutes(start)
	if err != nil {
		logrus.Warnf("Invalid window_start setting %q: %v", start, err)
		return false
	}
	endMin, err := parseClockToMinutes(end)
	if err != nil {
		logrus.Warnf("Invalid window_end setting %q: %v", end, err)
		return false
	}

	local := instant.In(phnomPenhLocation)
	minutes := local.Hour()*60 + local.Minute()
	return minutesWithinWindow(minutes, startMin, endMin)
}

// parseClockToMinutes converts an HH:MM string to minutes since midnight.
func parseClockToMinutes(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid format")
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour")
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("out of range")
	}

	return hour*60 + minute, nil
}

// minutesWithinWindow implements the half-open [start, end) check. A window
// crossing midnight (start > end) wraps around.
func minutesWithinWindow(minutes, windowStart, windowEnd int) bool {
	if windowStart == windowEnd {
		return false
	}
	if windowStart < windowEnd {
		return minutes >= windowStart && minutes < windowEnd
	}
	return minutes >= windowStart || minutes < windowEnd
}
