package attendance

import (
	"context"
	"sync"
	"time"

	"rollcall/internal/config"

	"github.com/sirupsen/logrus"
)

type scheduledEvent int

const (
	eventWindowOpen scheduledEvent = iota
	eventWindowClose
	eventReport
)

func (e scheduledEvent) String() string {
	switch e {
	case eventWindowOpen:
		return "window_open"
	case eventWindowClose:
		return "window_close"
	case eventReport:
		return "report"
	default:
		return "unknown"
	}
}

// WindowScheduler drives the daily lifecycle: it opens the window at
// window_start, closes it at window_end (then sweeps absentees), and fires
// the report callback at report_time. A single goroutine re-arms a wall-clock
// timer for the nearest upcoming event, so missed ticks cannot stack and
// settings changes take effect by recomputing the next trigger.
type WindowScheduler struct {
	window   *WindowController
	ledger   *Ledger
	settings *config.SettingsManager
	clock    *Clock

	// OnReport is invoked at report_time with the day being reported.
	// Wired at startup; nil means no report is produced.
	OnReport func(ctx context.Context, day time.Time)

	stopCh       chan struct{}
	rescheduleCh chan struct{}

	wg sync.WaitGroup

	timerMu sync.Mutex
	timer   *time.Timer
}

func NewWindowScheduler(window *WindowController, ledger *Ledger, settings *config.SettingsManager, clock *Clock) *WindowScheduler {
	return &WindowScheduler{
		window:       window,
		ledger:       ledger,
		settings:     settings,
		clock:        clock,
		stopCh:       make(chan struct{}),
		rescheduleCh: make(chan struct{}, 1),
	}
}

func (s *WindowScheduler) Start() {
	// Recover the flag from the wall clock so a restart inside the window
	// resumes accepting check-ins.
	s.recoverWindowState()

	s.settings.OnUpdate(func() {
		s.requestReschedule()
	})

	s.wg.Add(1)
	go s.runLoop()

	s.requestReschedule()
	logrus.Debug("WindowScheduler started")
}

func (s *WindowScheduler) Stop(ctx context.Context) {
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("WindowScheduler stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("WindowScheduler stop timed out.")
	}
}

// TriggerSweep runs the absentee sweep for today immediately. It is the
// manual escape hatch when an operator needs the close-of-window work redone.
func (s *WindowScheduler) TriggerSweep(ctx context.Context) (int, error) {
	return s.ledger.SweepAbsentees(ctx, s.clock.Today())
}

func (s *WindowScheduler) requestReschedule() {
	select {
	case s.rescheduleCh <- struct{}{}:
	default:
	}
}

func (s *WindowScheduler) recoverWindowState() {
	if s.window.WithinWindow(s.clock.Now()) {
		s.window.Open()
		logrus.Info("Restarted inside the check-in window, window reopened")
	} else {
		s.window.Close()
	}
}

func (s *WindowScheduler) runLoop() {
	defer s.wg.Done()

	for {
		next, events := s.computeNextTrigger(s.clock.Now())
		s.resetTimer(next.Sub(s.clock.Now()))
		logrus.WithFields(logrus.Fields{
			"events": eventNames(events),
			"at":     next.Format(time.RFC3339),
		}).Debug("WindowScheduler armed")

		select {
		case <-s.stopCh:
			s.stopTimer()
			return
		case <-s.rescheduleCh:
			s.stopTimer()
			continue
		case <-s.timerC():
			s.stopTimer()
			for _, event := range events {
				s.fire(event)
			}
			continue
		}
	}
}

// computeNextTrigger returns the nearest upcoming trigger instant and every
// event scheduled for it, so that events configured to the same HH:MM all
// fire instead of the later ones slipping to tomorrow. Unparsable settings
// values fall back to a short poll so a later correction is picked up.
func (s *WindowScheduler) computeNextTrigger(now time.Time) (time.Time, []scheduledEvent) {
	settings := s.settings.GetSettings()

	type candidate struct {
		at    time.Time
		event scheduledEvent
	}
	var candidates []candidate
	for _, c := range []struct {
		value string
		event scheduledEvent
	}{
		{settings.WindowStart, eventWindowOpen},
		{settings.WindowEnd, eventWindowClose},
		{settings.ReportTime, eventReport},
	} {
		at, err := nextOccurrence(c.value, now)
		if err != nil {
			logrus.WithError(err).WithField("value", c.value).Warn("WindowScheduler: bad clock value in settings")
			continue
		}
		candidates = append(candidates, candidate{at: at, event: c.event})
	}
	if len(candidates) == 0 {
		return now.Add(5 * time.Minute), []scheduledEvent{eventWindowClose}
	}

	best := candidates[0].at
	for _, c := range candidates[1:] {
		if c.at.Before(best) {
			best = c.at
		}
	}
	// Ties fire in declaration order: open, then close, then report.
	var events []scheduledEvent
	for _, c := range candidates {
		if c.at.Equal(best) {
			events = append(events, c.event)
		}
	}
	return best, events
}

func eventNames(events []scheduledEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.String()
	}
	return names
}

func (s *WindowScheduler) fire(event scheduledEvent) {
	switch event {
	case eventWindowOpen:
		s.window.Open()
		logrus.Info("Check-in window opened")
	case eventWindowClose:
		s.window.Close()
		logrus.Info("Check-in window closed")
		day := s.clock.Today()
		swept, err := s.ledger.SweepAbsentees(context.Background(), day)
		if err != nil {
			logrus.WithError(err).Error("Absentee sweep finished with errors")
		}
		logrus.WithFields(logrus.Fields{
			"day":   FormatDay(day),
			"swept": swept,
		}).Info("Absentee sweep completed")
	case eventReport:
		if s.OnReport == nil {
			return
		}
		s.OnReport(context.Background(), s.clock.Today())
	}
}

// nextOccurrence maps an HH:MM value to its next wall-clock occurrence after
// now, today or tomorrow.
func nextOccurrence(clockValue string, now time.Time) (time.Time, error) {
	minutes, err := parseClockToMinutes(clockValue)
	if err != nil {
		return time.Time{}, err
	}
	local := now.In(phnomPenhLocation)
	target := time.Date(local.Year(), local.Month(), local.Day(),
		minutes/60, minutes%60, 0, 0, phnomPenhLocation)
	if !target.After(local) {
		target = target.Add(24 * time.Hour)
	}
	return target, nil
}

func (s *WindowScheduler) timerC() <-chan time.Time {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer == nil {
		ch := make(chan time.Time)
		close(ch)
		return ch
	}
	return s.timer.C
}

func (s *WindowScheduler) resetTimer(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer == nil {
		s.timer = time.NewTimer(d)
		return
	}
	s.timer.Reset(d)
}

func (s *WindowScheduler) stopTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer == nil {
		return
	}
	if !s.timer.Stop() {
		select {
		case <-s.timer.C:
		default:
		}
	}
	// Keep the timer object for reuse.
}
