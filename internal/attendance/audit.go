package attendance

import (
	"context"
	"sync"
	"time"

	"rollcall/internal/models"
	"rollcall/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	auditBufferSize    = 1024
	auditFlushInterval = 30 * time.Second
	auditFlushBatch    = 200
)

// CheckinLogService persists an append-only audit trail of check-in attempts.
// Writes are buffered and flushed in batches so auditing never sits inside
// the ledger transaction or the request's critical path. Entries may be lost
// on crash; the audit trail is best-effort.
type CheckinLogService struct {
	db      *gorm.DB
	entryCh chan models.CheckinLog
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewCheckinLogService creates a new CheckinLogService.
func NewCheckinLogService(db *gorm.DB) *CheckinLogService {
	return &CheckinLogService{
		db:      db,
		entryCh: make(chan models.CheckinLog, auditBufferSize),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the background flush loop.
func (s *CheckinLogService) Start() {
	s.wg.Add(1)
	go s.run()
	logrus.Debug("Checkin log service started")
}

// Stop flushes pending entries and stops the service.
func (s *CheckinLogService) Stop(ctx context.Context) {
	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("CheckinLogService stopped gracefully.")
	case <-ctx.Done():
		logrus.Warn("CheckinLogService stop timed out.")
	}
}

// Record enqueues an audit entry. Drops the entry when the buffer is full
// rather than blocking a check-in.
func (s *CheckinLogService) Record(externalID string, day time.Time, outcome OutcomeKind, sourceIP string) {
	entry := models.CheckinLog{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		ExternalID: externalID,
		Day:        FormatDay(day),
		Outcome:    string(outcome),
		SourceIP:   sourceIP,
	}

	select {
	case s.entryCh <- entry:
	default:
		logrus.Debug("Checkin audit buffer full, dropping entry")
	}
}

func (s *CheckinLogService) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	pending := make([]models.CheckinLog, 0, auditFlushBatch)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := s.db.CreateInBatches(pending, auditFlushBatch).Error; err != nil {
			if utils.IsTransientDBError(err) && len(pending) < auditFlushBatch*2 {
				// Keep the batch for the next tick; the cap bounds memory if
				// the contention persists.
				logrus.WithError(err).Warn("Transient error flushing checkin audit entries, will retry")
				return
			}
			logrus.WithError(err).Warn("Failed to flush checkin audit entries, dropping batch")
		}
		pending = pending[:0]
	}

	for {
		select {
		case entry := <-s.entryCh:
			pending = append(pending, entry)
			if len(pending) >= auditFlushBatch {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case entry := <-s.entryCh:
					pending = append(pending, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
