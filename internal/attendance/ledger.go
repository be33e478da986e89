package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	app_errors "rollcall/internal/errors"
	"rollcall/internal/models"
	"rollcall/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DisplayInfo carries the mutable display fields supplied with a check-in
// event. Empty fields are ignored on update (merge, last-write-wins).
type DisplayInfo struct {
	Username string
	FullName string
}

// Ledger owns the transactional recording of daily attendance outcomes. All
// mutations run as single atomic transactions: a record and its fine are
// either both committed or neither is. The composite unique index on
// (member_id, day) is the authoritative duplicate guard; the in-transaction
// existence check is only a fast path.
type Ledger struct {
	db     *gorm.DB
	window *WindowController
	policy *FinePolicy
	clock  *Clock
	audit  *CheckinLogService
}

// NewLedger creates the attendance ledger.
func NewLedger(db *gorm.DB, window *WindowController, policy *FinePolicy, clock *Clock, audit *CheckinLogService) *Ledger {
	return &Ledger{
		db:     db,
		window: window,
		policy: policy,
		clock:  clock,
		audit:  audit,
	}
}

// RecordCheckIn processes a check-in event for the member identified by
// externalID at the given instant. It returns WindowClosed when the window
// gate rejects the attempt, AlreadyRecorded when the member already has a
// record for the day, and Recorded{present|late} otherwise.
func (l *Ledger) RecordCheckIn(ctx context.Context, externalID string, display DisplayInfo, instant time.Time, sourceIP string) (Outcome, error) {
	day := DayOf(instant)

	if !l.window.IsOpen() {
		l.recordAudit(externalID, day, OutcomeWindowClosed, sourceIP)
		return Outcome{Kind: OutcomeWindowClosed}, nil
	}

	member, err := l.getOrCreateMember(ctx, externalID, display)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to resolve member %s: %w", externalID, err)
	}

	status := models.StatusLate
	if BeforeCutoff(instant) {
		status = models.StatusPresent
	}

	outcome := Outcome{Kind: OutcomeRecorded, Status: status}
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := recordExists(tx, member.ID, day)
		if err != nil {
			return err
		}
		if exists {
			outcome = Outcome{Kind: OutcomeAlreadyRecorded}
			return nil
		}

		checkedInAt := instant
		record := models.AttendanceRecord{
			MemberID:    member.ID,
			Day:         datatypes.Date(day),
			Status:      status,
			CheckedInAt: &checkedInAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		if status == models.StatusLate {
			fine := models.Fine{
				MemberID: member.ID,
				Day:      datatypes.Date(day),
				Amount:   l.policy.CurrentAmount(),
			}
			if err := tx.Create(&fine).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// A concurrent check-in for the same (member, day) lost the race at
		// the unique index. That is the idempotent no-op case, not a fault.
		if app_errors.IsUniqueViolation(err) {
			outcome = Outcome{Kind: OutcomeAlreadyRecorded}
		} else {
			return Outcome{}, fmt.Errorf("failed to record check-in for %s: %w", externalID, err)
		}
	}

	l.recordAudit(externalID, day, outcome.Kind, sourceIP)
	return outcome, nil
}

// SweepAbsentees inserts an absent record and a fine for every active member
// lacking a record for the given day. Idempotent: members who already hold a
// record of any status are skipped, so a re-run after partial failure only
// fills remaining gaps. Each member commits independently to make partial
// progress durable.
func (l *Ledger) SweepAbsentees(ctx context.Context, day time.Time) (int, error) {
	day = DayOf(day)
	amount := l.policy.CurrentAmount()

	var members []models.Member
	err := l.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id NOT IN (?)", l.db.Model(&models.AttendanceRecord{}).
			Select("member_id").
			Where("day = ?", datatypes.Date(day)),
		).
		Find(&members).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find unrecorded members: %w", err)
	}

	swept := 0
	var firstErr error
	for _, member := range members {
		err := l.insertAbsence(ctx, member.ID, day, amount)
		if err != nil && utils.IsDBLockError(err) {
			// One immediate retry covers lock contention with a concurrent
			// check-in; anything longer-lived waits for the next re-run.
			err = l.insertAbsence(ctx, member.ID, day, amount)
		}
		if err != nil {
			if app_errors.IsUniqueViolation(err) {
				// A check-in or a concurrent sweep got there first. Skip.
				continue
			}
			if utils.IsTransientDBError(err) {
				logrus.WithError(err).WithField("member_id", member.ID).Warn("Sweep hit a transient database error for member")
			} else {
				logrus.WithError(err).WithField("member_id", member.ID).Error("Sweep failed for member")
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		swept++
	}

	return swept, firstErr
}

// insertAbsence commits the absent record and its fine for one member.
func (l *Ledger) insertAbsence(ctx context.Context, memberID uint, day time.Time, amount float64) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := models.AttendanceRecord{
			MemberID: memberID,
			Day:      datatypes.Date(day),
			Status:   models.StatusAbsent,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		fine := models.Fine{
			MemberID: memberID,
			Day:      datatypes.Date(day),
			Amount:   amount,
		}
		return tx.Create(&fine).Error
	})
}

// ForceMark is the administrative override replacing a member's outcome for
// the given day. It returns false without error when the member is unknown.
// Within one transaction any existing record and fine for (member, day) are
// deleted, then the new record is inserted, with a fine at the current policy
// amount for any status other than present.
func (l *Ledger) ForceMark(ctx context.Context, externalID, status string, day time.Time) (bool, error) {
	if !models.ValidStatus(status) {
		return false, fmt.Errorf("invalid status: %s", status)
	}
	day = DayOf(day)

	var member models.Member
	err := l.db.WithContext(ctx).Where("external_id = ?", externalID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up member %s: %w", externalID, err)
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ? AND day = ?", member.ID, datatypes.Date(day)).
			Delete(&models.AttendanceRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ? AND day = ?", member.ID, datatypes.Date(day)).
			Delete(&models.Fine{}).Error; err != nil {
			return err
		}

		record := models.AttendanceRecord{
			MemberID: member.ID,
			Day:      datatypes.Date(day),
			Status:   status,
		}
		if status != models.StatusAbsent {
			now := l.clock.Now()
			record.CheckedInAt = &now
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		if status != models.StatusPresent {
			fine := models.Fine{
				MemberID: member.ID,
				Day:      datatypes.Date(day),
				Amount:   l.policy.CurrentAmount(),
			}
			if err := tx.Create(&fine).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to force-mark %s as %s: %w", externalID, status, err)
	}

	logrus.WithFields(logrus.Fields{
		"external_id": externalID,
		"status":      status,
		"day":         FormatDay(day),
	}).Info("Attendance outcome overridden")
	return true, nil
}

// getOrCreateMember upserts the member by stable external identity, merging
// non-empty display fields.
func (l *Ledger) getOrCreateMember(ctx context.Context, externalID string, display DisplayInfo) (*models.Member, error) {
	var member models.Member
	err := l.db.WithContext(ctx).Where("external_id = ?", externalID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		member = models.Member{
			ExternalID: externalID,
			Username:   display.Username,
			FullName:   display.FullName,
			IsActive:   true,
		}
		if createErr := l.db.WithContext(ctx).Create(&member).Error; createErr != nil {
			// Two first-time check-ins may race on member creation; the
			// loser re-reads the winner's row.
			if app_errors.IsUniqueViolation(createErr) {
				if retryErr := l.db.WithContext(ctx).Where("external_id = ?", externalID).First(&member).Error; retryErr != nil {
					return nil, retryErr
				}
				return &member, nil
			}
			return nil, createErr
		}
		return &member, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if display.Username != "" && display.Username != member.Username {
		updates["username"] = display.Username
	}
	if display.FullName != "" && display.FullName != member.FullName {
		updates["full_name"] = display.FullName
	}
	if len(updates) > 0 {
		if err := l.db.WithContext(ctx).Model(&member).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return &member, nil
}

func (l *Ledger) recordAudit(externalID string, day time.Time, outcome OutcomeKind, sourceIP string) {
	if l.audit != nil {
		l.audit.Record(externalID, day, outcome, sourceIP)
	}
}

// recordExists checks for an existing record for (member, day) inside a
// transaction. Fast path only; the unique index closes the race.
func recordExists(tx *gorm.DB, memberID uint, day time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.AttendanceRecord{}).
		Where("member_id = ? AND day = ?", memberID, datatypes.Date(day)).
		Count(&count).Error
	return count > 0, err
}
