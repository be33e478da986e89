package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attendance status constants
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
)

// ValidStatus reports whether s is a known attendance status.
func ValidStatus(s string) bool {
	return s == StatusPresent || s == StatusLate || s == StatusAbsent
}

// Member corresponds to the members table. One row per roster participant.
// ExternalID is the stable identity supplied by the transport (e.g. a chat
// user id) and is never changed after creation. Display fields are
// last-write-wins on subsequent check-ins. Members are never hard-deleted;
// IsActive is the soft-delete flag.
type Member struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID string    `gorm:"type:varchar(64);not null;unique" json:"external_id"`
	Username   string    `gorm:"type:varchar(255);not null;default:''" json:"username"`
	FullName   string    `gorm:"type:varchar(255);not null;default:''" json:"full_name"`
	IsActive   bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AttendanceRecord corresponds to the attendance_records table.
// The composite unique index on (member_id, day) is the authoritative guard
// for the at-most-one-record-per-member-per-day invariant; application-level
// existence checks are only a fast path.
type AttendanceRecord struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID    uint           `gorm:"not null;uniqueIndex:idx_attendance_member_day,priority:1" json:"member_id"`
	Day         datatypes.Date `gorm:"not null;uniqueIndex:idx_attendance_member_day,priority:2;index" json:"day"`
	Status      string         `gorm:"type:varchar(20);not null" json:"status"`
	CheckedInAt *time.Time     `json:"checked_in_at"` // nil for absent records
	CreatedAt   time.Time      `json:"created_at"`
}

// Fine corresponds to the fines table. Amount is captured from the fine
// policy at creation time; later policy changes never rewrite existing rows.
type Fine struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID  uint           `gorm:"not null;index:idx_fines_member_day,priority:1" json:"member_id"`
	Day       datatypes.Date `gorm:"not null;index:idx_fines_member_day,priority:2;index" json:"day"`
	Amount    float64        `gorm:"not null" json:"amount"`
	CreatedAt time.Time      `json:"created_at"`
}

// SystemSetting corresponds to the system_settings table.
type SystemSetting struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	SettingKey   string    `gorm:"type:varchar(255);not null;unique" json:"setting_key"`
	SettingValue string    `gorm:"type:text;not null" json:"setting_value"`
	Description  string    `gorm:"type:varchar(512)" json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckinLog corresponds to the checkin_logs table. It is an append-only
// audit trail of check-in attempts, written best-effort outside the ledger
// transaction.
type CheckinLog struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
	ExternalID string    `gorm:"type:varchar(64);not null;index" json:"external_id"`
	Day        string    `gorm:"type:char(10);not null;index" json:"day"`
	Outcome    string    `gorm:"type:varchar(32);not null" json:"outcome"`
	SourceIP   string    `gorm:"type:varchar(64)" json:"source_ip"`
}

// DisplayName returns the best available human-readable name for the member.
func (m *Member) DisplayName() string {
	if m.FullName != "" {
		return m.FullName
	}
	if m.Username != "" {
		return "@" + m.Username
	}
	return "Member " + m.ExternalID
}
