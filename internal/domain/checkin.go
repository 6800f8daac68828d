package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Check-in directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Check-in methods.
const (
	MethodBadge  = "badge"
	MethodPin    = "pin"
	MethodManual = "manual"
	MethodSystem = "system"
)

// KioskLockupCheckout marks synthetic checkouts written by the lockup
// execution batch so reports can tell them from badge scans.
const KioskLockupCheckout = "lockup-checkout"

// KioskSystem marks checkouts written by the daily reset job.
const KioskSystem = "SYSTEM"

// Checkin is one scan event. Presence is derived from the latest row per
// member per day, never stored.
type Checkin struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MemberID  uuid.UUID `gorm:"column:member_id;type:uuid;not null;index" json:"memberId"`
	BadgeID   string    `gorm:"column:badge_id" json:"badgeId"`
	Direction string    `gorm:"column:direction;type:varchar(3);not null" json:"direction"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	KioskID   string    `gorm:"column:kiosk_id" json:"kioskId"`
	Method    string    `gorm:"column:method;type:varchar(10);default:'badge'" json:"method"`
	Synced    bool      `gorm:"column:synced;default:true" json:"synced"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`

	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (Checkin) TableName() string { return "checkins" }

func (c *Checkin) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Visitor sign-ins are a separate sheet from member check-ins. A visitor is
// active while CheckOutTime is null.
type Visitor struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;not null" json:"name"`
	Organization string     `gorm:"column:organization" json:"organization"`
	VisitType    string     `gorm:"column:visit_type" json:"visitType"`
	CheckInTime  time.Time  `gorm:"column:check_in_time;not null" json:"checkInTime"`
	CheckOutTime *time.Time `gorm:"column:check_out_time;index" json:"checkOutTime"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (Visitor) TableName() string { return "visitors" }

func (v *Visitor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// MissedCheckout records a member the daily reset had to force out.
type MissedCheckout struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MemberID          uuid.UUID `gorm:"column:member_id;type:uuid;not null;index" json:"memberId"`
	Date              time.Time `gorm:"column:date;not null" json:"date"`
	OriginalCheckinAt time.Time `gorm:"column:original_checkin_at;not null" json:"originalCheckinAt"`
	ResolvedBy        string    `gorm:"column:resolved_by;default:'daily_reset'" json:"resolvedBy"`
	Notes             string    `gorm:"column:notes" json:"notes"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (MissedCheckout) TableName() string { return "missed_checkouts" }

func (m *MissedCheckout) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
