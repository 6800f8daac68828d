package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Building statuses. Only the execute operation advances them.
const (
	BuildingOpen      = "open"
	BuildingLockingUp = "locking_up"
	BuildingSecured   = "secured"
)

// LockupStatus is the per-operational-day singleton for lockup
// responsibility. One row per date, created lazily, mutated in place,
// never deleted. CurrentHolderID is non-nil iff AcquiredAt is non-nil.
type LockupStatus struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Date            time.Time  `gorm:"column:date;uniqueIndex;not null" json:"date"`
	BuildingStatus  string     `gorm:"column:building_status;type:varchar(12);default:'open'" json:"buildingStatus"`
	CurrentHolderID *uuid.UUID `gorm:"column:current_holder_id;type:uuid" json:"currentHolderId"`
	AcquiredAt      *time.Time `gorm:"column:acquired_at" json:"acquiredAt"`
	SecuredAt       *time.Time `gorm:"column:secured_at" json:"securedAt"`
	SecuredBy       *uuid.UUID `gorm:"column:secured_by;type:uuid" json:"securedBy"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	CurrentHolder   *Member `gorm:"foreignKey:CurrentHolderID" json:"currentHolder,omitempty"`
	SecuredByMember *Member `gorm:"foreignKey:SecuredBy" json:"securedByMember,omitempty"`
}

func (LockupStatus) TableName() string { return "lockup_statuses" }

func (s *LockupStatus) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Held reports whether the day currently has a responsibility holder.
func (s *LockupStatus) Held() bool {
	return s.CurrentHolderID != nil
}

// LockupTransfer records one holder-to-holder handoff.
type LockupTransfer struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LockupStatusID uuid.UUID `gorm:"column:lockup_status_id;type:uuid;not null;index" json:"lockupStatusId"`
	FromMemberID   uuid.UUID `gorm:"column:from_member_id;type:uuid;not null" json:"fromMemberId"`
	ToMemberID     uuid.UUID `gorm:"column:to_member_id;type:uuid;not null" json:"toMemberId"`
	TransferredAt  time.Time `gorm:"column:transferred_at;not null;index" json:"transferredAt"`
	Reason         string    `gorm:"column:reason;not null" json:"reason"`
	Notes          *string   `gorm:"column:notes" json:"notes"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"createdAt"`

	FromMember *Member `gorm:"foreignKey:FromMemberID" json:"fromMember,omitempty"`
	ToMember   *Member `gorm:"foreignKey:ToMemberID" json:"toMember,omitempty"`
}

func (LockupTransfer) TableName() string { return "lockup_transfers" }

func (t *LockupTransfer) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// LockupExecution records one exercise of the responsibility: the mass
// checkout that secures the building. The checked-out snapshots are stored
// as JSON {id, name} lists for the history feed.
type LockupExecution struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	LockupStatusID     uuid.UUID      `gorm:"column:lockup_status_id;type:uuid;not null;index" json:"lockupStatusId"`
	ExecutedBy         uuid.UUID      `gorm:"column:executed_by;type:uuid;not null" json:"executedBy"`
	ExecutedAt         time.Time      `gorm:"column:executed_at;not null;index" json:"executedAt"`
	MembersCheckedOut  datatypes.JSON `gorm:"column:members_checked_out" json:"membersCheckedOut"`
	VisitorsCheckedOut datatypes.JSON `gorm:"column:visitors_checked_out" json:"visitorsCheckedOut"`
	TotalCheckedOut    int            `gorm:"column:total_checked_out;not null" json:"totalCheckedOut"`
	Notes              *string        `gorm:"column:notes" json:"notes"`
	CreatedAt          time.Time      `gorm:"column:created_at" json:"createdAt"`

	ExecutedByMember *Member `gorm:"foreignKey:ExecutedBy" json:"executedByMember,omitempty"`
}

func (LockupExecution) TableName() string { return "lockup_executions" }

func (e *LockupExecution) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
