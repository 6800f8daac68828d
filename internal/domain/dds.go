package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DDS assignment statuses. At most one pending/active row per assigned date.
const (
	DdsPending     = "pending"
	DdsActive      = "active"
	DdsTransferred = "transferred"
	DdsReleased    = "released"
)

// DdsAssignment is the Duty Day Staff designation for one operational day.
// Rows are versioned: a transfer closes the old row and creates a new one.
// The partial unique index lets closed rows pile up per day while the
// database arbitrates concurrent writers of the single open row.
type DdsAssignment struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MemberID      uuid.UUID  `gorm:"column:member_id;type:uuid;not null;index" json:"memberId"`
	AssignedDate  time.Time  `gorm:"column:assigned_date;not null;index;index:idx_dds_open_day,unique,where:status = 'pending' OR status = 'active'" json:"assignedDate"`
	Status        string     `gorm:"column:status;type:varchar(12);default:'pending'" json:"status"`
	AssignedBy    string     `gorm:"column:assigned_by" json:"assignedBy"`
	AcceptedAt    *time.Time `gorm:"column:accepted_at" json:"acceptedAt"`
	ReleasedAt    *time.Time `gorm:"column:released_at" json:"releasedAt"`
	TransferredTo *uuid.UUID `gorm:"column:transferred_to;type:uuid" json:"transferredTo"`
	Notes         *string    `gorm:"column:notes" json:"notes"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (DdsAssignment) TableName() string { return "dds_assignments" }

func (a *DdsAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
