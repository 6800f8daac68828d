package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit domains (TagName column, kept from the legacy tag era).
const (
	AuditDomainLockup = "Lockup"
	AuditDomainDDS    = "DDS"
)

// Audit actions.
const (
	ActionAssigned     = "assigned"
	ActionAccepted     = "accepted"
	ActionSelfAccepted = "self_accepted"
	ActionTransferred  = "transferred"
	ActionReleased     = "released"
	ActionExecuted     = "executed"
)

// Performer types.
const (
	PerformerAdmin  = "admin"
	PerformerMember = "member"
	PerformerSystem = "system"
)

// ResponsibilityAuditLog is the append-only trail of every responsibility
// transition. Rows are never updated or deleted; reporting reads them,
// nothing else does.
type ResponsibilityAuditLog struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MemberID        uuid.UUID  `gorm:"column:member_id;type:uuid;not null;index" json:"memberId"`
	TagName         string     `gorm:"column:tag_name;type:varchar(10);not null;index" json:"tagName"`
	Action          string     `gorm:"column:action;not null" json:"action"`
	FromMemberID    *uuid.UUID `gorm:"column:from_member_id;type:uuid" json:"fromMemberId"`
	ToMemberID      *uuid.UUID `gorm:"column:to_member_id;type:uuid" json:"toMemberId"`
	PerformedBy     *uuid.UUID `gorm:"column:performed_by;type:uuid" json:"performedBy"`
	PerformedByType string     `gorm:"column:performed_by_type;type:varchar(10);not null" json:"performedByType"`
	Notes           *string    `gorm:"column:notes" json:"notes"`
	CreatedAt       time.Time  `gorm:"column:created_at;index" json:"createdAt"`
}

func (ResponsibilityAuditLog) TableName() string { return "responsibility_audit_logs" }

func (l *ResponsibilityAuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
