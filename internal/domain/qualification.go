package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Qualification statuses.
const (
	QualificationActive  = "active"
	QualificationRevoked = "revoked"
)

// LockupTagName is the legacy member<->tag join that grants lockup
// eligibility. Kept alongside the typed qualification system for
// backward compatibility; either source is sufficient.
const LockupTagName = "Lockup"

// QualificationType is a named qualification (DDS Qualified, SWK Qualified,
// Building Authorized, ...). CanReceiveLockup marks the types that count
// toward lockup eligibility.
type QualificationType struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code             string    `gorm:"column:code;uniqueIndex;not null" json:"code"`
	Name             string    `gorm:"column:name;not null" json:"name"`
	CanReceiveLockup bool      `gorm:"column:can_receive_lockup;default:false" json:"canReceiveLockup"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (QualificationType) TableName() string { return "qualification_types" }

func (q *QualificationType) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// MemberQualification is a grant of a qualification type to a member.
// Created by grant, mutated by revoke, never deleted.
type MemberQualification struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MemberID            uuid.UUID  `gorm:"column:member_id;type:uuid;not null;index" json:"memberId"`
	QualificationTypeID uuid.UUID  `gorm:"column:qualification_type_id;type:uuid;not null;index" json:"qualificationTypeId"`
	Status              string     `gorm:"column:status;type:varchar(10);default:'active'" json:"status"`
	GrantedAt           time.Time  `gorm:"column:granted_at;not null" json:"grantedAt"`
	ExpiresAt           *time.Time `gorm:"column:expires_at" json:"expiresAt"`
	RevokedAt           *time.Time `gorm:"column:revoked_at" json:"revokedAt"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Type *QualificationType `gorm:"foreignKey:QualificationTypeID" json:"type,omitempty"`
}

func (MemberQualification) TableName() string { return "member_qualifications" }

func (q *MemberQualification) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// CurrentlyValid reports whether the grant is in force at now.
func (q *MemberQualification) CurrentlyValid(now time.Time) bool {
	if q.Status != QualificationActive || q.RevokedAt != nil {
		return false
	}
	if q.ExpiresAt != nil && !q.ExpiresAt.After(now) {
		return false
	}
	return true
}

// Tag is the legacy label system predating typed qualifications.
type Tag struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"column:color" json:"color"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Tag) TableName() string { return "tags" }

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type MemberTag struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MemberID  uuid.UUID `gorm:"column:member_id;type:uuid;not null;index" json:"memberId"`
	TagID     uuid.UUID `gorm:"column:tag_id;type:uuid;not null;index" json:"tagId"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (MemberTag) TableName() string { return "member_tags" }

func (t *MemberTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
