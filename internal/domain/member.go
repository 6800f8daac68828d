package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member is the unit nominal roll. CRUD for members lives outside this
// service; the model is here so presence, eligibility and responsibility
// lookups can resolve names and verify existence.
type Member struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ServiceNumber string     `gorm:"column:service_number;uniqueIndex;not null" json:"serviceNumber"`
	FirstName     string     `gorm:"column:first_name;not null" json:"firstName"`
	LastName      string     `gorm:"column:last_name;not null" json:"lastName"`
	Rank          string     `gorm:"column:rank;not null" json:"rank"`
	DivisionID    *uuid.UUID `gorm:"column:division_id;type:uuid" json:"divisionId"`
	MemberType    string     `gorm:"column:member_type;type:varchar(20);default:'class_a'" json:"memberType"`
	BadgeID       *string    `gorm:"column:badge_id" json:"badgeId"`
	PinHash       *string    `gorm:"column:pin_hash" json:"-"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Division *Division `gorm:"foreignKey:DivisionID" json:"division,omitempty"`
}

func (Member) TableName() string { return "members" }

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// FullName is the "Rank First Last" display form used in audit snapshots.
func (m *Member) FullName() string {
	return m.Rank + " " + m.FirstName + " " + m.LastName
}

type Division struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Code      string    `gorm:"column:code;uniqueIndex;not null" json:"code"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Division) TableName() string { return "divisions" }

func (d *Division) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// MemberSummary is the denormalized holder/recipient projection embedded in
// lockup and DDS responses.
type MemberSummary struct {
	ID            uuid.UUID `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Rank          string    `json:"rank"`
	ServiceNumber string    `json:"serviceNumber"`
}

func (m *Member) Summary() MemberSummary {
	return MemberSummary{
		ID:            m.ID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Rank:          m.Rank,
		ServiceNumber: m.ServiceNumber,
	}
}
