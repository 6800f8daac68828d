package qualifications

import (
	"context"
	"time"

	"sentinel-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service tracks who holds which named qualifications, plus the legacy
// "Lockup" tag join kept for backward compatibility. Lockup eligibility is
// the union of the two sources; callers never see which one granted it.
type Service struct {
	DB *gorm.DB
}

// EligibleMember is a lockup-eligible member with the qualification codes
// that made them eligible (empty for legacy-tag-only members).
type EligibleMember struct {
	Member         domain.Member
	Qualifications []QualificationSummary
}

type QualificationSummary struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CanReceiveLockup reports whether the member holds at least one
// currently-valid qualification flagged canReceiveLockup, or the legacy
// "Lockup" tag. Either source alone is sufficient.
func (s *Service) CanReceiveLockup(ctx context.Context, memberID uuid.UUID) (bool, error) {
	now := time.Now()

	var count int64
	err := s.DB.WithContext(ctx).
		Model(&domain.MemberQualification{}).
		Joins("JOIN qualification_types ON qualification_types.id = member_qualifications.qualification_type_id").
		Where("member_qualifications.member_id = ?", memberID).
		Where("member_qualifications.status = ?", domain.QualificationActive).
		Where("member_qualifications.revoked_at IS NULL").
		Where("member_qualifications.expires_at IS NULL OR member_qualifications.expires_at > ?", now).
		Where("qualification_types.can_receive_lockup = ?", true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = s.DB.WithContext(ctx).
		Model(&domain.MemberTag{}).
		Joins("JOIN tags ON tags.id = member_tags.tag_id").
		Where("member_tags.member_id = ? AND tags.name = ?", memberID, domain.LockupTagName).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LockupEligibleMembers returns every member eligible to receive lockup
// responsibility, from either eligibility source, deduplicated.
func (s *Service) LockupEligibleMembers(ctx context.Context) ([]EligibleMember, error) {
	now := time.Now()

	var grants []domain.MemberQualification
	err := s.DB.WithContext(ctx).
		Preload("Type").
		Joins("JOIN qualification_types ON qualification_types.id = member_qualifications.qualification_type_id").
		Where("member_qualifications.status = ?", domain.QualificationActive).
		Where("member_qualifications.revoked_at IS NULL").
		Where("member_qualifications.expires_at IS NULL OR member_qualifications.expires_at > ?", now).
		Where("qualification_types.can_receive_lockup = ?", true).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}

	quals := make(map[uuid.UUID][]QualificationSummary)
	for _, g := range grants {
		summary := QualificationSummary{}
		if g.Type != nil {
			summary.Code = g.Type.Code
			summary.Name = g.Type.Name
		}
		quals[g.MemberID] = append(quals[g.MemberID], summary)
	}

	var tagged []domain.MemberTag
	err = s.DB.WithContext(ctx).
		Joins("JOIN tags ON tags.id = member_tags.tag_id").
		Where("tags.name = ?", domain.LockupTagName).
		Find(&tagged).Error
	if err != nil {
		return nil, err
	}
	for _, t := range tagged {
		if _, ok := quals[t.MemberID]; !ok {
			quals[t.MemberID] = []QualificationSummary{}
		}
	}

	if len(quals) == 0 {
		return []EligibleMember{}, nil
	}

	ids := make([]uuid.UUID, 0, len(quals))
	for id := range quals {
		ids = append(ids, id)
	}
	var members []domain.Member
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Order("last_name ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	out := make([]EligibleMember, 0, len(members))
	for _, m := range members {
		out = append(out, EligibleMember{Member: m, Qualifications: quals[m.ID]})
	}
	return out, nil
}

// Grant creates an active qualification grant for a member.
func (s *Service) Grant(ctx context.Context, memberID uuid.UUID, typeCode string, expiresAt *time.Time) (*domain.MemberQualification, error) {
	var member domain.Member
	if err := s.DB.WithContext(ctx).Select("id").First(&member, "id = ?", memberID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("Member %s not found", memberID)
		}
		return nil, err
	}

	var qtype domain.QualificationType
	if err := s.DB.WithContext(ctx).First(&qtype, "code = ?", typeCode).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("Qualification type %s not found", typeCode)
		}
		return nil, err
	}

	grant := &domain.MemberQualification{
		MemberID:            memberID,
		QualificationTypeID: qtype.ID,
		Status:              domain.QualificationActive,
		GrantedAt:           time.Now(),
		ExpiresAt:           expiresAt,
	}
	if err := s.DB.WithContext(ctx).Create(grant).Error; err != nil {
		return nil, err
	}
	grant.Type = &qtype
	return grant, nil
}

// Revoke marks every active grant of the given type as revoked. Grants are
// never deleted.
func (s *Service) Revoke(ctx context.Context, memberID uuid.UUID, typeCode string) error {
	var qtype domain.QualificationType
	if err := s.DB.WithContext(ctx).First(&qtype, "code = ?", typeCode).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.NotFound("Qualification type %s not found", typeCode)
		}
		return err
	}

	now := time.Now()
	res := s.DB.WithContext(ctx).
		Model(&domain.MemberQualification{}).
		Where("member_id = ? AND qualification_type_id = ? AND status = ?", memberID, qtype.ID, domain.QualificationActive).
		Updates(map[string]interface{}{"status": domain.QualificationRevoked, "revoked_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Member %s has no active %s qualification", memberID, typeCode)
	}
	return nil
}

// ListForMember returns all grants for a member, newest first.
func (s *Service) ListForMember(ctx context.Context, memberID uuid.UUID) ([]domain.MemberQualification, error) {
	var grants []domain.MemberQualification
	err := s.DB.WithContext(ctx).
		Preload("Type").
		Where("member_id = ?", memberID).
		Order("granted_at DESC").
		Find(&grants).Error
	return grants, err
}

// ListTypes returns all qualification types.
func (s *Service) ListTypes(ctx context.Context) ([]domain.QualificationType, error) {
	var types []domain.QualificationType
	err := s.DB.WithContext(ctx).Order("code ASC").Find(&types).Error
	return types, err
}
