package dds

import (
	"context"
	"time"

	"sentinel-backend/internal/application/lockup"
	"sentinel-backend/internal/domain"
	"sentinel-backend/internal/pkg/dates"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns the duty-day supervisor (DDS) workflow: at most one pending
// or active assignment per operational day. Pending rows come from the
// schedule and wait for the member to accept; active rows carry the duty.
type Service struct {
	DB           *gorm.DB
	Lockup       *lockup.Service
	DayStartHour int
}

// AssignmentView is the API projection of a DDS assignment.
type AssignmentView struct {
	ID           uuid.UUID             `json:"id"`
	Member       *domain.MemberSummary `json:"member"`
	AssignedDate string                `json:"assignedDate"`
	Status       string                `json:"status"`
	AssignedBy   string                `json:"assignedBy"`
	AcceptedAt   *time.Time            `json:"acceptedAt"`
	ReleasedAt   *time.Time            `json:"releasedAt"`
	Notes        *string               `json:"notes"`
}

func (s *Service) dayStartHour() int {
	if s.DayStartHour == 0 {
		return dates.DefaultDayStartHour
	}
	return s.DayStartHour
}

// Today returns the current operational date.
func (s *Service) Today() time.Time {
	return dates.OperationalDate(time.Now(), s.dayStartHour())
}

func view(a *domain.DdsAssignment) *AssignmentView {
	v := &AssignmentView{
		ID:           a.ID,
		AssignedDate: a.AssignedDate.Format("2006-01-02"),
		Status:       a.Status,
		AssignedBy:   a.AssignedBy,
		AcceptedAt:   a.AcceptedAt,
		ReleasedAt:   a.ReleasedAt,
		Notes:        a.Notes,
	}
	if a.Member != nil {
		summary := a.Member.Summary()
		v.Member = &summary
	}
	return v
}

// openAssignment returns today's pending or active row, if any.
func (s *Service) openAssignment(ctx context.Context, db *gorm.DB, date time.Time) (*domain.DdsAssignment, error) {
	var assignment domain.DdsAssignment
	err := db.WithContext(ctx).Preload("Member").
		Where("assigned_date = ? AND status IN ?", date, []string{domain.DdsPending, domain.DdsActive}).
		First(&assignment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// handoffLockup moves lockup responsibility to the member who just took the
// duty. Best effort: a vacant building, an unqualified or absent member, or
// a member who already holds it leaves the acceptance standing as-is.
func (s *Service) handoffLockup(ctx context.Context, memberID uuid.UUID) {
	if s.Lockup == nil {
		return
	}
	_, _ = s.Lockup.Transfer(ctx, memberID, lockup.TransferReasonDDSHandoff, nil)
}

// insertOpen writes a new pending or active row. The partial unique index on
// assigned_date arbitrates concurrent writers: the loser's insert fails and
// it reports the conflict it would have seen reading after the winner.
func (s *Service) insertOpen(ctx context.Context, tx *gorm.DB, assignment *domain.DdsAssignment) error {
	if err := tx.Create(assignment).Error; err != nil {
		if existing, rereadErr := s.openAssignment(ctx, tx, assignment.AssignedDate); rereadErr == nil && existing != nil {
			return domain.Conflict("A DDS is already assigned for %s", assignment.AssignedDate.Format("2006-01-02"))
		}
		return err
	}
	return nil
}

func findMember(ctx context.Context, db *gorm.DB, memberID uuid.UUID) (*domain.Member, error) {
	var member domain.Member
	if err := db.WithContext(ctx).First(&member, "id = ?", memberID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("Member %s not found", memberID)
		}
		return nil, err
	}
	return &member, nil
}

// Current returns today's open assignment or nil.
func (s *Service) Current(ctx context.Context) (*AssignmentView, error) {
	assignment, err := s.openAssignment(ctx, s.DB, s.Today())
	if err != nil || assignment == nil {
		return nil, err
	}
	return view(assignment), nil
}

// Exists reports whether today has an open assignment.
func (s *Service) Exists(ctx context.Context) (bool, error) {
	assignment, err := s.openAssignment(ctx, s.DB, s.Today())
	if err != nil {
		return false, err
	}
	return assignment != nil, nil
}

// Assign creates an active assignment for today by admin action. Conflicts
// with any open assignment.
func (s *Service) Assign(ctx context.Context, memberID uuid.UUID, assignedBy string, notes *string) (*AssignmentView, error) {
	if assignedBy == "" {
		assignedBy = domain.PerformerAdmin
	}
	today := s.Today()
	var assignment *domain.DdsAssignment

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findMember(ctx, tx, memberID); err != nil {
			return err
		}
		existing, err := s.openAssignment(ctx, tx, today)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Conflict("A DDS is already assigned for %s", today.Format("2006-01-02"))
		}

		now := time.Now()
		assignment = &domain.DdsAssignment{
			MemberID:     memberID,
			AssignedDate: today,
			Status:       domain.DdsActive,
			AssignedBy:   assignedBy,
			AcceptedAt:   &now,
			Notes:        notes,
		}
		if err := s.insertOpen(ctx, tx, assignment); err != nil {
			return err
		}

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        memberID,
			TagName:         domain.AuditDomainDDS,
			Action:          domain.ActionAssigned,
			ToMemberID:      &memberID,
			PerformedByType: domain.PerformerAdmin,
			Notes:           notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, assignment.ID)
}

// SchedulePending writes a pending assignment for a date, to be accepted by
// the member on check-in. Used by the schedule import and the reset job.
func (s *Service) SchedulePending(ctx context.Context, memberID uuid.UUID, date time.Time, assignedBy string) (*AssignmentView, error) {
	if assignedBy == "" {
		assignedBy = domain.PerformerSystem
	}
	date = dates.Midnight(date)
	var assignment *domain.DdsAssignment

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findMember(ctx, tx, memberID); err != nil {
			return err
		}
		existing, err := s.openAssignment(ctx, tx, date)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Conflict("A DDS is already assigned for %s", date.Format("2006-01-02"))
		}
		assignment = &domain.DdsAssignment{
			MemberID:     memberID,
			AssignedDate: date,
			Status:       domain.DdsPending,
			AssignedBy:   assignedBy,
		}
		return s.insertOpen(ctx, tx, assignment)
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, assignment.ID)
}

// Accept is the member's self-acceptance of the duty, typically from a
// kiosk. With no open assignment it creates an active one for the caller.
// Any existing open assignment, the caller's own pending one included,
// conflicts; pending rows are only promoted by the check-in gating path.
func (s *Service) Accept(ctx context.Context, memberID uuid.UUID, notes *string) (*AssignmentView, error) {
	today := s.Today()
	var assignmentID uuid.UUID

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findMember(ctx, tx, memberID); err != nil {
			return err
		}
		existing, err := s.openAssignment(ctx, tx, today)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.Conflict("A DDS is already assigned for %s", today.Format("2006-01-02"))
		}
		now := time.Now()

		assignment := &domain.DdsAssignment{
			MemberID:     memberID,
			AssignedDate: today,
			Status:       domain.DdsActive,
			AssignedBy:   domain.PerformerMember,
			AcceptedAt:   &now,
			Notes:        notes,
		}
		if err := s.insertOpen(ctx, tx, assignment); err != nil {
			return err
		}
		assignmentID = assignment.ID

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        memberID,
			TagName:         domain.AuditDomainDDS,
			Action:          domain.ActionSelfAccepted,
			ToMemberID:      &memberID,
			PerformedBy:     &memberID,
			PerformedByType: domain.PerformerMember,
			Notes:           notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.handoffLockup(ctx, memberID)
	return s.reload(ctx, assignmentID)
}

// AcceptPending activates a specific member's pending assignment for today.
// Returns NOT_FOUND when no such pending row exists. Used by the check-in
// gating hook.
func (s *Service) AcceptPending(ctx context.Context, memberID uuid.UUID) (*AssignmentView, error) {
	today := s.Today()
	var assignmentID uuid.UUID

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending domain.DdsAssignment
		err := tx.WithContext(ctx).
			Where("assigned_date = ? AND member_id = ? AND status = ?", today, memberID, domain.DdsPending).
			First(&pending).Error
		if err == gorm.ErrRecordNotFound {
			return domain.NotFound("No pending DDS assignment for member %s", memberID)
		}
		if err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&domain.DdsAssignment{}).Where("id = ? AND status = ?", pending.ID, domain.DdsPending).
			Updates(map[string]interface{}{"status": domain.DdsActive, "accepted_at": now}).Error; err != nil {
			return err
		}
		assignmentID = pending.ID

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        memberID,
			TagName:         domain.AuditDomainDDS,
			Action:          domain.ActionAccepted,
			ToMemberID:      &memberID,
			PerformedBy:     &memberID,
			PerformedByType: domain.PerformerSystem,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	s.handoffLockup(ctx, memberID)
	return s.reload(ctx, assignmentID)
}

// Transfer closes the current open assignment and opens an active one for
// the new member in the same transaction, so there is never a moment with
// two open rows or none recorded.
func (s *Service) Transfer(ctx context.Context, toMemberID uuid.UUID, notes *string) (*AssignmentView, error) {
	today := s.Today()
	var assignmentID uuid.UUID

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findMember(ctx, tx, toMemberID); err != nil {
			return err
		}
		existing, err := s.openAssignment(ctx, tx, today)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.NotFound("No DDS assignment to transfer")
		}
		if existing.MemberID == toMemberID {
			return domain.Conflict("Member %s already holds the DDS assignment", toMemberID)
		}
		fromMemberID := existing.MemberID

		now := time.Now()
		if err := tx.Model(&domain.DdsAssignment{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"status":         domain.DdsTransferred,
			"released_at":    now,
			"transferred_to": toMemberID,
		}).Error; err != nil {
			return err
		}

		next := &domain.DdsAssignment{
			MemberID:     toMemberID,
			AssignedDate: today,
			Status:       domain.DdsActive,
			AssignedBy:   domain.PerformerMember,
			AcceptedAt:   &now,
			Notes:        notes,
		}
		if err := s.insertOpen(ctx, tx, next); err != nil {
			return err
		}
		assignmentID = next.ID

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        toMemberID,
			TagName:         domain.AuditDomainDDS,
			Action:          domain.ActionTransferred,
			FromMemberID:    &fromMemberID,
			ToMemberID:      &toMemberID,
			PerformedBy:     &fromMemberID,
			PerformedByType: domain.PerformerMember,
			Notes:           notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, assignmentID)
}

// Release closes today's open assignment without a successor.
func (s *Service) Release(ctx context.Context, notes *string) (*AssignmentView, error) {
	today := s.Today()
	var assignmentID uuid.UUID

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.openAssignment(ctx, tx, today)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.NotFound("No DDS assignment to release")
		}

		now := time.Now()
		if err := tx.Model(&domain.DdsAssignment{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"status":      domain.DdsReleased,
			"released_at": now,
		}).Error; err != nil {
			return err
		}
		assignmentID = existing.ID

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        existing.MemberID,
			TagName:         domain.AuditDomainDDS,
			Action:          domain.ActionReleased,
			FromMemberID:    &existing.MemberID,
			PerformedBy:     &existing.MemberID,
			PerformedByType: domain.PerformerMember,
			Notes:           notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, assignmentID)
}

// AuditLog returns the newest DDS audit entries.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]domain.ResponsibilityAuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []domain.ResponsibilityAuditLog
	err := s.DB.WithContext(ctx).
		Where("tag_name = ?", domain.AuditDomainDDS).
		Order("created_at DESC").Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (s *Service) reload(ctx context.Context, id uuid.UUID) (*AssignmentView, error) {
	var assignment domain.DdsAssignment
	if err := s.DB.WithContext(ctx).Preload("Member").First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return view(&assignment), nil
}
