package lockup

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"sentinel-backend/internal/application/presence"
	"sentinel-backend/internal/application/qualifications"
	"sentinel-backend/internal/domain"
	"sentinel-backend/internal/pkg/dates"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transfer reason classifications recorded on LockupTransfer rows.
const (
	TransferReasonManual     = "manual"
	TransferReasonDDSHandoff = "dds_handoff"
)

// Service owns the per-day lockup responsibility state machine: exactly one
// qualified, present holder at a time, whose exercise of the responsibility
// (execute) closes out the building. Every transition appends to the
// responsibility audit trail in the same transaction.
type Service struct {
	DB             *gorm.DB
	Qualifications *qualifications.Service
	Presence       *presence.Service
	DayStartHour   int
}

// StatusView is the day status projection returned by the API.
type StatusView struct {
	ID             uuid.UUID             `json:"id"`
	Date           string                `json:"date"`
	BuildingStatus string                `json:"buildingStatus"`
	CurrentHolder  *domain.MemberSummary `json:"currentHolder"`
	AcquiredAt     *time.Time            `json:"acquiredAt"`
	SecuredAt      *time.Time            `json:"securedAt"`
	SecuredBy      *uuid.UUID            `json:"securedBy"`
	IsActive       bool                  `json:"isActive"`
}

// CheckedOutEntry is one member or visitor closed by an execution.
type CheckedOutEntry struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ExecuteStats are the counts returned by the execute operation.
type ExecuteStats struct {
	MembersCheckedOut  int `json:"membersCheckedOut"`
	VisitorsCheckedOut int `json:"visitorsCheckedOut"`
	TotalCheckedOut    int `json:"totalCheckedOut"`
}

// ExecuteResult is the outcome of a building lockup.
type ExecuteResult struct {
	Stats      ExecuteStats `json:"stats"`
	CheckedOut struct {
		Members  []CheckedOutEntry `json:"members"`
		Visitors []CheckedOutEntry `json:"visitors"`
	} `json:"checkedOut"`
	AuditLogID uuid.UUID `json:"auditLogId"`
}

// Recipient is an eligible transfer target shown in checkout options.
type Recipient struct {
	domain.MemberSummary
	Qualifications []qualifications.QualificationSummary `json:"qualifications"`
}

// CheckoutOptions answers "what can this member do at the checkout kiosk".
type CheckoutOptions struct {
	MemberID           uuid.UUID   `json:"memberId"`
	HoldsLockup        bool        `json:"holdsLockup"`
	CanCheckout        bool        `json:"canCheckout"`
	BlockReason        *string     `json:"blockReason"`
	AvailableOptions   []string    `json:"availableOptions"`
	EligibleRecipients []Recipient `json:"eligibleRecipients,omitempty"`
}

// HistoryItem is one entry of the merged transfer/execution feed.
type HistoryItem struct {
	ID                 uuid.UUID             `json:"id"`
	Type               string                `json:"type"`
	FromMember         *domain.MemberSummary `json:"fromMember,omitempty"`
	ToMember           *domain.MemberSummary `json:"toMember,omitempty"`
	ExecutedBy         *domain.MemberSummary `json:"executedBy,omitempty"`
	MembersCheckedOut  int                   `json:"membersCheckedOut,omitempty"`
	VisitorsCheckedOut int                   `json:"visitorsCheckedOut,omitempty"`
	TotalCheckedOut    int                   `json:"totalCheckedOut,omitempty"`
	Reason             string                `json:"reason,omitempty"`
	Notes              *string               `json:"notes,omitempty"`
	Timestamp          time.Time             `json:"timestamp"`
}

// HistoryPage is a paginated history feed.
type HistoryPage struct {
	Items   []HistoryItem `json:"items"`
	Total   int64         `json:"total"`
	HasMore bool          `json:"hasMore"`
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

func (s *Service) presenceWindow() time.Time {
	return s.Today()
}

// GetOrCreateStatus finds the day's row or creates a fresh open/vacant one.
// The unique index on date arbitrates concurrent first readers: the loser's
// insert fails and it re-reads the winner's row.
func (s *Service) GetOrCreateStatus(ctx context.Context, db *gorm.DB, date time.Time) (*domain.LockupStatus, error) {
	date = dates.Midnight(date)
	var status domain.LockupStatus
	err := db.WithContext(ctx).Where("date = ?", date).First(&status).Error
	if err == nil {
		return &status, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	status = domain.LockupStatus{Date: date, BuildingStatus: domain.BuildingOpen}
	if createErr := db.WithContext(ctx).Create(&status).Error; createErr != nil {
		// Lost the creation race; the winner's row must exist now.
		var existing domain.LockupStatus
		if rereadErr := db.WithContext(ctx).Where("date = ?", date).First(&existing).Error; rereadErr != nil {
			return nil, createErr
		}
		return &existing, nil
	}
	return &status, nil
}

// Status returns the day's projection. Today's row is auto-created so a
// status poll never 404s; historical dates without a row do.
func (s *Service) Status(ctx context.Context, dateStr string) (*StatusView, error) {
	today := s.Today()

	if dateStr == "" {
		status, err := s.GetOrCreateStatus(ctx, s.DB, today)
		if err != nil {
			return nil, err
		}
		return s.statusView(ctx, status, today)
	}

	date, err := dates.ParseDate(dateStr)
	if err != nil {
		return nil, domain.BadRequest("Invalid date %q, expected YYYY-MM-DD", dateStr)
	}
	date = dates.Midnight(date)

	if date.Equal(today) {
		status, err := s.GetOrCreateStatus(ctx, s.DB, today)
		if err != nil {
			return nil, err
		}
		return s.statusView(ctx, status, today)
	}

	var status domain.LockupStatus
	if err := s.DB.WithContext(ctx).Where("date = ?", date).First(&status).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("No lockup status for %s", dateStr)
		}
		return nil, err
	}
	return s.statusView(ctx, &status, today)
}

func (s *Service) statusView(ctx context.Context, status *domain.LockupStatus, today time.Time) (*StatusView, error) {
	view := &StatusView{
		ID:             status.ID,
		Date:           status.Date.Format("2006-01-02"),
		BuildingStatus: status.BuildingStatus,
		AcquiredAt:     status.AcquiredAt,
		SecuredAt:      status.SecuredAt,
		SecuredBy:      status.SecuredBy,
		IsActive:       status.Date.Equal(today),
	}
	if status.CurrentHolderID != nil {
		var holder domain.Member
		if err := s.DB.WithContext(ctx).First(&holder, "id = ?", *status.CurrentHolderID).Error; err != nil {
			return nil, err
		}
		summary := holder.Summary()
		view.CurrentHolder = &summary
	}
	return view, nil
}

// findMember resolves a member or returns NOT_FOUND.
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

// checkRecipient runs the eligibility gate for an acquire/transfer target.
// The two checks are evaluated independently so callers can distinguish
// NOT_QUALIFIED from NOT_CHECKED_IN.
func (s *Service) checkRecipient(ctx context.Context, tx *gorm.DB, member *domain.Member) error {
	qualified, err := s.Qualifications.CanReceiveLockup(ctx, member.ID)
	if err != nil {
		return err
	}
	if !qualified {
		return domain.NotQualified("Member %s is not qualified to receive lockup responsibility", member.ID)
	}
	present, err := presence.IsMemberPresent(ctx, tx, member.ID, s.presenceWindow())
	if err != nil {
		return err
	}
	if !present {
		return domain.NotCheckedIn("Member %s must be checked in to receive lockup responsibility", member.ID)
	}
	return nil
}

// Acquire grants the vacant day's responsibility to a qualified, present
// member. Not idempotent: a second acquire, by anyone, reports ALREADY_HELD.
func (s *Service) Acquire(ctx context.Context, memberID uuid.UUID, notes *string) (*StatusView, error) {
	today := s.Today()
	var status *domain.LockupStatus

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		status, err = s.GetOrCreateStatus(ctx, tx, today)
		if err != nil {
			return err
		}
		if status.Held() {
			return domain.AlreadyHeld("Lockup for %s is already held", status.Date.Format("2006-01-02"))
		}

		member, err := findMember(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if err := s.checkRecipient(ctx, tx, member); err != nil {
			return err
		}

		now := time.Now()
		// Conditional update: only one racer can flip the holder from null.
		res := tx.Model(&domain.LockupStatus{}).
			Where("id = ? AND current_holder_id IS NULL", status.ID).
			Updates(map[string]interface{}{"current_holder_id": memberID, "acquired_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.AlreadyHeld("Lockup for %s is already held", status.Date.Format("2006-01-02"))
		}
		status.CurrentHolderID = &memberID
		status.AcquiredAt = &now

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        memberID,
			TagName:         domain.AuditDomainLockup,
			Action:          domain.ActionAssigned,
			ToMemberID:      &memberID,
			PerformedBy:     &memberID,
			PerformedByType: domain.PerformerMember,
			Notes:           notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.statusView(ctx, status, today)
}

// Transfer hands the responsibility from the current holder to another
// qualified, present member, recording the handoff.
func (s *Service) Transfer(ctx context.Context, toMemberID uuid.UUID, reason string, notes *string) (*StatusView, error) {
	if reason == "" {
		reason = TransferReasonManual
	}
	today := s.Today()
	var status *domain.LockupStatus

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		status, err = s.GetOrCreateStatus(ctx, tx, today)
		if err != nil {
			return err
		}
		if !status.Held() {
			return domain.NoActiveLockup(400, "No active lockup holder to transfer from")
		}
		fromMemberID := *status.CurrentHolderID

		toMember, err := findMember(ctx, tx, toMemberID)
		if err != nil {
			return err
		}
		if err := s.checkRecipient(ctx, tx, toMember); err != nil {
			return err
		}

		now := time.Now()
		// Swap only succeeds against the holder observed above.
		res := tx.Model(&domain.LockupStatus{}).
			Where("id = ? AND current_holder_id = ?", status.ID, fromMemberID).
			Updates(map[string]interface{}{"current_holder_id": toMemberID, "acquired_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.Conflict("Lockup holder changed during transfer")
		}
		status.CurrentHolderID = &toMemberID
		status.AcquiredAt = &now

		if err := tx.Create(&domain.LockupTransfer{
			LockupStatusID: status.ID,
			FromMemberID:   fromMemberID,
			ToMemberID:     toMemberID,
			TransferredAt:  now,
			Reason:         reason,
			Notes:          notes,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        toMemberID,
			TagName:         domain.AuditDomainLockup,
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
	return s.statusView(ctx, status, today)
}

// Execute performs the building lockup: it closes out every present member
// and active visitor, secures the building and returns the day to vacant,
// all in one transaction. Only the current holder may execute. Entries
// already closed by the time the batch reaches them are skipped, so a safe
// retry never errors.
func (s *Service) Execute(ctx context.Context, memberID uuid.UUID, note *string) (*ExecuteResult, error) {
	today := s.Today()
	result := &ExecuteResult{}
	var checkedOutMemberIDs []uuid.UUID

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		status, err := s.GetOrCreateStatus(ctx, tx, today)
		if err != nil {
			return err
		}
		if _, err := findMember(ctx, tx, memberID); err != nil {
			return err
		}
		if status.CurrentHolderID == nil || *status.CurrentHolderID != memberID {
			return domain.Unauthorized("Member %s does not hold lockup responsibility", memberID)
		}

		// Holder-guarded, like Transfer and Release: a release or handoff
		// committing after the read above must abort the mass checkout.
		claim := tx.Model(&domain.LockupStatus{}).
			Where("id = ? AND current_holder_id = ?", status.ID, memberID).
			Update("building_status", domain.BuildingLockingUp)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return domain.Conflict("Lockup holder changed during execution")
		}

		now := time.Now()

		presentMembers, err := presence.PresentMembers(ctx, tx, s.presenceWindow())
		if err != nil {
			return err
		}
		// Holder checks out last.
		sort.SliceStable(presentMembers, func(i, j int) bool {
			return presentMembers[i].Member.ID != memberID && presentMembers[j].Member.ID == memberID
		})
		for _, pm := range presentMembers {
			badgeID := ""
			if pm.Member.BadgeID != nil {
				badgeID = *pm.Member.BadgeID
			}
			if err := tx.Create(&domain.Checkin{
				MemberID:  pm.Member.ID,
				BadgeID:   badgeID,
				Direction: domain.DirectionOut,
				Timestamp: now,
				KioskID:   domain.KioskLockupCheckout,
				Method:    domain.MethodSystem,
				Synced:    true,
			}).Error; err != nil {
				return err
			}
			result.CheckedOut.Members = append(result.CheckedOut.Members, CheckedOutEntry{
				ID:   pm.Member.ID,
				Name: pm.Member.FullName(),
			})
			checkedOutMemberIDs = append(checkedOutMemberIDs, pm.Member.ID)
		}

		visitors, err := presence.ActiveVisitors(ctx, tx)
		if err != nil {
			return err
		}
		for _, v := range visitors {
			// Guarded update: a visitor closed since the snapshot is left alone.
			if err := tx.Model(&domain.Visitor{}).
				Where("id = ? AND check_out_time IS NULL", v.ID).
				Update("check_out_time", now).Error; err != nil {
				return err
			}
			result.CheckedOut.Visitors = append(result.CheckedOut.Visitors, CheckedOutEntry{ID: v.ID, Name: v.Name})
		}

		result.Stats = ExecuteStats{
			MembersCheckedOut:  len(result.CheckedOut.Members),
			VisitorsCheckedOut: len(result.CheckedOut.Visitors),
			TotalCheckedOut:    len(result.CheckedOut.Members) + len(result.CheckedOut.Visitors),
		}

		membersJSON, err := json.Marshal(result.CheckedOut.Members)
		if err != nil {
			return err
		}
		visitorsJSON, err := json.Marshal(result.CheckedOut.Visitors)
		if err != nil {
			return err
		}
		execution := &domain.LockupExecution{
			LockupStatusID:     status.ID,
			ExecutedBy:         memberID,
			ExecutedAt:         now,
			MembersCheckedOut:  datatypes.JSON(membersJSON),
			VisitorsCheckedOut: datatypes.JSON(visitorsJSON),
			TotalCheckedOut:    result.Stats.TotalCheckedOut,
			Notes:              note,
		}
		if err := tx.Create(execution).Error; err != nil {
			return err
		}

		// Secure the building and return the day to vacant: the
		// responsibility is a one-shot exercise per acquisition.
		secure := tx.Model(&domain.LockupStatus{}).
			Where("id = ? AND current_holder_id = ?", status.ID, memberID).
			Updates(map[string]interface{}{
				"building_status":   domain.BuildingSecured,
				"secured_at":        now,
				"secured_by":        memberID,
				"current_holder_id": nil,
				"acquired_at":       nil,
			})
		if secure.Error != nil {
			return secure.Error
		}
		if secure.RowsAffected == 0 {
			return domain.Conflict("Lockup holder changed during execution")
		}

		audit := &domain.ResponsibilityAuditLog{
			MemberID:        memberID,
			TagName:         domain.AuditDomainLockup,
			Action:          domain.ActionExecuted,
			PerformedBy:     &memberID,
			PerformedByType: domain.PerformerMember,
			Notes:           note,
		}
		if err := tx.Create(audit).Error; err != nil {
			return err
		}
		result.AuditLogID = audit.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Cache updates are best-effort and happen after commit.
	if s.Presence != nil {
		for _, id := range checkedOutMemberIDs {
			_ = s.Presence.Cache.SetDirection(ctx, id, domain.DirectionOut)
		}
	}
	return result, nil
}

// Release clears the holder without the mass checkout (verbal handoff,
// end-of-day admin cleanup).
func (s *Service) Release(ctx context.Context, notes *string) (*StatusView, error) {
	today := s.Today()
	var status *domain.LockupStatus

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		status, err = s.GetOrCreateStatus(ctx, tx, today)
		if err != nil {
			return err
		}
		if !status.Held() {
			return domain.NoActiveLockup(404, "No active lockup holder to release")
		}
		holderID := *status.CurrentHolderID

		res := tx.Model(&domain.LockupStatus{}).
			Where("id = ? AND current_holder_id = ?", status.ID, holderID).
			Updates(map[string]interface{}{"current_holder_id": nil, "acquired_at": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NoActiveLockup(404, "No active lockup holder to release")
		}
		status.CurrentHolderID = nil
		status.AcquiredAt = nil

		return tx.Create(&domain.ResponsibilityAuditLog{
			MemberID:        holderID,
			TagName:         domain.AuditDomainLockup,
			Action:          domain.ActionReleased,
			FromMemberID:    &holderID,
			PerformedBy:     &holderID,
			PerformedByType: domain.PerformerMember,
			Notes:           notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.statusView(ctx, status, today)
}

// CheckoutOptionsFor drives the kiosk checkout screen. The current holder
// cannot do a normal checkout until the responsibility is executed or
// transferred.
func (s *Service) CheckoutOptionsFor(ctx context.Context, memberID uuid.UUID) (*CheckoutOptions, error) {
	if _, err := findMember(ctx, s.DB, memberID); err != nil {
		return nil, err
	}
	status, err := s.GetOrCreateStatus(ctx, s.DB, s.Today())
	if err != nil {
		return nil, err
	}

	if status.CurrentHolderID == nil || *status.CurrentHolderID != memberID {
		return &CheckoutOptions{
			MemberID:         memberID,
			HoldsLockup:      false,
			CanCheckout:      true,
			AvailableOptions: []string{"normal_checkout"},
		}, nil
	}

	eligible, err := s.Qualifications.LockupEligibleMembers(ctx)
	if err != nil {
		return nil, err
	}
	// One scan of the day's log instead of a presence query per candidate.
	presentList, err := presence.PresentMembers(ctx, s.DB, s.presenceWindow())
	if err != nil {
		return nil, err
	}
	presentSet := make(map[uuid.UUID]struct{}, len(presentList))
	for _, pm := range presentList {
		presentSet[pm.Member.ID] = struct{}{}
	}
	recipients := make([]Recipient, 0, len(eligible))
	for _, em := range eligible {
		if em.Member.ID == memberID {
			continue
		}
		if _, ok := presentSet[em.Member.ID]; !ok {
			continue
		}
		recipients = append(recipients, Recipient{
			MemberSummary:  em.Member.Summary(),
			Qualifications: em.Qualifications,
		})
	}

	options := []string{"execute_lockup"}
	if len(recipients) > 0 {
		options = append(options, "transfer_lockup")
	}
	reason := "You must transfer or execute lockup before checking out"
	return &CheckoutOptions{
		MemberID:           memberID,
		HoldsLockup:        true,
		CanCheckout:        false,
		BlockReason:        &reason,
		AvailableOptions:   options,
		EligibleRecipients: recipients,
	}, nil
}

// CheckAuth is the legacy tag-compatibility surface: qualification check
// only, presence ignored.
func (s *Service) CheckAuth(ctx context.Context, memberID uuid.UUID) (bool, string, error) {
	if _, err := findMember(ctx, s.DB, memberID); err != nil {
		return false, "", err
	}
	qualified, err := s.Qualifications.CanReceiveLockup(ctx, memberID)
	if err != nil {
		return false, "", err
	}
	if qualified {
		return true, "Member is authorized to perform lockup", nil
	}
	return false, "Member is not authorized to perform lockup", nil
}

// History merges transfers and executions into one reverse-chronological
// feed.
func (s *Service) History(ctx context.Context, limit, offset int) (*HistoryPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	fetch := limit + offset

	var transfers []domain.LockupTransfer
	if err := s.DB.WithContext(ctx).
		Preload("FromMember").Preload("ToMember").
		Order("transferred_at DESC").Limit(fetch).
		Find(&transfers).Error; err != nil {
		return nil, err
	}
	var executions []domain.LockupExecution
	if err := s.DB.WithContext(ctx).
		Preload("ExecutedByMember").
		Order("executed_at DESC").Limit(fetch).
		Find(&executions).Error; err != nil {
		return nil, err
	}

	var transferCount, executionCount int64
	if err := s.DB.WithContext(ctx).Model(&domain.LockupTransfer{}).Count(&transferCount).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.LockupExecution{}).Count(&executionCount).Error; err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(transfers)+len(executions))
	for _, t := range transfers {
		item := HistoryItem{
			ID:        t.ID,
			Type:      "transfer",
			Reason:    t.Reason,
			Notes:     t.Notes,
			Timestamp: t.TransferredAt,
		}
		if t.FromMember != nil {
			from := t.FromMember.Summary()
			item.FromMember = &from
		}
		if t.ToMember != nil {
			to := t.ToMember.Summary()
			item.ToMember = &to
		}
		items = append(items, item)
	}
	for _, e := range executions {
		item := HistoryItem{
			ID:                 e.ID,
			Type:               "execute",
			TotalCheckedOut:    e.TotalCheckedOut,
			MembersCheckedOut:  countJSONEntries(e.MembersCheckedOut),
			VisitorsCheckedOut: countJSONEntries(e.VisitorsCheckedOut),
			Notes:              e.Notes,
			Timestamp:          e.ExecutedAt,
		}
		if e.ExecutedByMember != nil {
			by := e.ExecutedByMember.Summary()
			item.ExecutedBy = &by
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })

	total := transferCount + executionCount
	if offset > len(items) {
		items = []HistoryItem{}
	} else {
		end := offset + limit
		if end > len(items) {
			end = len(items)
		}
		items = items[offset:end]
	}

	return &HistoryPage{
		Items:   items,
		Total:   total,
		HasMore: int64(offset+len(items)) < total,
	}, nil
}

func countJSONEntries(raw datatypes.JSON) int {
	if len(raw) == 0 {
		return 0
	}
	var entries []CheckedOutEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return 0
	}
	return len(entries)
}
