package lockup

import (
	"context"
	"sync"
	"testing"
	"time"

	"sentinel-backend/internal/application/presence"
	"sentinel-backend/internal/application/qualifications"
	"sentinel-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLockupTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Member{}, &domain.Division{}, &domain.Checkin{}, &domain.Visitor{},
		&domain.QualificationType{}, &domain.MemberQualification{},
		&domain.Tag{}, &domain.MemberTag{},
		&domain.LockupStatus{}, &domain.LockupTransfer{}, &domain.LockupExecution{},
		&domain.ResponsibilityAuditLog{},
	))
	svc := &Service{
		DB:             db,
		Qualifications: &qualifications.Service{DB: db},
		Presence:       &presence.Service{DB: db, Cache: &presence.DirectionCache{}},
	}
	return svc, db
}

func seedMember(t *testing.T, db *gorm.DB, lastName string) *domain.Member {
	badge := "B-" + lastName
	m := &domain.Member{
		ServiceNumber: "SN-" + lastName,
		FirstName:     "Test",
		LastName:      lastName,
		Rank:          "SGT",
		MemberType:    "regular",
		BadgeID:       &badge,
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func seedQualification(t *testing.T, db *gorm.DB, memberID uuid.UUID) {
	var qt domain.QualificationType
	err := db.Where("code = ?", "LOCKUP").First(&qt).Error
	if err == gorm.ErrRecordNotFound {
		qt = domain.QualificationType{Code: "LOCKUP", Name: "Lockup Authority", CanReceiveLockup: true}
		require.NoError(t, db.Create(&qt).Error)
	} else {
		require.NoError(t, err)
	}
	require.NoError(t, db.Create(&domain.MemberQualification{
		MemberID:            memberID,
		QualificationTypeID: qt.ID,
		Status:              domain.QualificationActive,
		GrantedAt:           time.Now().Add(-24 * time.Hour),
	}).Error)
}

func seedCheckin(t *testing.T, db *gorm.DB, memberID uuid.UUID, direction string) {
	require.NoError(t, db.Create(&domain.Checkin{
		MemberID:  memberID,
		Direction: direction,
		Timestamp: time.Now(),
		KioskID:   "front-door",
		Method:    domain.MethodBadge,
	}).Error)
}

// seedHolderReady creates a qualified, checked-in member.
func seedHolderReady(t *testing.T, db *gorm.DB, lastName string) *domain.Member {
	m := seedMember(t, db, lastName)
	seedQualification(t, db, m.ID)
	seedCheckin(t, db, m.ID, domain.DirectionIn)
	return m
}

func TestAcquire_QualifiedAndPresent(t *testing.T) {
	svc, db := setupLockupTest(t)
	m := seedHolderReady(t, db, "Alpha")

	view, err := svc.Acquire(context.Background(), m.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, view.CurrentHolder)
	assert.Equal(t, m.ID, view.CurrentHolder.ID)
	assert.NotNil(t, view.AcquiredAt)
	assert.Equal(t, domain.BuildingOpen, view.BuildingStatus)
	assert.True(t, view.IsActive)

	var audit domain.ResponsibilityAuditLog
	require.NoError(t, db.Where("tag_name = ?", domain.AuditDomainLockup).First(&audit).Error)
	assert.Equal(t, domain.ActionAssigned, audit.Action)
	assert.Equal(t, m.ID, audit.MemberID)
}

func TestAcquire_NotQualified(t *testing.T) {
	svc, db := setupLockupTest(t)
	m := seedMember(t, db, "Bravo")
	seedCheckin(t, db, m.ID, domain.DirectionIn)

	_, err := svc.Acquire(context.Background(), m.ID, nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotQualified, de.Code)
	assert.Equal(t, 403, de.Status)
}

func TestAcquire_NotCheckedIn(t *testing.T) {
	svc, db := setupLockupTest(t)
	m := seedMember(t, db, "Charlie")
	seedQualification(t, db, m.ID)

	_, err := svc.Acquire(context.Background(), m.ID, nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotCheckedIn, de.Code)
}

func TestAcquire_CheckedOutAgain_NotCheckedIn(t *testing.T) {
	svc, db := setupLockupTest(t)
	m := seedMember(t, db, "Delta")
	seedQualification(t, db, m.ID)
	seedCheckin(t, db, m.ID, domain.DirectionIn)
	seedCheckin(t, db, m.ID, domain.DirectionOut)

	_, err := svc.Acquire(context.Background(), m.ID, nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotCheckedIn, de.Code)
}

func TestAcquire_AlreadyHeld(t *testing.T) {
	svc, db := setupLockupTest(t)
	first := seedHolderReady(t, db, "Echo")
	second := seedHolderReady(t, db, "Foxtrot")

	_, err := svc.Acquire(context.Background(), first.ID, nil)
	require.NoError(t, err)

	_, err = svc.Acquire(context.Background(), second.ID, nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeAlreadyHeld, de.Code)
	assert.Equal(t, 409, de.Status)

	// Re-acquire by the same member is also rejected.
	_, err = svc.Acquire(context.Background(), first.ID, nil)
	de, ok = domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeAlreadyHeld, de.Code)
}

func TestAcquire_UnknownMember(t *testing.T) {
	svc, _ := setupLockupTest(t)
	_, err := svc.Acquire(context.Background(), uuid.New(), nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, de.Code)
}

func TestTransfer_HappyPath(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Golf")
	next := seedHolderReady(t, db, "Hotel")

	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	view, err := svc.Transfer(context.Background(), next.ID, "end_of_shift", nil)
	require.NoError(t, err)
	require.NotNil(t, view.CurrentHolder)
	assert.Equal(t, next.ID, view.CurrentHolder.ID)

	var transfer domain.LockupTransfer
	require.NoError(t, db.First(&transfer).Error)
	assert.Equal(t, holder.ID, transfer.FromMemberID)
	assert.Equal(t, next.ID, transfer.ToMemberID)
	assert.Equal(t, "end_of_shift", transfer.Reason)
}

func TestTransfer_NoActiveLockup(t *testing.T) {
	svc, db := setupLockupTest(t)
	next := seedHolderReady(t, db, "India")

	_, err := svc.Transfer(context.Background(), next.ID, "", nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNoActiveLockup, de.Code)
	assert.Equal(t, 400, de.Status)
}

func TestTransfer_RecipientGate(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Juliet")
	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	// Qualified but absent.
	absent := seedMember(t, db, "Kilo")
	seedQualification(t, db, absent.ID)
	_, err = svc.Transfer(context.Background(), absent.ID, "", nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotCheckedIn, de.Code)

	// Present but unqualified.
	unqualified := seedMember(t, db, "Lima")
	seedCheckin(t, db, unqualified.ID, domain.DirectionIn)
	_, err = svc.Transfer(context.Background(), unqualified.ID, "", nil)
	de, ok = domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotQualified, de.Code)

	// The failed transfers left the holder untouched.
	view, err := svc.Status(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, view.CurrentHolder)
	assert.Equal(t, holder.ID, view.CurrentHolder.ID)
}

func TestExecute_OnlyHolderMayExecute(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Mike")
	other := seedHolderReady(t, db, "November")

	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), other.ID, nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnauthorized, de.Code)
}

func TestExecute_ChecksOutEveryone(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Oscar")
	bystander := seedMember(t, db, "Papa")
	seedCheckin(t, db, bystander.ID, domain.DirectionIn)
	require.NoError(t, db.Create(&domain.Visitor{
		Name:        "Visiting Contractor",
		CheckInTime: time.Now(),
	}).Error)

	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	result, err := svc.Execute(context.Background(), holder.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.MembersCheckedOut)
	assert.Equal(t, 1, result.Stats.VisitorsCheckedOut)
	assert.Equal(t, 3, result.Stats.TotalCheckedOut)
	assert.NotEqual(t, uuid.Nil, result.AuditLogID)

	// Holder is last out.
	require.Len(t, result.CheckedOut.Members, 2)
	assert.Equal(t, holder.ID, result.CheckedOut.Members[1].ID)

	view, err := svc.Status(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildingSecured, view.BuildingStatus)
	assert.Nil(t, view.CurrentHolder)
	assert.NotNil(t, view.SecuredAt)
	require.NotNil(t, view.SecuredBy)
	assert.Equal(t, holder.ID, *view.SecuredBy)

	// Nobody reads as present afterwards.
	present, err := svc.Presence.PresentMembers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, present)

	var visitor domain.Visitor
	require.NoError(t, db.First(&visitor).Error)
	assert.NotNil(t, visitor.CheckOutTime)

	var execution domain.LockupExecution
	require.NoError(t, db.First(&execution).Error)
	assert.Equal(t, holder.ID, execution.ExecutedBy)
	assert.Equal(t, 3, execution.TotalCheckedOut)
}

func TestExecute_SyntheticCheckoutsAreMarked(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Quebec")
	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	var synthetic domain.Checkin
	require.NoError(t, db.Where("direction = ?", domain.DirectionOut).First(&synthetic).Error)
	assert.Equal(t, domain.KioskLockupCheckout, synthetic.KioskID)
	assert.Equal(t, domain.MethodSystem, synthetic.Method)
}

func TestExecute_EmptyBuildingStillSecures(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Romeo")
	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	// Holder slipped out before executing; only the visitor sheet is empty too.
	seedCheckin(t, db, holder.ID, domain.DirectionOut)

	result, err := svc.Execute(context.Background(), holder.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.MembersCheckedOut)
	assert.Equal(t, 0, result.Stats.VisitorsCheckedOut)

	view, err := svc.Status(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildingSecured, view.BuildingStatus)
}

func TestRelease_ClearsHolder(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Sierra")
	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	view, err := svc.Release(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, view.CurrentHolder)
	assert.Nil(t, view.AcquiredAt)
	// Release is not an execution; the building stays open.
	assert.Equal(t, domain.BuildingOpen, view.BuildingStatus)

	var audit domain.ResponsibilityAuditLog
	require.NoError(t, db.Where("action = ?", domain.ActionReleased).First(&audit).Error)
	assert.Equal(t, holder.ID, audit.MemberID)
}

func TestRelease_NoHolderIs404(t *testing.T) {
	svc, _ := setupLockupTest(t)
	_, err := svc.Release(context.Background(), nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNoActiveLockup, de.Code)
	assert.Equal(t, 404, de.Status)
}

func TestStatus_AutoCreatesToday(t *testing.T) {
	svc, db := setupLockupTest(t)

	view, err := svc.Status(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.BuildingOpen, view.BuildingStatus)
	assert.Nil(t, view.CurrentHolder)
	assert.True(t, view.IsActive)

	// A second read reuses the same row.
	again, err := svc.Status(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, view.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&domain.LockupStatus{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStatus_HistoricalDateNotFound(t *testing.T) {
	svc, _ := setupLockupTest(t)
	_, err := svc.Status(context.Background(), "2019-01-01")
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, de.Code)
}

func TestStatus_BadDate(t *testing.T) {
	svc, _ := setupLockupTest(t)
	_, err := svc.Status(context.Background(), "not-a-date")
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeBadRequest, de.Code)
}

func TestCheckoutOptions_NonHolderCanCheckout(t *testing.T) {
	svc, db := setupLockupTest(t)
	m := seedHolderReady(t, db, "Tango")

	options, err := svc.CheckoutOptionsFor(context.Background(), m.ID)
	require.NoError(t, err)
	assert.False(t, options.HoldsLockup)
	assert.True(t, options.CanCheckout)
	assert.Equal(t, []string{"normal_checkout"}, options.AvailableOptions)
}

func TestCheckoutOptions_HolderBlockedWithRecipients(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Uniform")
	recipient := seedHolderReady(t, db, "Victor")
	// Qualified but absent, must not appear as a recipient.
	absent := seedMember(t, db, "Whiskey")
	seedQualification(t, db, absent.ID)

	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	options, err := svc.CheckoutOptionsFor(context.Background(), holder.ID)
	require.NoError(t, err)
	assert.True(t, options.HoldsLockup)
	assert.False(t, options.CanCheckout)
	require.NotNil(t, options.BlockReason)
	assert.Contains(t, options.AvailableOptions, "execute_lockup")
	assert.Contains(t, options.AvailableOptions, "transfer_lockup")
	require.Len(t, options.EligibleRecipients, 1)
	assert.Equal(t, recipient.ID, options.EligibleRecipients[0].ID)
}

func TestCheckoutOptions_HolderAloneOnlyExecute(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Xray")
	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	options, err := svc.CheckoutOptionsFor(context.Background(), holder.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"execute_lockup"}, options.AvailableOptions)
	assert.Empty(t, options.EligibleRecipients)
}

func TestCheckAuth_QualificationOnly(t *testing.T) {
	svc, db := setupLockupTest(t)
	// Qualified but absent: check-auth ignores presence.
	m := seedMember(t, db, "Yankee")
	seedQualification(t, db, m.ID)

	authorized, msg, err := svc.CheckAuth(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, authorized)
	assert.NotEmpty(t, msg)

	other := seedMember(t, db, "Zulu")
	authorized, _, err = svc.CheckAuth(context.Background(), other.ID)
	require.NoError(t, err)
	assert.False(t, authorized)
}

func TestHistory_MergesAndPaginates(t *testing.T) {
	svc, db := setupLockupTest(t)
	a := seedHolderReady(t, db, "Able")
	b := seedHolderReady(t, db, "Baker")

	_, err := svc.Acquire(context.Background(), a.ID, nil)
	require.NoError(t, err)
	_, err = svc.Transfer(context.Background(), b.ID, "", nil)
	require.NoError(t, err)
	_, err = svc.Execute(context.Background(), b.ID, nil)
	require.NoError(t, err)

	page, err := svc.History(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.EqualValues(t, 2, page.Total)
	assert.False(t, page.HasMore)
	// Newest first: the execution follows the transfer.
	assert.Equal(t, "execute", page.Items[0].Type)
	assert.Equal(t, "transfer", page.Items[1].Type)
	require.NotNil(t, page.Items[1].FromMember)
	assert.Equal(t, a.ID, page.Items[1].FromMember.ID)

	paged, err := svc.History(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.True(t, paged.HasMore)

	rest, err := svc.History(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Equal(t, "transfer", rest.Items[0].Type)
	assert.False(t, rest.HasMore)
}

func TestAcquire_ConditionalUpdateLosesToConcurrentClaim(t *testing.T) {
	svc, db := setupLockupTest(t)
	slow := seedHolderReady(t, db, "Quebec")
	fast := seedHolderReady(t, db, "Romeo")

	// Claim the day for fast after slow's transaction has read the still
	// vacant row but before its conditional update runs.
	var once sync.Once
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("claim_first", func(op *gorm.DB) {
		if op.Statement.Table != "lockup_statuses" {
			return
		}
		once.Do(func() {
			_, err := op.Statement.ConnPool.ExecContext(context.Background(),
				"UPDATE lockup_statuses SET current_holder_id = ?", fast.ID)
			require.NoError(t, err)
		})
	}))

	_, err := svc.Acquire(context.Background(), slow.ID, nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeAlreadyHeld, de.Code)
}

func TestExecute_AbortsWhenHolderReleasedConcurrently(t *testing.T) {
	svc, db := setupLockupTest(t)
	holder := seedHolderReady(t, db, "Sierra")

	_, err := svc.Acquire(context.Background(), holder.ID, nil)
	require.NoError(t, err)

	// A release lands between the status read and the first guarded write.
	var once sync.Once
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("release_first", func(op *gorm.DB) {
		if op.Statement.Table != "lockup_statuses" {
			return
		}
		once.Do(func() {
			_, err := op.Statement.ConnPool.ExecContext(context.Background(),
				"UPDATE lockup_statuses SET current_holder_id = NULL, acquired_at = NULL")
			require.NoError(t, err)
		})
	}))

	_, err = svc.Execute(context.Background(), holder.ID, nil)
	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConflict, de.Code)

	// The rolled-back execution left the day exactly as acquired.
	var status domain.LockupStatus
	require.NoError(t, db.Where("date = ?", svc.Today()).First(&status).Error)
	require.NotNil(t, status.CurrentHolderID)
	assert.Equal(t, holder.ID, *status.CurrentHolderID)
	assert.Equal(t, domain.BuildingOpen, status.BuildingStatus)

	var executions int64
	require.NoError(t, db.Model(&domain.LockupExecution{}).Count(&executions).Error)
	assert.EqualValues(t, 0, executions)
}
