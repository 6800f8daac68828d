package presence

import (
	"context"
	"testing"
	"time"

	"sentinel-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupPresenceTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Member{}, &domain.Division{}, &domain.Checkin{}, &domain.Visitor{},
	))
	return &Service{DB: db, Cache: &DirectionCache{}}, db
}

func seedMember(t *testing.T, db *gorm.DB, lastName string) *domain.Member {
	m := &domain.Member{
		ServiceNumber: "SN-" + lastName,
		FirstName:     "Test",
		LastName:      lastName,
		Rank:          "LT",
		MemberType:    "regular",
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

func seedScan(t *testing.T, db *gorm.DB, m *domain.Member, direction string, at time.Time) {
	require.NoError(t, db.Create(&domain.Checkin{
		MemberID:  m.ID,
		Direction: direction,
		Timestamp: at,
		KioskID:   "front-door",
		Method:    domain.MethodBadge,
	}).Error)
}

func TestIsMemberPresent_LatestScanWins(t *testing.T) {
	svc, db := setupPresenceTest(t)
	m := seedMember(t, db, "Aas")
	now := time.Now()

	present, err := svc.IsMemberPresent(context.Background(), m.ID)
	require.NoError(t, err)
	assert.False(t, present)

	seedScan(t, db, m, domain.DirectionIn, now.Add(-2*time.Hour))
	present, err = svc.IsMemberPresent(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, present)

	seedScan(t, db, m, domain.DirectionOut, now.Add(-time.Hour))
	present, err = svc.IsMemberPresent(context.Background(), m.ID)
	require.NoError(t, err)
	assert.False(t, present)

	seedScan(t, db, m, domain.DirectionIn, now.Add(-time.Minute))
	present, err = svc.IsMemberPresent(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, present)
}

func TestPresentMembers_FoldsToLatestPerMember(t *testing.T) {
	svc, db := setupPresenceTest(t)
	in := seedMember(t, db, "Birkeland")
	out := seedMember(t, db, "Christensen")
	now := time.Now()

	seedScan(t, db, in, domain.DirectionIn, now.Add(-time.Hour))
	seedScan(t, db, out, domain.DirectionIn, now.Add(-time.Hour))
	seedScan(t, db, out, domain.DirectionOut, now.Add(-30*time.Minute))

	members, err := svc.PresentMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, in.ID, members[0].Member.ID)
	assert.Equal(t, "front-door", members[0].KioskID)
}

func TestActiveVisitors_ClosedAreExcluded(t *testing.T) {
	svc, db := setupPresenceTest(t)
	now := time.Now()
	require.NoError(t, db.Create(&domain.Visitor{Name: "Open Visit", CheckInTime: now}).Error)
	closedAt := now.Add(-time.Hour)
	require.NoError(t, db.Create(&domain.Visitor{
		Name:         "Closed Visit",
		CheckInTime:  now.Add(-2 * time.Hour),
		CheckOutTime: &closedAt,
	}).Error)

	visitors, err := svc.ActiveVisitors(context.Background())
	require.NoError(t, err)
	require.Len(t, visitors, 1)
	assert.Equal(t, "Open Visit", visitors[0].Name)
}

func TestPresenceStats(t *testing.T) {
	svc, db := setupPresenceTest(t)
	m := seedMember(t, db, "Dybvik")
	seedScan(t, db, m, domain.DirectionIn, time.Now())
	require.NoError(t, db.Create(&domain.Visitor{Name: "Guest", CheckInTime: time.Now()}).Error)

	stats, err := svc.PresenceStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalMembers)
	assert.Equal(t, 1, stats.PresentMembers)
	assert.EqualValues(t, 1, stats.TotalVisitors)
	assert.Equal(t, 1, stats.PresentVisitors)
}
