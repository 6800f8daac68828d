package presence

import (
	"context"
	"time"

	"sentinel-backend/internal/domain"
	"sentinel-backend/internal/pkg/dates"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service answers "who is in the building right now" from the check-in log.
// Presence is always derived from the latest scan per member within the
// operational day; the Redis direction cache is a read accelerator only.
type Service struct {
	DB           *gorm.DB
	Cache        *DirectionCache
	DayStartHour int
}

// PresentMember is one member currently in the building.
type PresentMember struct {
	Member      domain.Member
	CheckedInAt time.Time
	KioskID     string
}

// Stats is the dashboard presence summary.
type Stats struct {
	TotalMembers    int64 `json:"totalMembers"`
	PresentMembers  int   `json:"presentMembers"`
	TotalVisitors   int64 `json:"totalVisitors"`
	PresentVisitors int   `json:"presentVisitors"`
}

func (s *Service) windowStart(now time.Time) time.Time {
	h := s.DayStartHour
	if h == 0 {
		h = dates.DefaultDayStartHour
	}
	return dates.OperationalDate(now, h)
}

// IsMemberPresent reports whether the member's most recent scan of the
// operational day is an "in" with no later "out".
func (s *Service) IsMemberPresent(ctx context.Context, memberID uuid.UUID) (bool, error) {
	return IsMemberPresent(ctx, s.DB, memberID, s.windowStart(time.Now()))
}

// PresentMembers lists everyone whose latest scan of the day is an "in".
func (s *Service) PresentMembers(ctx context.Context) ([]PresentMember, error) {
	return PresentMembers(ctx, s.DB, s.windowStart(time.Now()))
}

// ActiveVisitors lists visitors signed in with no checkout time.
func (s *Service) ActiveVisitors(ctx context.Context) ([]domain.Visitor, error) {
	return ActiveVisitors(ctx, s.DB)
}

// PresenceStats returns the totals for the dashboard widgets.
func (s *Service) PresenceStats(ctx context.Context) (*Stats, error) {
	var totalMembers, totalVisitors int64
	if err := s.DB.WithContext(ctx).Model(&domain.Member{}).Count(&totalMembers).Error; err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Visitor{}).Count(&totalVisitors).Error; err != nil {
		return nil, err
	}
	present, err := s.PresentMembers(ctx)
	if err != nil {
		return nil, err
	}
	visitors, err := s.ActiveVisitors(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalMembers:    totalMembers,
		PresentMembers:  len(present),
		TotalVisitors:   totalVisitors,
		PresentVisitors: len(visitors),
	}, nil
}

// IsMemberPresent is the transaction-scoped form used inside the lockup
// execution batch.
func IsMemberPresent(ctx context.Context, db *gorm.DB, memberID uuid.UUID, since time.Time) (bool, error) {
	var last domain.Checkin
	err := db.WithContext(ctx).
		Where("member_id = ? AND timestamp >= ?", memberID, since).
		Order("timestamp DESC").
		First(&last).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return last.Direction == domain.DirectionIn, nil
}

// PresentMembers folds the day's scans to the latest per member and keeps
// those whose latest direction is "in". One pass over the day's rows; the
// log for a single day is small.
func PresentMembers(ctx context.Context, db *gorm.DB, since time.Time) ([]PresentMember, error) {
	var scans []domain.Checkin
	if err := db.WithContext(ctx).
		Where("timestamp >= ?", since).
		Order("timestamp ASC").
		Find(&scans).Error; err != nil {
		return nil, err
	}

	latest := make(map[uuid.UUID]domain.Checkin)
	for _, scan := range scans {
		latest[scan.MemberID] = scan
	}

	presentIDs := make([]uuid.UUID, 0, len(latest))
	for id, scan := range latest {
		if scan.Direction == domain.DirectionIn {
			presentIDs = append(presentIDs, id)
		}
	}
	if len(presentIDs) == 0 {
		return []PresentMember{}, nil
	}

	var members []domain.Member
	if err := db.WithContext(ctx).Preload("Division").Where("id IN ?", presentIDs).Find(&members).Error; err != nil {
		return nil, err
	}

	out := make([]PresentMember, 0, len(members))
	for _, m := range members {
		scan := latest[m.ID]
		out = append(out, PresentMember{Member: m, CheckedInAt: scan.Timestamp, KioskID: scan.KioskID})
	}
	return out, nil
}

// ActiveVisitors is the transaction-scoped visitor query.
func ActiveVisitors(ctx context.Context, db *gorm.DB) ([]domain.Visitor, error) {
	var visitors []domain.Visitor
	if err := db.WithContext(ctx).Where("check_out_time IS NULL").Order("check_in_time ASC").Find(&visitors).Error; err != nil {
		return nil, err
	}
	return visitors, nil
}
