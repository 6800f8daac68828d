package checkins

import (
	"context"
	"time"

	"sentinel-backend/internal/application/lockup"
	"sentinel-backend/internal/application/presence"
	"sentinel-backend/internal/domain"
	"sentinel-backend/internal/event"
	"sentinel-backend/internal/pkg/pin"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Service records member scans. The lockup holder gate runs on the way out:
// a holder cannot do a normal checkout until the responsibility is executed
// or transferred.
type Service struct {
	DB       *gorm.DB
	Lockup   *lockup.Service
	Presence *presence.Service
	Bus      *event.Bus
	Logger   zerolog.Logger
}

// CreateInput is the check-in request body.
type CreateInput struct {
	MemberID  uuid.UUID `json:"memberId"`
	BadgeID   string    `json:"badgeId"`
	Direction string    `json:"direction"`
	KioskID   string    `json:"kioskId"`
	Method    string    `json:"method"`
	Pin       string    `json:"pin"`
}

// Create validates and records one scan, then notifies subscribers. Event
// handler failures never surface to the kiosk.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Checkin, error) {
	if in.Direction != domain.DirectionIn && in.Direction != domain.DirectionOut {
		return nil, domain.Validation("direction must be %q or %q", domain.DirectionIn, domain.DirectionOut)
	}
	if in.Method == "" {
		in.Method = domain.MethodBadge
	}

	var member domain.Member
	if err := s.DB.WithContext(ctx).First(&member, "id = ?", in.MemberID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.NotFound("Member %s not found", in.MemberID)
		}
		return nil, err
	}

	if in.Method == domain.MethodPin {
		if member.PinHash == nil || !pin.Verify(*member.PinHash, in.Pin) {
			return nil, domain.Unauthorized("Invalid PIN")
		}
	}

	if in.Direction == domain.DirectionOut {
		options, err := s.Lockup.CheckoutOptionsFor(ctx, member.ID)
		if err != nil {
			return nil, err
		}
		if !options.CanCheckout {
			return nil, domain.LockupHeld("You hold lockup responsibility and cannot check out", options)
		}
	}

	if in.BadgeID == "" && member.BadgeID != nil {
		in.BadgeID = *member.BadgeID
	}

	checkin := &domain.Checkin{
		MemberID:  member.ID,
		BadgeID:   in.BadgeID,
		Direction: in.Direction,
		Timestamp: time.Now(),
		KioskID:   in.KioskID,
		Method:    in.Method,
		Synced:    true,
	}
	if err := s.DB.WithContext(ctx).Create(checkin).Error; err != nil {
		return nil, err
	}

	if s.Presence != nil {
		if err := s.Presence.Cache.SetDirection(ctx, member.ID, in.Direction); err != nil {
			s.Logger.Warn().Err(err).Str("member_id", member.ID.String()).
				Msg("failed to update presence cache")
		}
	}

	if s.Bus != nil {
		s.Bus.Publish(event.MemberCheckedIn, event.New(event.MemberCheckedIn, event.CheckinData{
			MemberID:  member.ID,
			Direction: in.Direction,
			KioskID:   in.KioskID,
			Method:    in.Method,
		}))
	}
	return checkin, nil
}
