package dds

import (
	"context"
	"time"

	"sentinel-backend/internal/domain"
	"sentinel-backend/internal/event"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CheckinHook auto-activates a pending DDS assignment when the assigned
// member checks in to a secured building. It runs off the check-in event
// and never fails the check-in itself: every error is logged and absorbed.
type CheckinHook struct {
	DDS    *Service
	Logger zerolog.Logger
}

// Register subscribes the hook to member check-in events.
func (h *CheckinHook) Register(bus *event.Bus) {
	bus.SubscribeFunc(event.MemberCheckedIn, h.handle)
}

func (h *CheckinHook) handle(evt event.Event) {
	data, ok := evt.Data.(event.CheckinData)
	if !ok {
		h.Logger.Warn().Str("type", string(evt.Type)).Msg("checkin hook received unexpected payload")
		return
	}
	if data.Direction != domain.DirectionIn {
		return
	}

	ctx := context.Background()
	if err := h.activateIfGated(ctx, data.MemberID); err != nil {
		if de, ok := domain.AsError(err); ok && de.Code == domain.CodeNotFound {
			// Not today's pending DDS, nothing to do.
			return
		}
		h.Logger.Warn().Err(err).Str("member_id", data.MemberID.String()).
			Msg("checkin hook failed to activate pending DDS")
	}
}

func (h *CheckinHook) activateIfGated(ctx context.Context, memberID uuid.UUID) error {
	today := h.DDS.Today()

	var pending domain.DdsAssignment
	err := h.DDS.DB.WithContext(ctx).
		Where("assigned_date = ? AND member_id = ? AND status = ?", today, memberID, domain.DdsPending).
		First(&pending).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	// The handoff only fires once the previous team has secured the
	// building; before that the incoming DDS is just another check-in.
	var status domain.LockupStatus
	err = h.DDS.DB.WithContext(ctx).Where("date = ?", today).First(&status).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if status.BuildingStatus != domain.BuildingSecured {
		return nil
	}

	view, err := h.DDS.AcceptPending(ctx, memberID)
	if err != nil {
		return err
	}
	h.Logger.Info().
		Str("member_id", memberID.String()).
		Str("assignment_id", view.ID.String()).
		Time("at", time.Now()).
		Msg("pending DDS assignment activated on check-in")
	return nil
}
