package jobs

import (
	"context"
	"time"

	"sentinel-backend/internal/application/lockup"
	"sentinel-backend/internal/application/presence"
	"sentinel-backend/internal/domain"
	"sentinel-backend/internal/pkg/dates"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DailyReset runs at the operational day rollover. It closes out anyone
// still marked present from the previous day, records the misses, and
// seeds the new day's lockup row.
type DailyReset struct {
	DB           *gorm.DB
	Lockup       *lockup.Service
	Presence     *presence.Service
	DayStartHour int
	Logger       zerolog.Logger
}

// Schedule registers the reset on the given cron expression.
func (j *DailyReset) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if err := j.Run(context.Background()); err != nil {
			j.Logger.Error().Err(err).Msg("daily reset failed")
		}
	})
}

func (j *DailyReset) dayStartHour() int {
	if j.DayStartHour == 0 {
		return dates.DefaultDayStartHour
	}
	return j.DayStartHour
}

// Run performs one reset pass. Safe to run more than once per rollover:
// members already checked out and visitors already closed are skipped.
func (j *DailyReset) Run(ctx context.Context) error {
	today := dates.OperationalDate(time.Now(), j.dayStartHour())
	previousDay := today.AddDate(0, 0, -1)
	now := time.Now()

	var previous domain.LockupStatus
	err := j.DB.WithContext(ctx).Where("date = ?", previousDay).First(&previous).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		// Nothing happened yesterday.
	case err != nil:
		return err
	case previous.BuildingStatus != domain.BuildingSecured:
		j.Logger.Warn().
			Str("date", previousDay.Format("2006-01-02")).
			Str("building_status", previous.BuildingStatus).
			Msg("previous day ended without the building secured")
	}

	var forcedOut []uuid.UUID
	err = j.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stillPresent, err := presence.PresentMembers(ctx, tx, previousDay)
		if err != nil {
			return err
		}
		for _, pm := range stillPresent {
			forcedOut = append(forcedOut, pm.Member.ID)
			if err := tx.Create(&domain.MissedCheckout{
				MemberID:          pm.Member.ID,
				Date:              previousDay,
				OriginalCheckinAt: pm.CheckedInAt,
				ResolvedBy:        "daily_reset",
			}).Error; err != nil {
				return err
			}
			badgeID := ""
			if pm.Member.BadgeID != nil {
				badgeID = *pm.Member.BadgeID
			}
			if err := tx.Create(&domain.Checkin{
				MemberID:  pm.Member.ID,
				BadgeID:   badgeID,
				Direction: domain.DirectionOut,
				Timestamp: now,
				KioskID:   domain.KioskSystem,
				Method:    domain.MethodSystem,
				Synced:    true,
			}).Error; err != nil {
				return err
			}
		}
		if len(stillPresent) > 0 {
			j.Logger.Info().Int("count", len(stillPresent)).Msg("forced checkout of members left present overnight")
		}

		return tx.Model(&domain.Visitor{}).
			Where("check_out_time IS NULL").
			Update("check_out_time", now).Error
	})
	if err != nil {
		return err
	}

	if j.Presence != nil {
		// Best effort: stale cached directions expire on their own anyway.
		for _, id := range forcedOut {
			_ = j.Presence.Cache.SetDirection(ctx, id, domain.DirectionOut)
		}
	}

	if _, err := j.Lockup.GetOrCreateStatus(ctx, j.DB, today); err != nil {
		return err
	}
	j.Logger.Info().Str("date", today.Format("2006-01-02")).Msg("daily reset complete")
	return nil
}
