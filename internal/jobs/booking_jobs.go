package jobs

import (
	"context"

	"roomsync-backend/internal/logger"
)

// ExpireBookings moves bookings whose end date has passed to expired,
// draining in batches until nothing is due.
func (jr *JobRunner) ExpireBookings() {
	_ = jr.runWithRecovery("ExpireBookings", func(ctx context.Context) error {
		total := 0
		for {
			n, err := jr.services.Booking.ExpireBookings(ctx, expireBatchSize)
			total += n
			if err != nil {
				return err
			}
			if n < expireBatchSize {
				break
			}
		}
		logger.Info("Expired bookings", "count", total)
		return nil
	})
}

// RefreshRoomStatus re-derives occupied/available as the day rolls over.
func (jr *JobRunner) RefreshRoomStatus() {
	_ = jr.runWithRecovery("RefreshRoomStatus", func(ctx context.Context) error {
		n, err := jr.services.Room.RefreshRoomStatuses(ctx)
		if err != nil {
			return err
		}
		logger.Info("Refreshed room statuses", "changed", n)
		return nil
	})
}
