package jobs

import (
	"context"
	"fmt"

	"roomsync-backend/internal/logger"
)

// ExtendLedgerHorizon adds ledger rows so every room is covered through
// today plus the configured horizon.
func (jr *JobRunner) ExtendLedgerHorizon() {
	_ = jr.runWithRecovery("ExtendLedgerHorizon", func(ctx context.Context) error {
		n, err := jr.services.Room.ExtendLedgerHorizon(ctx)
		if err != nil {
			return err
		}
		logger.Info("Extended ledger horizon", "rows", n, "horizon_days", jr.config.Ledger.HorizonDays)
		return nil
	})
}

// RebuildLedger recomputes one room's ledger from its bookings.
func (jr *JobRunner) RebuildLedger(roomID int64) error {
	if roomID <= 0 {
		return fmt.Errorf("invalid room id: %d", roomID)
	}
	return jr.runWithRecovery("RebuildLedger", func(ctx context.Context) error {
		n, err := jr.services.Room.RebuildLedger(ctx, roomID)
		if err != nil {
			return err
		}
		logger.Info("Rebuilt ledger", "room_id", roomID, "rows", n)
		return nil
	})
}
