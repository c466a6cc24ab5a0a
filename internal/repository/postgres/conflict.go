package postgres

import (
	"context"

	"roomsync-backend/internal/domain"
)

// findConflicts returns the active or pending bookings on roomID whose interval
// overlaps dr. A NULL end date is compared as the far-future sentinel. Inside
// the write path q is the transaction holding the room lock, so the answer
// cannot go stale before commit.
func findConflicts(ctx context.Context, q querier, roomID int64, dr domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE room_id = $1
	            AND status IN ('active', 'pending')
	            AND id <> $2
	            AND start_date <= $3
	            AND $4 <= COALESCE(end_date, $5)
	          ORDER BY start_date`
	rows, err := q.QueryContext(ctx, query, roomID, excludeID, dr.EndOrSentinel(), dr.Start, domain.OpenEnded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func checkConflicts(ctx context.Context, q querier, roomID int64, dr domain.DateRange, excludeID int64) error {
	conflicts, err := findConflicts(ctx, q, roomID, dr, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &domain.ConflictError{RoomID: roomID, Requested: dr, Conflicts: conflicts}
	}
	return nil
}
