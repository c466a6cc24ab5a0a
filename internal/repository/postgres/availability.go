package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
)

// applyLedger adds delta booked slots to every tracked day of dr. Rows outside
// the provisioned horizon do not exist and are left alone. Slots are clamped to
// [0, capacity] and available_slots always mirrors capacity - booked_slots.
func applyLedger(ctx context.Context, q querier, room *lockedRoom, dr domain.DateRange, delta int) error {
	query := `UPDATE room_availability
	          SET booked_slots = LEAST(GREATEST(booked_slots + $4, 0), $5),
	              available_slots = $5 - LEAST(GREATEST(booked_slots + $4, 0), $5)
	          WHERE room_id = $1 AND date BETWEEN $2 AND $3`
	logger.DatabaseCall("UPDATE", "room_availability", "roomID", room.ID, "delta", delta)
	res, err := q.ExecContext(ctx, query, room.ID, dr.Start, dr.EndOrSentinel(), delta, room.Capacity)
	if err != nil {
		return fmt.Errorf("apply ledger delta for room %d: %w", room.ID, err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, nil, "table", "room_availability")
	return nil
}

// syncRoomStatus derives occupied/available from the active bookings covering
// today. Statuses set by staff (maintenance, reserved, out_of_order) are kept.
func syncRoomStatus(ctx context.Context, q querier, room *lockedRoom, today time.Time) (domain.RoomStatus, error) {
	query := `UPDATE rooms
	          SET status = CASE WHEN EXISTS (
	                  SELECT 1 FROM bookings
	                  WHERE room_id = $1 AND status = 'active'
	                    AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
	              ) THEN 'occupied' ELSE 'available' END,
	              updated_on = NOW()
	          WHERE id = $1 AND status IN ('available', 'occupied')
	          RETURNING status`
	var status domain.RoomStatus
	err := q.QueryRowContext(ctx, query, room.ID, today).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return room.Status, nil
	}
	if err != nil {
		return "", fmt.Errorf("sync room %d status: %w", room.ID, err)
	}
	return status, nil
}
