package postgres

import (
	"context"
	"database/sql"
	"time"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/repository"
)

// activeCoverage counts the active bookings of room r covering day d.
const activeCoverage = `(SELECT count(*) FROM bookings b
	WHERE b.room_id = r.id AND b.status = 'active'
	  AND b.start_date <= d.day AND (b.end_date IS NULL OR b.end_date >= d.day))`

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetRange(ctx context.Context, roomID int64, from, to time.Time) ([]domain.LedgerEntry, error) {
	query := `SELECT room_id, date, available_slots, booked_slots FROM room_availability
	          WHERE room_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`
	rows, err := r.db.QueryContext(ctx, query, roomID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.RoomID, &e.Date, &e.AvailableSlots, &e.BookedSlots); err != nil {
			return nil, err
		}
		e.Date = day(e.Date)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExtendHorizon creates a room's missing ledger rows for [from, through].
// New days are seeded from the active bookings already covering them, which
// matters for open-ended bookings. The room lock orders this against booking
// writers, so a booking committed concurrently is either counted in the seed
// or applied to the new rows.
func (r *ledgerRepository) ExtendHorizon(ctx context.Context, roomID int64, from, through time.Time) (int64, error) {
	logger.EnterMethod("ledgerRepository.ExtendHorizon", "roomID", roomID, "from", from, "through", through)
	var n int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := lockRoom(ctx, tx, roomID); err != nil {
			return err
		}
		query := `INSERT INTO room_availability (room_id, date, available_slots, booked_slots)
		          SELECT r.id, d.day,
		                 GREATEST(r.capacity - LEAST(` + activeCoverage + `, r.capacity), 0),
		                 LEAST(` + activeCoverage + `, r.capacity)
		          FROM rooms r
		          CROSS JOIN (SELECT gs::date AS day FROM generate_series($2::date, $3::date, interval '1 day') gs) d
		          WHERE r.id = $1
		          ON CONFLICT (room_id, date) DO NOTHING`
		res, err := tx.ExecContext(ctx, query, roomID, from, through)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerRepository.ExtendHorizon", err, "roomID", roomID)
		return 0, err
	}
	logger.ExitMethod("ledgerRepository.ExtendHorizon", "roomID", roomID, "rows", n)
	return n, nil
}

// Rebuild recomputes every ledger row of a room from its active bookings. The
// room lock keeps booking writers out while the rows are rewritten.
func (r *ledgerRepository) Rebuild(ctx context.Context, roomID int64) (int64, error) {
	logger.EnterMethod("ledgerRepository.Rebuild", "roomID", roomID)
	var n int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := lockRoom(ctx, tx, roomID); err != nil {
			return err
		}
		query := `UPDATE room_availability a
		          SET booked_slots = LEAST(c.booked, c.capacity),
		              available_slots = c.capacity - LEAST(c.booked, c.capacity)
		          FROM (
		              SELECT r.id AS room_id, d.day, r.capacity, ` + activeCoverage + ` AS booked
		              FROM rooms r
		              JOIN (SELECT room_id, date AS day FROM room_availability WHERE room_id = $1) d ON d.room_id = r.id
		              WHERE r.id = $1
		          ) c
		          WHERE a.room_id = c.room_id AND a.date = c.day`
		res, err := tx.ExecContext(ctx, query, roomID)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("ledgerRepository.Rebuild", err, "roomID", roomID)
		return 0, err
	}
	logger.ExitMethod("ledgerRepository.Rebuild", "roomID", roomID, "rows", n)
	return n, nil
}
