package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/repository"
)

const bookingColumns = `id, room_id, tenant_id, start_date, end_date, monthly_rent_cents, status, notes, created_by, created_on, updated_on`

type bookingRepository struct {
	db      *sql.DB
	clock   clock.Clock
	channel string
}

func NewBookingRepository(db *sql.DB, clk clock.Clock, channel string) repository.BookingRepository {
	return &bookingRepository{db: db, clock: clk, channel: channel}
}

// lockedRoom is the slice of the room row the mutation path needs.
type lockedRoom struct {
	ID         int64
	BuildingID int64
	Capacity   int32
	Status     domain.RoomStatus
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	logger.EnterMethod("bookingRepository.Create", "roomID", b.RoomID, "status", b.Status, "range", b.Range().String())

	if !b.Status.Valid() {
		return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", b.Status)}
	}
	if err := b.Range().Validate(); err != nil {
		return err
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		room, err := lockRoom(ctx, tx, b.RoomID)
		if err != nil {
			return err
		}

		if b.Status.Blocking() {
			if err := checkConflicts(ctx, tx, b.RoomID, b.Range(), 0); err != nil {
				return err
			}
		}

		query := `INSERT INTO bookings (room_id, tenant_id, start_date, end_date, monthly_rent_cents, status, notes, created_by, created_on, updated_on)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
		now := r.clock.Now()
		logger.DatabaseCall("INSERT", "bookings", "roomID", b.RoomID)
		if err := tx.QueryRowContext(ctx, query, b.RoomID, b.TenantID, b.StartDate, nullableDate(b.EndDate), b.MonthlyRentCents, b.Status, b.Notes, b.CreatedBy, now, now).Scan(&b.ID); err != nil {
			return mapWriteError(err, b.RoomID, b.Range())
		}
		b.CreatedOn, b.UpdatedOn = now, now

		if b.Status == domain.BookingStatusActive {
			if err := applyLedger(ctx, tx, room, b.Range(), 1); err != nil {
				return err
			}
		}
		status, err := syncRoomStatus(ctx, tx, room, clock.Today(r.clock))
		if err != nil {
			return err
		}

		return r.emit(ctx, tx, domain.ChangeEvent{
			RoomID:     b.RoomID,
			BuildingID: room.BuildingID,
			TenantID:   b.TenantID,
			Action:     domain.ActionBookingCreated,
			BookingID:  b.ID,
			NewStatus:  b.Status,
			RoomStatus: status,
		})
	})
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Create", err, "roomID", b.RoomID)
		return err
	}
	logger.ExitMethod("bookingRepository.Create", "bookingID", b.ID)
	return nil
}

func (r *bookingRepository) Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error) {
	logger.EnterMethod("bookingRepository.Update", "bookingID", id)

	var updated domain.Booking
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		room, cur, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		next := patch.Apply(*cur)
		if err := validateTransition(cur, &next); err != nil {
			return err
		}

		rangeChanged := !sameRange(cur.Range(), next.Range())
		if next.Status.Blocking() && (rangeChanged || !cur.Status.Blocking()) {
			if err := checkConflicts(ctx, tx, room.ID, next.Range(), id); err != nil {
				return err
			}
		}

		next.UpdatedOn = r.clock.Now()
		query := `UPDATE bookings SET start_date=$1, end_date=$2, monthly_rent_cents=$3, status=$4, notes=$5, updated_on=$6 WHERE id=$7`
		logger.DatabaseCall("UPDATE", "bookings", "bookingID", id)
		if _, err := tx.ExecContext(ctx, query, next.StartDate, nullableDate(next.EndDate), next.MonthlyRentCents, next.Status, next.Notes, next.UpdatedOn, id); err != nil {
			return mapWriteError(err, room.ID, next.Range())
		}

		wasActive := cur.Status == domain.BookingStatusActive
		isActive := next.Status == domain.BookingStatusActive
		if wasActive != isActive || (isActive && rangeChanged) {
			if wasActive {
				if err := applyLedger(ctx, tx, room, cur.Range(), -1); err != nil {
					return err
				}
			}
			if isActive {
				if err := applyLedger(ctx, tx, room, next.Range(), 1); err != nil {
					return err
				}
			}
		}

		status, err := syncRoomStatus(ctx, tx, room, clock.Today(r.clock))
		if err != nil {
			return err
		}
		updated = next

		return r.emit(ctx, tx, domain.ChangeEvent{
			RoomID:     room.ID,
			BuildingID: room.BuildingID,
			TenantID:   next.TenantID,
			Action:     domain.ActionBookingUpdated,
			BookingID:  id,
			OldStatus:  cur.Status,
			NewStatus:  next.Status,
			RoomStatus: status,
		})
	})
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Update", err, "bookingID", id)
		return nil, err
	}
	logger.ExitMethod("bookingRepository.Update", "bookingID", id, "status", updated.Status)
	return &updated, nil
}

func (r *bookingRepository) Delete(ctx context.Context, id int64) (*domain.Booking, error) {
	logger.EnterMethod("bookingRepository.Delete", "bookingID", id)

	var deleted *domain.Booking
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		room, cur, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		logger.DatabaseCall("DELETE", "bookings", "bookingID", id)
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
			return err
		}
		if cur.Status == domain.BookingStatusActive {
			if err := applyLedger(ctx, tx, room, cur.Range(), -1); err != nil {
				return err
			}
		}
		status, err := syncRoomStatus(ctx, tx, room, clock.Today(r.clock))
		if err != nil {
			return err
		}
		deleted = cur

		return r.emit(ctx, tx, domain.ChangeEvent{
			RoomID:     room.ID,
			BuildingID: room.BuildingID,
			TenantID:   cur.TenantID,
			Action:     domain.ActionBookingDeleted,
			BookingID:  id,
			OldStatus:  cur.Status,
			RoomStatus: status,
		})
	})
	if err != nil {
		logger.ExitMethodWithError("bookingRepository.Delete", err, "bookingID", id)
		return nil, err
	}
	logger.ExitMethod("bookingRepository.Delete", "bookingID", id)
	return deleted, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func (r *bookingRepository) FindConflicts(ctx context.Context, roomID int64, dr domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	return findConflicts(ctx, r.db, roomID, dr, excludeID)
}

func (r *bookingRepository) ListExpirable(ctx context.Context, today time.Time, limit int) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE status IN ('active', 'pending') AND end_date IS NOT NULL AND end_date < $1
	          ORDER BY room_id, id LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, today, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// emit queues the change notification inside the transaction. Postgres only
// delivers NOTIFY payloads once the transaction commits, and drops them on rollback.
func (r *bookingRepository) emit(ctx context.Context, tx *sql.Tx, ev domain.ChangeEvent) error {
	return notify(ctx, tx, r.channel, r.clock, ev)
}

func notify(ctx context.Context, q querier, channel string, clk clock.Clock, ev domain.ChangeEvent) error {
	ev.EventID = uuid.NewString()
	ev.OccurredAt = clk.Now()
	payload, err := ev.Encode()
	if err != nil {
		return err
	}
	logger.DatabaseCall("NOTIFY", channel, "roomID", ev.RoomID, "action", ev.Action)
	_, err = q.ExecContext(ctx, `SELECT pg_notify($1, $2)`, channel, payload)
	return err
}

func lockRoom(ctx context.Context, q querier, roomID int64) (*lockedRoom, error) {
	room := &lockedRoom{}
	query := `SELECT id, building_id, capacity, status FROM rooms WHERE id = $1 FOR UPDATE`
	err := q.QueryRowContext(ctx, query, roomID).Scan(&room.ID, &room.BuildingID, &room.Capacity, &room.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock room %d: %w", roomID, err)
	}
	return room, nil
}

// lockBooking locks the owning room first and then the booking, the same order
// Create uses, so concurrent writers on one room queue instead of deadlocking.
func lockBooking(ctx context.Context, tx *sql.Tx, id int64) (*lockedRoom, *domain.Booking, error) {
	var roomID int64
	if err := tx.QueryRowContext(ctx, `SELECT room_id FROM bookings WHERE id = $1`, id).Scan(&roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrBookingNotFound
		}
		return nil, nil, err
	}
	room, err := lockRoom(ctx, tx, roomID)
	if err != nil {
		return nil, nil, err
	}
	b, err := scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return room, b, nil
}

func validateTransition(cur, next *domain.Booking) error {
	if !next.Status.Valid() {
		return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", next.Status)}
	}
	if cur.Status.Terminal() && next.Status != cur.Status {
		return &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("booking is already %s", cur.Status)}
	}
	if cur.Status.Terminal() && !sameRange(cur.Range(), next.Range()) {
		return &domain.ValidationError{Field: "start_date", Reason: fmt.Sprintf("dates of a %s booking cannot change", cur.Status)}
	}
	return next.Range().Validate()
}

func sameRange(a, b domain.DateRange) bool {
	if !a.Start.Equal(b.Start) {
		return false
	}
	if a.End == nil || b.End == nil {
		return a.End == nil && b.End == nil
	}
	return a.End.Equal(*b.End)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var end sql.NullTime
	if err := row.Scan(&b.ID, &b.RoomID, &b.TenantID, &b.StartDate, &end, &b.MonthlyRentCents, &b.Status, &b.Notes, &b.CreatedBy, &b.CreatedOn, &b.UpdatedOn); err != nil {
		return nil, err
	}
	b.StartDate = day(b.StartDate)
	b.EndDate = scanNullDate(end)
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]domain.Booking, error) {
	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// mapWriteError turns constraint violations raised by the database into domain errors.
func mapWriteError(err error, roomID int64, dr domain.DateRange) error {
	switch pqCode(err) {
	case pqExclusionViolation:
		return &domain.ConflictError{RoomID: roomID, Requested: dr}
	case pqCheckViolation:
		return &domain.ValidationError{Field: "booking", Reason: err.Error()}
	case pqForeignKeyViolation:
		return domain.ErrRoomNotFound
	}
	return err
}
