package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/repository"
)

type roomRepository struct {
	db      *sql.DB
	clock   clock.Clock
	channel string
}

func NewRoomRepository(db *sql.DB, clk clock.Clock, channel string) repository.RoomRepository {
	return &roomRepository{db: db, clock: clk, channel: channel}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room, horizonDays int) error {
	logger.EnterMethod("roomRepository.Create", "buildingID", room.BuildingID, "number", room.Number)
	if room.Status == "" {
		room.Status = domain.RoomStatusAvailable
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		now := r.clock.Now()
		query := `INSERT INTO rooms (building_id, number, capacity, status, created_on, updated_on)
		          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		if err := tx.QueryRowContext(ctx, query, room.BuildingID, room.Number, room.Capacity, room.Status, now, now).Scan(&room.ID); err != nil {
			if pqCode(err) == pqForeignKeyViolation {
				return &domain.ValidationError{Field: "building_id", Reason: "unknown building"}
			}
			return err
		}
		room.CreatedOn, room.UpdatedOn = now, now

		today := clock.Today(r.clock)
		through := today.AddDate(0, 0, horizonDays)
		seed := `INSERT INTO room_availability (room_id, date, available_slots, booked_slots)
		         SELECT $1, gs::date, $2, 0 FROM generate_series($3::date, $4::date, interval '1 day') gs
		         ON CONFLICT (room_id, date) DO NOTHING`
		logger.DatabaseCall("INSERT", "room_availability", "roomID", room.ID, "through", through)
		_, err := tx.ExecContext(ctx, seed, room.ID, room.Capacity, today, through)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("roomRepository.Create", err)
		return err
	}
	logger.ExitMethod("roomRepository.Create", "roomID", room.ID)
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	room := &domain.Room{}
	query := `SELECT id, building_id, number, capacity, status, created_on, updated_on FROM rooms WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&room.ID, &room.BuildingID, &room.Number, &room.Capacity, &room.Status, &room.CreatedOn, &room.UpdatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *roomRepository) GetBuildingStats(ctx context.Context, buildingID int64) (*domain.BuildingStats, error) {
	stats := &domain.BuildingStats{
		BuildingID:  buildingID,
		StatusCount: make(map[domain.RoomStatus]int32),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM rooms WHERE building_id = $1 GROUP BY status`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.RoomStatus
		var count int32
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.StatusCount[status] = count
		stats.TotalRooms += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query := `SELECT
	              count(*) FILTER (WHERE b.status = 'active'),
	              count(*) FILTER (WHERE b.status = 'pending')
	          FROM bookings b JOIN rooms r ON r.id = b.room_id
	          WHERE r.building_id = $1`
	if err := r.db.QueryRowContext(ctx, query, buildingID).Scan(&stats.ActiveBookings, &stats.PendingCount); err != nil {
		return nil, err
	}
	return stats, nil
}

// RefreshStatus re-derives the room's occupied/available status for today and
// notifies listeners when it flipped.
func (r *roomRepository) RefreshStatus(ctx context.Context, roomID int64) (*domain.Room, bool, error) {
	var changed bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		locked, err := lockRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		status, err := syncRoomStatus(ctx, tx, locked, clock.Today(r.clock))
		if err != nil {
			return err
		}
		if status == locked.Status {
			return nil
		}
		changed = true
		return notify(ctx, tx, r.channel, r.clock, domain.ChangeEvent{
			RoomID:     roomID,
			BuildingID: locked.BuildingID,
			Action:     domain.ActionRoomStatusChanged,
			RoomStatus: status,
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("refresh room %d status: %w", roomID, err)
	}
	room, err := r.GetByID(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	return room, changed, nil
}

func (r *roomRepository) ListIDs(ctx context.Context) ([]int64, error) {
	return r.queryIDs(ctx, `SELECT id FROM rooms ORDER BY id`)
}

func (r *roomRepository) ListDerivedStatusRoomIDs(ctx context.Context) ([]int64, error) {
	return r.queryIDs(ctx, `SELECT id FROM rooms WHERE status IN ('available', 'occupied') ORDER BY id`)
}

func (r *roomRepository) queryIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
