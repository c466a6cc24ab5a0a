package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomsync-backend/internal/domain"
)

var roomCols = []string{"id", "building_id", "number", "capacity", "status", "created_on", "updated_on"}

func TestRoomRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("SeedsLedgerHorizon", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		room := &domain.Room{BuildingID: 1, Number: "3B", Capacity: 2}

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO rooms").
			WithArgs(int64(1), "3B", int32(2), "available", testNow, testNow).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
		mock.ExpectExec("INSERT INTO room_availability").
			WithArgs(int64(101), int32(2), testToday, testToday.AddDate(0, 0, 30)).
			WillReturnResult(sqlmock.NewResult(0, 31))
		mock.ExpectCommit()

		require.NoError(t, store.RoomRepository.Create(ctx, room, 30))
		assert.Equal(t, int64(101), room.ID)
		assert.Equal(t, domain.RoomStatusAvailable, room.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownBuilding", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO rooms").
			WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		err := store.RoomRepository.Create(ctx, &domain.Room{BuildingID: 99, Number: "1", Capacity: 1}, 30)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "building_id", verr.Field)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRoomRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, done, store := newBookingRepo(t)
	defer done()

	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = \\$1").
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows(roomCols).AddRow(101, 1, "3B", 2, "occupied", testNow, testNow))
	mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = \\$1").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(roomCols))

	room, err := store.RoomRepository.GetByID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusOccupied, room.Status)
	assert.Equal(t, int32(2), room.Capacity)

	_, err = store.RoomRepository.GetByID(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_GetBuildingStats(t *testing.T) {
	ctx := context.Background()
	mock, done, store := newBookingRepo(t)
	defer done()

	mock.ExpectQuery("SELECT status, count\\(\\*\\) FROM rooms WHERE building_id = \\$1 GROUP BY status").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("available", 3).
			AddRow("occupied", 2).
			AddRow("maintenance", 1))
	mock.ExpectQuery("FROM bookings b JOIN rooms r ON r.id = b.room_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"active", "pending"}).AddRow(2, 4))

	stats, err := store.RoomRepository.GetBuildingStats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(6), stats.TotalRooms)
	assert.Equal(t, int32(2), stats.StatusCount[domain.RoomStatusOccupied])
	assert.Equal(t, int32(1), stats.StatusCount[domain.RoomStatusMaintenance])
	assert.EqualValues(t, 2, stats.ActiveBookings)
	assert.EqualValues(t, 4, stats.PendingCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_RefreshStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("FlipNotifies", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		mock.ExpectBegin()
		expectLockRoom(mock, 101, 1, 1, "occupied")
		mock.ExpectQuery("UPDATE rooms").
			WithArgs(int64(101), testToday).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("available"))
		mock.ExpectExec("SELECT pg_notify").
			WithArgs("booking_changes", eventArg{action: domain.ActionRoomStatusChanged, roomID: 101}).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = \\$1").
			WillReturnRows(sqlmock.NewRows(roomCols).AddRow(101, 1, "3B", 1, "available", testNow, testNow))

		room, changed, err := store.RoomRepository.RefreshStatus(ctx, 101)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, domain.RoomStatusAvailable, room.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnchangedIsSilent", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		mock.ExpectBegin()
		expectLockRoom(mock, 101, 1, 1, "occupied")
		mock.ExpectQuery("UPDATE rooms").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("occupied"))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = \\$1").
			WillReturnRows(sqlmock.NewRows(roomCols).AddRow(101, 1, "3B", 1, "occupied", testNow, testNow))

		_, changed, err := store.RoomRepository.RefreshStatus(ctx, 101)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StaffStatusIsKept", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		mock.ExpectBegin()
		expectLockRoom(mock, 101, 1, 1, "maintenance")
		mock.ExpectQuery("UPDATE rooms").
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectCommit()
		mock.ExpectQuery("SELECT (.+) FROM rooms WHERE id = \\$1").
			WillReturnRows(sqlmock.NewRows(roomCols).AddRow(101, 1, "3B", 1, "maintenance", testNow, testNow))

		room, changed, err := store.RoomRepository.RefreshStatus(ctx, 101)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, domain.RoomStatusMaintenance, room.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRoomRepository_ListIDs(t *testing.T) {
	mock, done, store := newBookingRepo(t)
	defer done()

	mock.ExpectQuery("SELECT id FROM rooms ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101).AddRow(102).AddRow(201))

	ids, err := store.RoomRepository.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102, 201}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepository_ListDerivedStatusRoomIDs(t *testing.T) {
	mock, done, store := newBookingRepo(t)
	defer done()

	mock.ExpectQuery("SELECT id FROM rooms WHERE status IN \\('available', 'occupied'\\)").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101).AddRow(102))

	ids, err := store.RoomRepository.ListDerivedStatusRoomIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("GetRange", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		from, to := date(2025, time.March, 1), date(2025, time.March, 2)
		mock.ExpectQuery("SELECT room_id, date, available_slots, booked_slots FROM room_availability").
			WithArgs(int64(101), from, to).
			WillReturnRows(sqlmock.NewRows([]string{"room_id", "date", "available_slots", "booked_slots"}).
				AddRow(101, from, 0, 1).
				AddRow(101, to, 1, 0))

		entries, err := store.LedgerRepository.GetRange(ctx, 101, from, to)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, int32(1), entries[0].BookedSlots)
		assert.Equal(t, int32(1), entries[1].AvailableSlots)
	})

	t.Run("ExtendHorizonLocksRoom", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		through := testToday.AddDate(0, 0, 365)
		mock.ExpectBegin()
		expectLockRoom(mock, 101, 1, 2, "available")
		mock.ExpectExec("INSERT INTO room_availability (.+) WHERE r.id = \\$1 ON CONFLICT \\(room_id, date\\) DO NOTHING").
			WithArgs(int64(101), testToday, through).
			WillReturnResult(sqlmock.NewResult(0, 12))
		mock.ExpectCommit()

		n, err := store.LedgerRepository.ExtendHorizon(ctx, 101, testToday, through)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExtendHorizonUnknownRoom", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id, building_id, capacity, status FROM rooms WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := store.LedgerRepository.ExtendHorizon(ctx, 404, testToday, testToday)
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RebuildLocksRoom", func(t *testing.T) {
		mock, done, store := newBookingRepo(t)
		defer done()

		mock.ExpectBegin()
		expectLockRoom(mock, 101, 1, 1, "occupied")
		mock.ExpectExec("UPDATE room_availability a").
			WithArgs(int64(101)).
			WillReturnResult(sqlmock.NewResult(0, 366))
		mock.ExpectCommit()

		n, err := store.LedgerRepository.Rebuild(ctx, 101)
		require.NoError(t, err)
		assert.Equal(t, int64(366), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccessRepository(t *testing.T) {
	ctx := context.Background()
	mock, done, store := newBookingRepo(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT building_id FROM rooms WHERE id = \\$1").
		WithArgs(int64(101)).
		WillReturnRows(sqlmock.NewRows([]string{"building_id"}).AddRow(1))
	mock.ExpectQuery("SELECT building_id FROM rooms WHERE id = \\$1").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"building_id"}))

	ok, err := store.AccessRepository.CanAccessBuilding(ctx, 7, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	buildingID, err := store.AccessRepository.RoomBuilding(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(1), buildingID)

	_, err = store.AccessRepository.RoomBuilding(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
