package service

import (
	"context"
	"testing"
	"time"

	"roomsync-backend/internal/cache"
	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type roomFixture struct {
	svc     *roomService
	rooms   *MockRoomRepo
	ledger  *MockLedgerRepo
	access  *MockAccessRepo
	evictor *MockEvictor
}

func newRoomFixture(c *cache.Cache) roomFixture {
	f := roomFixture{
		rooms:   new(MockRoomRepo),
		ledger:  new(MockLedgerRepo),
		access:  new(MockAccessRepo),
		evictor: new(MockEvictor),
	}
	f.svc = NewRoomService(f.rooms, f.ledger, f.access, c, f.evictor, clock.NewFixed(date("2024-01-01").Add(15*time.Hour)), 30).(*roomService)
	return f
}

func TestRoomService_ProvisionRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newRoomFixture(nil)
		room := &domain.Room{BuildingID: 1, Number: " 101 ", Capacity: 1}
		f.access.On("CanAccessBuilding", ctx, int64(7), int64(1)).Return(true, nil)
		f.rooms.On("Create", ctx, room, 30).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Room).ID = 101
		}).Return(nil)

		res, err := f.svc.ProvisionRoom(ctx, 7, room)
		assert.NoError(t, err)
		assert.Equal(t, int64(101), res.ID)
		assert.Equal(t, "101", res.Number)
		assert.Equal(t, domain.RoomStatusAvailable, res.Status)
	})

	t.Run("ZeroCapacity", func(t *testing.T) {
		f := newRoomFixture(nil)
		_, err := f.svc.ProvisionRoom(ctx, 7, &domain.Room{BuildingID: 1, Number: "102"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("ForeignBuilding", func(t *testing.T) {
		f := newRoomFixture(nil)
		f.access.On("CanAccessBuilding", ctx, int64(8), int64(1)).Return(false, nil)
		_, err := f.svc.ProvisionRoom(ctx, 8, &domain.Room{BuildingID: 1, Number: "103", Capacity: 2})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		f.rooms.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRoomService_GetAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newRoomFixture(nil)
		from, to := date("2024-01-01"), date("2024-01-10")
		entries := []domain.LedgerEntry{{RoomID: 101, Date: from, AvailableSlots: 0, BookedSlots: 1}}
		f.access.On("RoomBuilding", ctx, int64(101)).Return(int64(1), nil)
		f.access.On("CanAccessBuilding", ctx, int64(7), int64(1)).Return(true, nil)
		f.ledger.On("GetRange", ctx, int64(101), from, to).Return(entries, nil)

		av, err := f.svc.GetAvailability(ctx, 7, 101, from, to)
		require.NoError(t, err)
		assert.Equal(t, entries, av.Entries)
	})

	t.Run("InvertedWindow", func(t *testing.T) {
		f := newRoomFixture(nil)
		_, err := f.svc.GetAvailability(ctx, 7, 101, date("2024-01-10"), date("2024-01-01"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("WindowTooLarge", func(t *testing.T) {
		f := newRoomFixture(nil)
		_, err := f.svc.GetAvailability(ctx, 7, 101, date("2024-01-01"), date("2025-06-01"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestRoomService_CachedReads(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(mr.Addr(), "", 0)
	defer client.Close()
	kv := cache.NewRedisKV(client)
	c := cache.New(kv, time.Minute, time.Second)

	f := newRoomFixture(c)
	room := &domain.Room{ID: 101, BuildingID: 1, Number: "101", Capacity: 1, Status: domain.RoomStatusAvailable}
	f.rooms.On("GetByID", mock.Anything, int64(101)).Return(room, nil).Once()
	f.access.On("CanAccessBuilding", ctx, int64(7), int64(1)).Return(true, nil)

	first, err := f.svc.GetRoom(ctx, 7, 101)
	require.NoError(t, err)
	second, err := f.svc.GetRoom(ctx, 7, 101)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	f.rooms.AssertNumberOfCalls(t, "GetByID", 1)

	// A committed change evicts the entry; the next read goes to storage.
	inv := cache.NewInvalidator(kv, nil, time.Second)
	require.NoError(t, inv.Handle(ctx, domain.ChangeEvent{
		RoomID: 101, BuildingID: 1, BookingID: 5, Action: domain.ActionBookingCreated, OccurredAt: time.Now(),
	}))
	occupied := *room
	occupied.Status = domain.RoomStatusOccupied
	f.rooms.On("GetByID", mock.Anything, int64(101)).Return(&occupied, nil).Once()

	third, err := f.svc.GetRoom(ctx, 7, 101)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusOccupied, third.Status)
	f.rooms.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestRoomService_GetBuildingStats(t *testing.T) {
	ctx := context.Background()
	f := newRoomFixture(nil)
	stats := &domain.BuildingStats{BuildingID: 1, TotalRooms: 2, StatusCount: map[domain.RoomStatus]int32{domain.RoomStatusOccupied: 1, domain.RoomStatusAvailable: 1}}
	f.access.On("CanAccessBuilding", ctx, int64(7), int64(1)).Return(true, nil)
	f.rooms.On("GetBuildingStats", ctx, int64(1)).Return(stats, nil)

	res, err := f.svc.GetBuildingStats(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), res.TotalRooms)
}

func TestRoomService_RebuildLedger(t *testing.T) {
	ctx := context.Background()
	f := newRoomFixture(nil)
	f.ledger.On("Rebuild", ctx, int64(101)).Return(int64(31), nil)
	f.evictor.On("Handle", ctx, mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.RoomID == 101 && ev.Action == domain.ActionRoomStatusChanged
	})).Return(nil)

	n, err := f.svc.RebuildLedger(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, int64(31), n)
	f.evictor.AssertExpectations(t)
}

func TestRoomService_ExtendLedgerHorizon(t *testing.T) {
	ctx := context.Background()

	t.Run("EvictsRoomsThatGainedRows", func(t *testing.T) {
		f := newRoomFixture(nil)
		f.rooms.On("ListIDs", ctx).Return([]int64{101, 102}, nil)
		f.ledger.On("ExtendHorizon", ctx, int64(101), date("2024-01-01"), date("2024-01-31")).Return(int64(12), nil)
		f.ledger.On("ExtendHorizon", ctx, int64(102), date("2024-01-01"), date("2024-01-31")).Return(int64(0), nil)
		f.evictor.On("Handle", ctx, mock.MatchedBy(func(ev domain.ChangeEvent) bool {
			return ev.RoomID == 101
		})).Return(nil).Once()

		n, err := f.svc.ExtendLedgerHorizon(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)
		f.evictor.AssertExpectations(t)
		f.evictor.AssertNumberOfCalls(t, "Handle", 1)
	})

	t.Run("CachedRangeSeesNewDays", func(t *testing.T) {
		mr := miniredis.RunT(t)
		kv := cache.NewRedisKV(cache.NewRedisClient(mr.Addr(), "", 0))
		f := newRoomFixture(cache.New(kv, time.Minute, time.Second))
		f.svc.evictor = cache.NewInvalidator(kv, nil, time.Second)

		from, to := date("2024-01-30"), date("2024-02-02")
		f.access.On("CanAccessBuilding", ctx, int64(7), int64(1)).Return(true, nil)
		f.access.On("RoomBuilding", ctx, int64(101)).Return(int64(1), nil)
		short := []domain.LedgerEntry{{RoomID: 101, Date: from}, {RoomID: 101, Date: date("2024-01-31")}}
		long := append(short, domain.LedgerEntry{RoomID: 101, Date: date("2024-02-01")}, domain.LedgerEntry{RoomID: 101, Date: to})
		f.ledger.On("GetRange", ctx, int64(101), from, to).Return(short, nil).Once()
		f.ledger.On("GetRange", ctx, int64(101), from, to).Return(long, nil).Once()

		res, err := f.svc.GetAvailability(ctx, 7, 101, from, to)
		require.NoError(t, err)
		require.Len(t, res.Entries, 2)

		f.rooms.On("ListIDs", ctx).Return([]int64{101}, nil)
		f.ledger.On("ExtendHorizon", ctx, int64(101), date("2024-01-01"), date("2024-01-31")).Return(int64(1), nil)
		_, err = f.svc.ExtendLedgerHorizon(ctx)
		require.NoError(t, err)

		res, err = f.svc.GetAvailability(ctx, 7, 101, from, to)
		require.NoError(t, err)
		assert.Len(t, res.Entries, 4)
	})

	t.Run("OneRoomFailing", func(t *testing.T) {
		f := newRoomFixture(nil)
		f.rooms.On("ListIDs", ctx).Return([]int64{101, 102}, nil)
		f.ledger.On("ExtendHorizon", ctx, int64(101), date("2024-01-01"), date("2024-01-31")).Return(int64(0), domain.ErrRoomNotFound)
		f.ledger.On("ExtendHorizon", ctx, int64(102), date("2024-01-01"), date("2024-01-31")).Return(int64(31), nil)
		f.evictor.On("Handle", ctx, mock.Anything).Return(nil)

		n, err := f.svc.ExtendLedgerHorizon(ctx)
		assert.ErrorIs(t, err, domain.ErrRoomNotFound)
		assert.Equal(t, int64(31), n)
		f.ledger.AssertExpectations(t)
	})
}

func TestRoomService_RefreshRoomStatuses(t *testing.T) {
	ctx := context.Background()
	f := newRoomFixture(nil)
	f.rooms.On("ListDerivedStatusRoomIDs", ctx).Return([]int64{1, 2, 3}, nil)
	f.rooms.On("RefreshStatus", ctx, int64(1)).Return(&domain.Room{ID: 1}, true, nil)
	f.rooms.On("RefreshStatus", ctx, int64(2)).Return(nil, false, domain.ErrRoomNotFound)
	f.rooms.On("RefreshStatus", ctx, int64(3)).Return(&domain.Room{ID: 3}, false, nil)

	n, err := f.svc.RefreshRoomStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
