package service

import (
	"context"
	"time"

	"roomsync-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBookingRepo) Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) Delete(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) FindConflicts(ctx context.Context, roomID int64, r domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, roomID, r, excludeID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) ListExpirable(ctx context.Context, today time.Time, limit int) ([]domain.Booking, error) {
	args := m.Called(ctx, today, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockRoomRepo struct {
	mock.Mock
}

func (m *MockRoomRepo) Create(ctx context.Context, room *domain.Room, horizonDays int) error {
	args := m.Called(ctx, room, horizonDays)
	return args.Error(0)
}
func (m *MockRoomRepo) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}
func (m *MockRoomRepo) ListIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}
func (m *MockRoomRepo) GetBuildingStats(ctx context.Context, buildingID int64) (*domain.BuildingStats, error) {
	args := m.Called(ctx, buildingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuildingStats), args.Error(1)
}
func (m *MockRoomRepo) RefreshStatus(ctx context.Context, roomID int64) (*domain.Room, bool, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Room), args.Bool(1), args.Error(2)
}
func (m *MockRoomRepo) ListDerivedStatusRoomIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]int64), args.Error(1)
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) GetRange(ctx context.Context, roomID int64, from, to time.Time) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, roomID, from, to)
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}
func (m *MockLedgerRepo) ExtendHorizon(ctx context.Context, roomID int64, from, through time.Time) (int64, error) {
	args := m.Called(ctx, roomID, from, through)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockLedgerRepo) Rebuild(ctx context.Context, roomID int64) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAccessRepo struct {
	mock.Mock
}

func (m *MockAccessRepo) CanAccessBuilding(ctx context.Context, userID, buildingID int64) (bool, error) {
	args := m.Called(ctx, userID, buildingID)
	return args.Bool(0), args.Error(1)
}
func (m *MockAccessRepo) RoomBuilding(ctx context.Context, roomID int64) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

type MockEvictor struct {
	mock.Mock
}

func (m *MockEvictor) Handle(ctx context.Context, ev domain.ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
