package http

import (
	"context"
	"time"

	"roomsync-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateBooking(ctx context.Context, userID int64, b *domain.Booking) (*domain.Booking, error) {
	args := m.Called(ctx, userID, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) UpdateBooking(ctx context.Context, userID, bookingID int64, patch domain.BookingPatch) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) CancelBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) DeleteBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) GetBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, userID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingService) CheckAvailability(ctx context.Context, userID, roomID int64, r domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, userID, roomID, r, excludeID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockBookingService) ExpireBookings(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) ProvisionRoom(ctx context.Context, userID int64, room *domain.Room) (*domain.Room, error) {
	args := m.Called(ctx, userID, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}
func (m *MockRoomService) GetRoom(ctx context.Context, userID, roomID int64) (*domain.Room, error) {
	args := m.Called(ctx, userID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}
func (m *MockRoomService) GetAvailability(ctx context.Context, userID, roomID int64, from, to time.Time) (*domain.Availability, error) {
	args := m.Called(ctx, userID, roomID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Availability), args.Error(1)
}
func (m *MockRoomService) GetBuildingStats(ctx context.Context, userID, buildingID int64) (*domain.BuildingStats, error) {
	args := m.Called(ctx, userID, buildingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuildingStats), args.Error(1)
}
func (m *MockRoomService) RebuildLedger(ctx context.Context, roomID int64) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockRoomService) ExtendLedgerHorizon(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockRoomService) RefreshRoomStatuses(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
