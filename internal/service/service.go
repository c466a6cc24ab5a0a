package service

import (
	"context"
	"time"

	"roomsync-backend/internal/domain"
)

// BookingService is the write surface the route layer calls. Every mutation
// goes through the repository transaction that keeps the ledger, the room
// status and the change feed consistent.
type BookingService interface {
	CreateBooking(ctx context.Context, userID int64, booking *domain.Booking) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, userID, bookingID int64, patch domain.BookingPatch) (*domain.Booking, error)
	CancelBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error)
	DeleteBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error)
	GetBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error)
	CheckAvailability(ctx context.Context, userID, roomID int64, r domain.DateRange, excludeID int64) ([]domain.Booking, error)
	ExpireBookings(ctx context.Context, limit int) (int, error)
}

type RoomService interface {
	ProvisionRoom(ctx context.Context, userID int64, room *domain.Room) (*domain.Room, error)
	GetRoom(ctx context.Context, userID, roomID int64) (*domain.Room, error)
	GetAvailability(ctx context.Context, userID, roomID int64, from, to time.Time) (*domain.Availability, error)
	GetBuildingStats(ctx context.Context, userID, buildingID int64) (*domain.BuildingStats, error)
	RebuildLedger(ctx context.Context, roomID int64) (int64, error)
	ExtendLedgerHorizon(ctx context.Context) (int64, error)
	RefreshRoomStatuses(ctx context.Context) (int, error)
}
