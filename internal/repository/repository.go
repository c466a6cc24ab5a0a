package repository

import (
	"context"
	"time"

	"roomsync-backend/internal/domain"
)

// BookingRepository is the only write path to bookings. Every mutation runs in
// one transaction that checks conflicts, maintains the availability ledger and
// the room status, and queues exactly one change notification for commit.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error)
	// Delete physically removes a booking. Only used to clean up erroneous data.
	Delete(ctx context.Context, id int64) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)

	// FindConflicts is the read-only form of the conflict check.
	FindConflicts(ctx context.Context, roomID int64, r domain.DateRange, excludeID int64) ([]domain.Booking, error)
	ListExpirable(ctx context.Context, today time.Time, limit int) ([]domain.Booking, error)
}

type RoomRepository interface {
	// Create inserts the room and pre-populates its ledger through the horizon.
	Create(ctx context.Context, room *domain.Room, horizonDays int) error
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	ListIDs(ctx context.Context) ([]int64, error)
	GetBuildingStats(ctx context.Context, buildingID int64) (*domain.BuildingStats, error)
	// RefreshStatus re-derives available/occupied for today and reports whether it changed.
	RefreshStatus(ctx context.Context, roomID int64) (*domain.Room, bool, error)
	ListDerivedStatusRoomIDs(ctx context.Context) ([]int64, error)
}

// LedgerRepository exposes reads and maintenance of the derived per-day ledger.
// Booking-driven ledger writes happen only inside BookingRepository.
type LedgerRepository interface {
	GetRange(ctx context.Context, roomID int64, from, to time.Time) ([]domain.LedgerEntry, error)
	// ExtendHorizon seeds one room's missing rows under the room lock.
	ExtendHorizon(ctx context.Context, roomID int64, from, through time.Time) (int64, error)
	Rebuild(ctx context.Context, roomID int64) (int64, error)
}

type AccessRepository interface {
	CanAccessBuilding(ctx context.Context, userID, buildingID int64) (bool, error)
	RoomBuilding(ctx context.Context, roomID int64) (int64, error)
}
