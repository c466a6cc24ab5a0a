package postgres

import (
	"database/sql"

	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/repository"

	_ "github.com/lib/pq"
)

// DefaultNotifyChannel is the LISTEN/NOTIFY channel booking mutations publish on.
const DefaultNotifyChannel = "booking_changes"

type Store struct {
	repository.BookingRepository
	repository.RoomRepository
	repository.LedgerRepository
	repository.AccessRepository
}

func NewStore(db *sql.DB, clk clock.Clock, channel string) *Store {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &Store{
		BookingRepository: NewBookingRepository(db, clk, channel),
		RoomRepository:    NewRoomRepository(db, clk, channel),
		LedgerRepository:  NewLedgerRepository(db),
		AccessRepository:  NewAccessRepository(db),
	}
}
