package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roomsync-backend/internal/cache"
	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/repository"
)

// MaxAvailabilityWindow bounds a single availability read.
const MaxAvailabilityWindow = 366 * 24 * time.Hour

// Evictor drops cached views of a room after out-of-band ledger maintenance.
type Evictor interface {
	Handle(ctx context.Context, ev domain.ChangeEvent) error
}

type roomService struct {
	roomRepo    repository.RoomRepository
	ledgerRepo  repository.LedgerRepository
	guard       accessGuard
	cache       *cache.Cache
	evictor     Evictor
	clock       clock.Clock
	horizonDays int
}

func NewRoomService(
	roomRepo repository.RoomRepository,
	ledgerRepo repository.LedgerRepository,
	accessRepo repository.AccessRepository,
	c *cache.Cache,
	evictor Evictor,
	clk clock.Clock,
	horizonDays int,
) RoomService {
	return &roomService{
		roomRepo:    roomRepo,
		ledgerRepo:  ledgerRepo,
		guard:       accessGuard{repo: accessRepo},
		cache:       c,
		evictor:     evictor,
		clock:       clk,
		horizonDays: horizonDays,
	}
}

func (s *roomService) ProvisionRoom(ctx context.Context, userID int64, room *domain.Room) (*domain.Room, error) {
	logger.EnterMethod("roomService.ProvisionRoom", "userID", userID, "buildingID", room.BuildingID, "number", room.Number)

	room.Number = strings.TrimSpace(room.Number)
	if room.Number == "" {
		return nil, &domain.ValidationError{Field: "number", Reason: "is required"}
	}
	if room.Capacity < 1 {
		return nil, &domain.ValidationError{Field: "capacity", Reason: "must be at least 1"}
	}
	if room.Status == "" {
		room.Status = domain.RoomStatusAvailable
	}
	if err := s.guard.building(ctx, userID, room.BuildingID); err != nil {
		logger.ExitMethodWithError("roomService.ProvisionRoom", err, "buildingID", room.BuildingID)
		return nil, err
	}

	if err := s.roomRepo.Create(ctx, room, s.horizonDays); err != nil {
		logger.ExitMethodWithError("roomService.ProvisionRoom", err, "buildingID", room.BuildingID)
		return nil, err
	}

	logger.ExitMethod("roomService.ProvisionRoom", "roomID", room.ID)
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, userID, roomID int64) (*domain.Room, error) {
	room, err := cache.ReadThrough(ctx, s.cache, cache.RoomKey(roomID), cache.RoomGenerationKey(roomID),
		func(ctx context.Context) (*domain.Room, error) {
			return s.roomRepo.GetByID(ctx, roomID)
		})
	if err != nil {
		return nil, err
	}
	if err := s.guard.building(ctx, userID, room.BuildingID); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *roomService) GetAvailability(ctx context.Context, userID, roomID int64, from, to time.Time) (*domain.Availability, error) {
	from, to = day(from), day(to)
	if to.Before(from) {
		return nil, &domain.ValidationError{Field: "to", Reason: "must not be before from"}
	}
	if to.Sub(from) > MaxAvailabilityWindow {
		return nil, &domain.ValidationError{Field: "to", Reason: fmt.Sprintf("window exceeds %d days", int(MaxAvailabilityWindow.Hours()/24))}
	}
	if _, err := s.guard.room(ctx, userID, roomID); err != nil {
		return nil, err
	}

	return cache.ReadThrough(ctx, s.cache, cache.AvailabilityKey(roomID, from, to), cache.RoomGenerationKey(roomID),
		func(ctx context.Context) (*domain.Availability, error) {
			entries, err := s.ledgerRepo.GetRange(ctx, roomID, from, to)
			if err != nil {
				return nil, err
			}
			return &domain.Availability{RoomID: roomID, From: from, To: to, Entries: entries}, nil
		})
}

func (s *roomService) GetBuildingStats(ctx context.Context, userID, buildingID int64) (*domain.BuildingStats, error) {
	if err := s.guard.building(ctx, userID, buildingID); err != nil {
		return nil, err
	}
	return cache.ReadThrough(ctx, s.cache, cache.StatsKey(buildingID), cache.BuildingGenerationKey(buildingID),
		func(ctx context.Context) (*domain.BuildingStats, error) {
			return s.roomRepo.GetBuildingStats(ctx, buildingID)
		})
}

// RebuildLedger recomputes a room's ledger rows from its active bookings.
func (s *roomService) RebuildLedger(ctx context.Context, roomID int64) (int64, error) {
	logger.EnterMethod("roomService.RebuildLedger", "roomID", roomID)

	rows, err := s.ledgerRepo.Rebuild(ctx, roomID)
	if err != nil {
		logger.ExitMethodWithError("roomService.RebuildLedger", err, "roomID", roomID)
		return 0, err
	}
	s.evict(ctx, roomID)

	logger.ExitMethod("roomService.RebuildLedger", "roomID", roomID, "rows", rows)
	return rows, nil
}

// ExtendLedgerHorizon makes sure every room has ledger rows through
// today plus the configured horizon. Rooms that gained rows lose their
// cached availability ranges.
func (s *roomService) ExtendLedgerHorizon(ctx context.Context) (int64, error) {
	today := clock.Today(s.clock)
	through := today.AddDate(0, 0, s.horizonDays)
	logger.EnterMethod("roomService.ExtendLedgerHorizon", "from", today.Format(domain.DateLayout), "through", through.Format(domain.DateLayout))

	ids, err := s.roomRepo.ListIDs(ctx)
	if err != nil {
		logger.ExitMethodWithError("roomService.ExtendLedgerHorizon", err)
		return 0, err
	}

	var inserted int64
	var firstErr error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		n, err := s.ledgerRepo.ExtendHorizon(ctx, id, today, through)
		if err != nil {
			logger.Warn("ledger horizon extension failed", "roomID", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if n > 0 {
			inserted += n
			s.evict(ctx, id)
		}
	}
	if firstErr != nil {
		logger.ExitMethodWithError("roomService.ExtendLedgerHorizon", firstErr, "inserted", inserted)
		return inserted, firstErr
	}

	logger.ExitMethod("roomService.ExtendLedgerHorizon", "rooms", len(ids), "inserted", inserted)
	return inserted, nil
}

func (s *roomService) evict(ctx context.Context, roomID int64) {
	if s.evictor == nil {
		return
	}
	ev := domain.ChangeEvent{RoomID: roomID, Action: domain.ActionRoomStatusChanged, OccurredAt: s.clock.Now()}
	if err := s.evictor.Handle(ctx, ev); err != nil {
		logger.Warn("cache eviction after ledger maintenance failed", "roomID", roomID, "error", err)
	}
}

// RefreshRoomStatuses re-derives available/occupied for every room whose
// status is booking-driven, as "today" moves. Changed rooms emit an event.
func (s *roomService) RefreshRoomStatuses(ctx context.Context) (int, error) {
	logger.EnterMethod("roomService.RefreshRoomStatuses")

	ids, err := s.roomRepo.ListDerivedStatusRoomIDs(ctx)
	if err != nil {
		logger.ExitMethodWithError("roomService.RefreshRoomStatuses", err)
		return 0, err
	}

	changed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		_, ok, err := s.roomRepo.RefreshStatus(ctx, id)
		if err != nil {
			logger.Warn("room status refresh failed", "roomID", id, "error", err)
			continue
		}
		if ok {
			changed++
		}
	}

	logger.ExitMethod("roomService.RefreshRoomStatuses", "rooms", len(ids), "changed", changed)
	return changed, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
