package cache

import (
	"context"
	"errors"
	"time"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
)

// BuildingResolver finds the building of a room for events that arrive
// without one.
type BuildingResolver interface {
	RoomBuilding(ctx context.Context, roomID int64) (int64, error)
}

// Invalidator evicts every cached view a change event makes stale.
type Invalidator struct {
	kv        KV
	buildings BuildingResolver
	opTimeout time.Duration
}

func NewInvalidator(kv KV, buildings BuildingResolver, opTimeout time.Duration) *Invalidator {
	return &Invalidator{kv: kv, buildings: buildings, opTimeout: opTimeout}
}

// Keys lists the fixed keys an event invalidates. Availability ranges are
// found by pattern at eviction time.
func (i *Invalidator) Keys(ev domain.ChangeEvent, buildingID int64) []string {
	keys := []string{RoomKey(ev.RoomID)}
	if ev.BookingID > 0 {
		keys = append(keys, BookingKey(ev.BookingID))
	}
	if buildingID > 0 {
		keys = append(keys, StatsKey(buildingID))
	}
	return keys
}

// GenerationKeys lists the fences an event moves.
func (i *Invalidator) GenerationKeys(ev domain.ChangeEvent, buildingID int64) []string {
	keys := []string{RoomGenerationKey(ev.RoomID)}
	if ev.BookingID > 0 {
		keys = append(keys, BookingGenerationKey(ev.BookingID))
	}
	if buildingID > 0 {
		keys = append(keys, BuildingGenerationKey(buildingID))
	}
	return keys
}

// Handle bumps the generations of the room, booking and building, then deletes
// the affected keys. Every step is attempted; the first failure is returned
// after the rest have run.
func (i *Invalidator) Handle(ctx context.Context, ev domain.ChangeEvent) error {
	ctx, cancel := context.WithTimeout(ctx, i.opTimeout)
	defer cancel()

	buildingID := ev.BuildingID
	if buildingID == 0 && i.buildings != nil {
		b, err := i.buildings.RoomBuilding(ctx, ev.RoomID)
		if err != nil {
			logger.Warn("cannot resolve building for invalidation", "room_id", ev.RoomID, "error", err)
		} else {
			buildingID = b
		}
	}

	var errs []error
	record := func(op string, err error) {
		logger.CacheResult(op, err, "room_id", ev.RoomID, "event_id", ev.EventID)
		if err != nil {
			errs = append(errs, err)
		}
	}

	for _, genKey := range i.GenerationKeys(ev, buildingID) {
		logger.CacheCall("INCR", genKey)
		_, err := i.kv.BumpGeneration(ctx, genKey)
		record("INCR", err)
	}

	keys := i.Keys(ev, buildingID)
	avail, err := i.kv.ScanKeys(ctx, AvailabilityPattern(ev.RoomID))
	record("SCAN", err)
	keys = append(keys, avail...)

	logger.CacheCall("DEL", keys...)
	record("DEL", i.kv.Del(ctx, keys...))

	if len(errs) > 0 {
		return &domain.TransientInfraError{Op: "cache invalidation", Err: errors.Join(errs...)}
	}
	return nil
}
