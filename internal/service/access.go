package service

import (
	"context"
	"fmt"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/repository"
)

type accessGuard struct {
	repo repository.AccessRepository
}

// room checks that userID may act on roomID and returns the room's building.
func (g accessGuard) room(ctx context.Context, userID, roomID int64) (int64, error) {
	buildingID, err := g.repo.RoomBuilding(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if err := g.building(ctx, userID, buildingID); err != nil {
		return 0, err
	}
	return buildingID, nil
}

func (g accessGuard) building(ctx context.Context, userID, buildingID int64) error {
	ok, err := g.repo.CanAccessBuilding(ctx, userID, buildingID)
	if err != nil {
		return fmt.Errorf("check building access: %w", err)
	}
	if !ok {
		return &domain.AuthorizationError{UserID: userID, Resource: domain.BuildingTopic(buildingID).String()}
	}
	return nil
}
