package postgres

import (
	"context"
	"database/sql"
	"errors"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/repository"
)

type accessRepository struct {
	db *sql.DB
}

func NewAccessRepository(db *sql.DB) repository.AccessRepository {
	return &accessRepository{db: db}
}

func (r *accessRepository) CanAccessBuilding(ctx context.Context, userID, buildingID int64) (bool, error) {
	var ok bool
	query := `SELECT EXISTS (SELECT 1 FROM user_buildings WHERE user_id = $1 AND building_id = $2)`
	err := r.db.QueryRowContext(ctx, query, userID, buildingID).Scan(&ok)
	return ok, err
}

func (r *accessRepository) RoomBuilding(ctx context.Context, roomID int64) (int64, error) {
	var buildingID int64
	err := r.db.QueryRowContext(ctx, `SELECT building_id FROM rooms WHERE id = $1`, roomID).Scan(&buildingID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrRoomNotFound
	}
	return buildingID, err
}
