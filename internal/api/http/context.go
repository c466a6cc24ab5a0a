package http

import (
	"context"

	"roomsync-backend/internal/domain"
)

type ctxKey int

const userIDKey ctxKey = iota

func withUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated caller set by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(userIDKey).(int64)
	if !ok || id <= 0 {
		return 0, domain.ErrNotAuthenticated
	}
	return id, nil
}
