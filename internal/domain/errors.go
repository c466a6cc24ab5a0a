package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrRoomNotFound     = errors.New("room not found")
	ErrConflict         = errors.New("room not available for these dates")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("not authorized")
	ErrTransientInfra   = errors.New("transient infrastructure failure")
	ErrNotAuthenticated = errors.New("connection is not authenticated")
)

// ConflictError lists the bookings that overlap a proposed range. It is never
// retried automatically; the caller has to pick other dates.
type ConflictError struct {
	RoomID    int64
	Requested DateRange
	Conflicts []Booking
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, b := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("booking %d (%s, %s)", b.ID, b.Range(), b.Status))
	}
	return fmt.Sprintf("%s: room %d requested %s conflicts with %s",
		ErrConflict, e.RoomID, e.Requested, strings.Join(parts, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

type AuthorizationError struct {
	UserID   int64
	Resource string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: user %d cannot access %s", ErrUnauthorized, e.UserID, e.Resource)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

// TransientInfraError marks failures downstream of commit (relay, cache, broadcast).
// They are logged and absorbed, never surfaced to the write path.
type TransientInfraError struct {
	Op  string
	Err error
}

func (e *TransientInfraError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTransientInfra, e.Op, e.Err)
}

func (e *TransientInfraError) Unwrap() error { return e.Err }

func (e *TransientInfraError) Is(target error) bool { return target == ErrTransientInfra }
