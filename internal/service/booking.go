package service

import (
	"context"
	"errors"
	"fmt"

	"roomsync-backend/internal/cache"
	"roomsync-backend/internal/clock"
	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
	"roomsync-backend/internal/repository"
)

type bookingService struct {
	bookingRepo repository.BookingRepository
	guard       accessGuard
	cache       *cache.Cache
	clock       clock.Clock
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	accessRepo repository.AccessRepository,
	c *cache.Cache,
	clk clock.Clock,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		guard:       accessGuard{repo: accessRepo},
		cache:       c,
		clock:       clk,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, userID int64, booking *domain.Booking) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CreateBooking", "userID", userID, "roomID", booking.RoomID)

	if booking.Status == "" {
		booking.Status = domain.BookingStatusActive
	}
	if err := booking.Range().Validate(); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "roomID", booking.RoomID)
		return nil, err
	}
	if booking.Status.Terminal() {
		err := &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("cannot create a %s booking", booking.Status)}
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "roomID", booking.RoomID)
		return nil, err
	}
	if _, err := s.guard.room(ctx, userID, booking.RoomID); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "roomID", booking.RoomID)
		return nil, err
	}

	booking.CreatedBy = userID
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err, "roomID", booking.RoomID)
		return nil, err
	}

	logger.ExitMethod("bookingService.CreateBooking", "bookingID", booking.ID, "status", booking.Status)
	return booking, nil
}

func (s *bookingService) UpdateBooking(ctx context.Context, userID, bookingID int64, patch domain.BookingPatch) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.UpdateBooking", "userID", userID, "bookingID", bookingID)

	if _, err := s.authorizeBooking(ctx, userID, bookingID); err != nil {
		logger.ExitMethodWithError("bookingService.UpdateBooking", err, "bookingID", bookingID)
		return nil, err
	}
	updated, err := s.bookingRepo.Update(ctx, bookingID, patch)
	if err != nil {
		logger.ExitMethodWithError("bookingService.UpdateBooking", err, "bookingID", bookingID)
		return nil, err
	}

	logger.ExitMethod("bookingService.UpdateBooking", "bookingID", bookingID, "status", updated.Status)
	return updated, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	cancelled := domain.BookingStatusCancelled
	return s.UpdateBooking(ctx, userID, bookingID, domain.BookingPatch{Status: &cancelled})
}

// DeleteBooking removes erroneous data. Normal lifecycle ends use CancelBooking.
func (s *bookingService) DeleteBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.DeleteBooking", "userID", userID, "bookingID", bookingID)

	if _, err := s.authorizeBooking(ctx, userID, bookingID); err != nil {
		logger.ExitMethodWithError("bookingService.DeleteBooking", err, "bookingID", bookingID)
		return nil, err
	}
	deleted, err := s.bookingRepo.Delete(ctx, bookingID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.DeleteBooking", err, "bookingID", bookingID)
		return nil, err
	}

	logger.ExitMethod("bookingService.DeleteBooking", "bookingID", bookingID, "roomID", deleted.RoomID)
	return deleted, nil
}

func (s *bookingService) GetBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	return s.authorizeBooking(ctx, userID, bookingID)
}

func (s *bookingService) authorizeBooking(ctx context.Context, userID, bookingID int64) (*domain.Booking, error) {
	b, err := cache.ReadThrough(ctx, s.cache, cache.BookingKey(bookingID), cache.BookingGenerationKey(bookingID),
		func(ctx context.Context) (*domain.Booking, error) {
			return s.bookingRepo.GetByID(ctx, bookingID)
		})
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.room(ctx, userID, b.RoomID); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) CheckAvailability(ctx context.Context, userID, roomID int64, r domain.DateRange, excludeID int64) ([]domain.Booking, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.guard.room(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return s.bookingRepo.FindConflicts(ctx, roomID, r, excludeID)
}

// ExpireBookings moves active and pending bookings whose end date has passed
// to expired. Each one goes through the normal update path so the ledger is
// released and subscribers are told.
func (s *bookingService) ExpireBookings(ctx context.Context, limit int) (int, error) {
	logger.EnterMethod("bookingService.ExpireBookings", "limit", limit)

	today := clock.Today(s.clock)
	due, err := s.bookingRepo.ListExpirable(ctx, today, limit)
	if err != nil {
		logger.ExitMethodWithError("bookingService.ExpireBookings", err)
		return 0, err
	}

	expired := domain.BookingStatusExpired
	count := 0
	for _, b := range due {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		if _, err := s.bookingRepo.Update(ctx, b.ID, domain.BookingPatch{Status: &expired}); err != nil {
			if errors.Is(err, domain.ErrBookingNotFound) || errors.Is(err, domain.ErrValidation) {
				logger.Warn("skipping booking during expiry", "bookingID", b.ID, "error", err)
				continue
			}
			logger.ExitMethodWithError("bookingService.ExpireBookings", err, "bookingID", b.ID)
			return count, err
		}
		count++
	}

	logger.ExitMethod("bookingService.ExpireBookings", "candidates", len(due), "expired", count)
	return count, nil
}
