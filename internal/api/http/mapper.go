package http

import (
	"time"

	"roomsync-backend/internal/domain"
)

type bookingResponse struct {
	ID               int64  `json:"id"`
	RoomID           int64  `json:"room_id"`
	TenantID         int64  `json:"tenant_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date,omitempty"`
	MonthlyRentCents int64  `json:"monthly_rent_cents"`
	Status           string `json:"status"`
	Notes            string `json:"notes,omitempty"`
	CreatedBy        int64  `json:"created_by"`
	CreatedOn        string `json:"created_on"`
	UpdatedOn        string `json:"updated_on"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:               b.ID,
		RoomID:           b.RoomID,
		TenantID:         b.TenantID,
		StartDate:        b.StartDate.Format(domain.DateLayout),
		MonthlyRentCents: b.MonthlyRentCents,
		Status:           string(b.Status),
		Notes:            b.Notes,
		CreatedBy:        b.CreatedBy,
		CreatedOn:        b.CreatedOn.Format(time.RFC3339),
		UpdatedOn:        b.UpdatedOn.Format(time.RFC3339),
	}
	if b.EndDate != nil {
		resp.EndDate = b.EndDate.Format(domain.DateLayout)
	}
	return resp
}

type createBookingRequest struct {
	RoomID           int64  `json:"room_id"`
	TenantID         int64  `json:"tenant_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	MonthlyRentCents int64  `json:"monthly_rent_cents"`
	Status           string `json:"status"`
	Notes            string `json:"notes"`
}

func (r createBookingRequest) toDomain() (*domain.Booking, error) {
	if r.RoomID <= 0 {
		return nil, &domain.ValidationError{Field: "room_id", Reason: "is required"}
	}
	if r.TenantID <= 0 {
		return nil, &domain.ValidationError{Field: "tenant_id", Reason: "is required"}
	}
	if r.MonthlyRentCents < 0 {
		return nil, &domain.ValidationError{Field: "monthly_rent_cents", Reason: "must not be negative"}
	}
	start, err := domain.ParseDate("start_date", r.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseOptionalDate("end_date", r.EndDate)
	if err != nil {
		return nil, err
	}
	status := domain.BookingStatus(r.Status)
	if status != "" && !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "unknown status"}
	}
	return &domain.Booking{
		RoomID:           r.RoomID,
		TenantID:         r.TenantID,
		StartDate:        start,
		EndDate:          end,
		MonthlyRentCents: r.MonthlyRentCents,
		Status:           status,
		Notes:            r.Notes,
	}, nil
}

// updateBookingRequest: absent fields stay unchanged; clear_end_date makes
// the booking open-ended.
type updateBookingRequest struct {
	StartDate        *string `json:"start_date"`
	EndDate          *string `json:"end_date"`
	ClearEndDate     bool    `json:"clear_end_date"`
	MonthlyRentCents *int64  `json:"monthly_rent_cents"`
	Status           *string `json:"status"`
	Notes            *string `json:"notes"`
}

func (r updateBookingRequest) toPatch() (domain.BookingPatch, error) {
	var p domain.BookingPatch
	if r.StartDate != nil {
		t, err := domain.ParseDate("start_date", *r.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &t
	}
	if r.EndDate != nil && !r.ClearEndDate {
		t, err := domain.ParseDate("end_date", *r.EndDate)
		if err != nil {
			return p, err
		}
		p.EndDate = &t
	}
	p.ClearEndDate = r.ClearEndDate
	if r.MonthlyRentCents != nil {
		if *r.MonthlyRentCents < 0 {
			return p, &domain.ValidationError{Field: "monthly_rent_cents", Reason: "must not be negative"}
		}
		p.MonthlyRentCents = r.MonthlyRentCents
	}
	if r.Status != nil {
		s := domain.BookingStatus(*r.Status)
		if !s.Valid() {
			return p, &domain.ValidationError{Field: "status", Reason: "unknown status"}
		}
		p.Status = &s
	}
	p.Notes = r.Notes
	return p, nil
}

type createRoomRequest struct {
	BuildingID int64  `json:"building_id"`
	Number     string `json:"number"`
	Capacity   int32  `json:"capacity"`
}
