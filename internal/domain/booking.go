package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for booking dates.
const DateLayout = "2006-01-02"

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// OpenEnded stands in for a missing end date when comparing intervals.
var OpenEnded = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusActive, BookingStatusPending, BookingStatusCompleted, BookingStatusCancelled, BookingStatusExpired:
		return true
	}
	return false
}

// Blocking reports whether a booking in this status holds the room against others.
func (s BookingStatus) Blocking() bool {
	return s == BookingStatusActive || s == BookingStatusPending
}

// Terminal statuses never transition again.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusExpired
}

type Booking struct {
	ID               int64         `json:"id"`
	RoomID           int64         `json:"room_id"`
	TenantID         int64         `json:"tenant_id"`
	StartDate        time.Time     `json:"start_date"`
	EndDate          *time.Time    `json:"end_date,omitempty"`
	MonthlyRentCents int64         `json:"monthly_rent_cents"`
	Status           BookingStatus `json:"status"`
	Notes            string        `json:"notes,omitempty"`
	CreatedBy        int64         `json:"created_by"`
	CreatedOn        time.Time     `json:"created_on"`
	UpdatedOn        time.Time     `json:"updated_on"`
}

// Range returns the booking's inclusive date interval.
func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// BookingPatch carries the optional fields of an update. Nil fields are left unchanged.
type BookingPatch struct {
	StartDate        *time.Time
	EndDate          *time.Time
	ClearEndDate     bool
	MonthlyRentCents *int64
	Status           *BookingStatus
	Notes            *string
}

// Apply returns a copy of b with the patch applied.
func (p BookingPatch) Apply(b Booking) Booking {
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	if p.ClearEndDate {
		b.EndDate = nil
	} else if p.EndDate != nil {
		end := *p.EndDate
		b.EndDate = &end
	}
	if p.MonthlyRentCents != nil {
		b.MonthlyRentCents = *p.MonthlyRentCents
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
	return b
}

// DateRange is an inclusive day interval; a nil End is open-ended.
type DateRange struct {
	Start time.Time
	End   *time.Time
}

// EndOrSentinel returns End, or OpenEnded when the range has no end.
func (r DateRange) EndOrSentinel() time.Time {
	if r.End == nil {
		return OpenEnded
	}
	return *r.End
}

// Overlaps implements a.start <= b.end AND b.start <= a.end with open ends at OpenEnded.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.Start.After(o.EndOrSentinel()) && !o.Start.After(r.EndOrSentinel())
}

// Validate rejects malformed ranges before anything touches storage.
func (r DateRange) Validate() error {
	if r.Start.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	if r.End != nil && !r.End.After(r.Start) {
		return &ValidationError{Field: "end_date", Reason: "must be after start_date"}
	}
	return nil
}

func (r DateRange) String() string {
	if r.End == nil {
		return fmt.Sprintf("%s..open", r.Start.Format(DateLayout))
	}
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD date as a UTC day.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("invalid date %q", value)}
	}
	return t, nil
}

// ParseOptionalDate treats an empty value as an open end.
func ParseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
