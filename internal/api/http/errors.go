package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/logger"
)

type errorResponse struct {
	Error     string          `json:"error"`
	Field     string          `json:"field,omitempty"`
	Conflicts []conflictEntry `json:"conflicts,omitempty"`
}

type conflictEntry struct {
	BookingID int64  `json:"booking_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date,omitempty"`
	Status    string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	var validation *domain.ValidationError

	switch {
	case errors.As(err, &conflict):
		resp := errorResponse{Error: domain.ErrConflict.Error()}
		for _, b := range conflict.Conflicts {
			resp.Conflicts = append(resp.Conflicts, toConflictEntry(b))
		}
		writeJSON(w, http.StatusConflict, resp)
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSONError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrBookingNotFound), errors.Is(err, domain.ErrRoomNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func toConflictEntry(b domain.Booking) conflictEntry {
	e := conflictEntry{
		BookingID: b.ID,
		StartDate: b.StartDate.Format(domain.DateLayout),
		Status:    string(b.Status),
	}
	if b.EndDate != nil {
		e.EndDate = b.EndDate.Format(domain.DateLayout)
	}
	return e
}
