package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/service"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	bookingSvc service.BookingService
}

func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	booking, err := req.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.bookingSvc.CreateBooking(r.Context(), userID, booking)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.caller(w, r)
	if !ok {
		return
	}
	b, err := h.bookingSvc.GetBooking(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, err)
		return
	}

	b, err := h.bookingSvc.UpdateBooking(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.caller(w, r)
	if !ok {
		return
	}
	b, err := h.bookingSvc.CancelBooking(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.caller(w, r)
	if !ok {
		return
	}
	if _, err := h.bookingSvc.DeleteBooking(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) caller(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return 0, 0, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return 0, 0, false
	}
	return userID, id, true
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}
