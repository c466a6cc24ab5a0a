package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roomsync-backend/internal/domain"
	"roomsync-backend/internal/service"
)

type RoomHandler struct {
	roomSvc    service.RoomService
	bookingSvc service.BookingService
}

func NewRoomHandler(roomSvc service.RoomService, bookingSvc service.BookingService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc, bookingSvc: bookingSvc}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.ProvisionRoom(r.Context(), userID, &domain.Room{
		BuildingID: req.BuildingID,
		Number:     req.Number,
		Capacity:   req.Capacity,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, roomID, ok := h.caller(w, r)
	if !ok {
		return
	}
	room, err := h.roomSvc.GetRoom(r.Context(), userID, roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request) {
	userID, roomID, ok := h.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from, err := domain.ParseDate("from", q.Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := domain.ParseDate("to", q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}

	av, err := h.roomSvc.GetAvailability(r.Context(), userID, roomID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

type conflictsResponse struct {
	Available bool            `json:"available"`
	Conflicts []conflictEntry `json:"conflicts"`
}

// Conflicts is the read-only form of the write-time conflict check.
func (h *RoomHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	userID, roomID, ok := h.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	start, err := domain.ParseDate("start", q.Get("start"))
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := domain.ParseOptionalDate("end", q.Get("end"))
	if err != nil {
		writeError(w, err)
		return
	}
	var exclude int64
	if raw := q.Get("exclude"); raw != "" {
		exclude, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, &domain.ValidationError{Field: "exclude", Reason: "must be an integer"})
			return
		}
	}

	conflicts, err := h.bookingSvc.CheckAvailability(r.Context(), userID, roomID, domain.DateRange{Start: start, End: end}, exclude)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := conflictsResponse{Available: len(conflicts) == 0, Conflicts: []conflictEntry{}}
	for _, b := range conflicts {
		resp.Conflicts = append(resp.Conflicts, toConflictEntry(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RoomHandler) BuildingStats(w http.ResponseWriter, r *http.Request) {
	userID, buildingID, ok := h.caller(w, r)
	if !ok {
		return
	}
	stats, err := h.roomSvc.GetBuildingStats(r.Context(), userID, buildingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *RoomHandler) caller(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
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
