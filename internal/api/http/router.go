package http

import (
	"net/http"

	"roomsync-backend/internal/security"
	"roomsync-backend/internal/service"

	"github.com/gorilla/mux"
)

type RouterDeps struct {
	BookingService service.BookingService
	RoomService    service.RoomService
	TokenManager   security.TokenManager
	// WebSocket serves /ws; nil leaves the route out.
	WebSocket http.Handler
}

// NewRouter registers the named routes. Route names key the security levels
// in config.RouteSecurityConfig.
func NewRouter(deps RouterDeps) *mux.Router {
	bookings := NewBookingHandler(deps.BookingService)
	rooms := NewRoomHandler(deps.RoomService, deps.BookingService)
	auth := NewAuthMiddleware(deps.TokenManager)

	router := mux.NewRouter()
	router.Use(LoggingMiddleware, auth.Handler)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name("health")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/bookings", bookings.Create).Methods(http.MethodPost).Name("bookings.create")
	api.HandleFunc("/bookings/{id:[0-9]+}", bookings.Get).Methods(http.MethodGet).Name("bookings.get")
	api.HandleFunc("/bookings/{id:[0-9]+}", bookings.Update).Methods(http.MethodPatch).Name("bookings.update")
	api.HandleFunc("/bookings/{id:[0-9]+}/cancel", bookings.Cancel).Methods(http.MethodPost).Name("bookings.cancel")
	api.HandleFunc("/bookings/{id:[0-9]+}", bookings.Delete).Methods(http.MethodDelete).Name("bookings.delete")

	api.HandleFunc("/rooms", rooms.Create).Methods(http.MethodPost).Name("rooms.create")
	api.HandleFunc("/rooms/{id:[0-9]+}", rooms.Get).Methods(http.MethodGet).Name("rooms.get")
	api.HandleFunc("/rooms/{id:[0-9]+}/availability", rooms.Availability).Methods(http.MethodGet).Name("rooms.availability")
	api.HandleFunc("/rooms/{id:[0-9]+}/conflicts", rooms.Conflicts).Methods(http.MethodGet).Name("rooms.conflicts")
	api.HandleFunc("/buildings/{id:[0-9]+}/stats", rooms.BuildingStats).Methods(http.MethodGet).Name("buildings.stats")

	if deps.WebSocket != nil {
		router.Handle("/ws", deps.WebSocket).Methods(http.MethodGet).Name("ws")
	}
	return router
}
