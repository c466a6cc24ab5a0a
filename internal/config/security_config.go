package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// RouteSecurityConfig maps named HTTP routes to their required security level.
// Routes not listed default to SecurityAccess.
var RouteSecurityConfig = map[string]SecurityLevel{
	"health": SecurityPublic,
	// The websocket authenticates in-band with an authenticate message.
	"ws": SecurityPublic,

	"bookings.create":    SecurityAccess,
	"bookings.get":       SecurityAccess,
	"bookings.update":    SecurityAccess,
	"bookings.cancel":    SecurityAccess,
	"bookings.delete":    SecurityAccess,
	"rooms.create":       SecurityAccess,
	"rooms.get":          SecurityAccess,
	"rooms.availability": SecurityAccess,
	"rooms.conflicts":    SecurityAccess,
	"buildings.stats":    SecurityAccess,
}

// GetSecurityLevel returns the security level for a route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, ok := RouteSecurityConfig[route]; ok {
		return level
	}
	return SecurityAccess
}
