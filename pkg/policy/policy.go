// Package policy defines the single role-to-zone access table for the
// application. The authorization gate, the navigation menu, and the
// post-login redirect all read from this table so they can never
// disagree about what a role may see.
//
// Zones map to top-level sections of the application:
//   - "dashboard" - analytics and sales leaderboard
//   - "inventory" - product catalog and stock
//   - "clients"   - customer records
//   - "sales"     - point of sale and sale history
//   - "settings"  - organization management
package policy

import "strings"

// Role is a user's role within the system.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleSeller     Role = "seller"
)

// Zone is a top-level section of the application.
type Zone string

const (
	ZoneDashboard Zone = "dashboard"
	ZoneInventory Zone = "inventory"
	ZoneClients   Zone = "clients"
	ZoneSales     Zone = "sales"
	ZoneSettings  Zone = "settings"
)

// rolePolicy describes what a role can reach and where it lands after login.
type rolePolicy struct {
	zones       []Zone
	defaultZone Zone
}

// rolePolicies is the authoritative access table. Changing a row here
// changes the gate, the menu, and login redirects together.
var rolePolicies = map[Role]rolePolicy{
	RoleAdmin: {
		zones:       []Zone{ZoneDashboard, ZoneInventory, ZoneClients, ZoneSales, ZoneSettings},
		defaultZone: ZoneDashboard,
	},
	RoleSupervisor: {
		zones:       []Zone{ZoneInventory, ZoneClients, ZoneSales},
		defaultZone: ZoneInventory,
	},
	RoleSeller: {
		zones:       []Zone{ZoneSales},
		defaultZone: ZoneSales,
	},
}

// Normalize maps an arbitrary role string to a known Role.
// Unknown or empty roles degrade to seller, the least privileged role.
func Normalize(role string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSupervisor:
		return RoleSupervisor
	case RoleSeller:
		return RoleSeller
	default:
		return RoleSeller
	}
}

// Allowed reports whether the role may access the given zone.
func Allowed(role Role, zone Zone) bool {
	policy, ok := rolePolicies[role]
	if !ok {
		return false
	}
	for _, z := range policy.zones {
		if z == zone {
			return true
		}
	}
	return false
}

// Zones returns the zones the role may access, in menu order.
func Zones(role Role) []Zone {
	policy, ok := rolePolicies[role]
	if !ok {
		return nil
	}
	out := make([]Zone, len(policy.zones))
	copy(out, policy.zones)
	return out
}

// DefaultZone returns the zone a role lands on after login.
func DefaultZone(role Role) Zone {
	policy, ok := rolePolicies[role]
	if !ok {
		return rolePolicies[RoleSeller].defaultZone
	}
	return policy.defaultZone
}

// HomePath returns the page path a role is redirected to after login.
func HomePath(role Role) string {
	return "/" + string(DefaultZone(role))
}

// ZoneForPath maps a request path to the zone that owns it.
// Returns false for paths outside any gated zone (login, health, static).
func ZoneForPath(path string) (Zone, bool) {
	trimmed := strings.TrimPrefix(path, "/api/v1")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return "", false
	}

	segment, _, _ := strings.Cut(trimmed, "/")
	switch Zone(segment) {
	case ZoneDashboard, ZoneInventory, ZoneClients, ZoneSales, ZoneSettings:
		return Zone(segment), true
	}

	// API resources that belong to a zone without sharing its name.
	switch segment {
	case "products", "alerts":
		return ZoneInventory, true
	case "organizations", "profiles", "switchboard":
		return ZoneSettings, true
	}

	return "", false
}

// NavLink is a single entry of the navigation menu.
type NavLink struct {
	Zone  Zone   `json:"zone"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

var zoneLabels = map[Zone]string{
	ZoneDashboard: "Dashboard",
	ZoneInventory: "Inventory",
	ZoneClients:   "Clients",
	ZoneSales:     "Sales",
	ZoneSettings:  "Settings",
}

// NavLinks returns the navigation menu entries for a role, in menu order.
func NavLinks(role Role) []NavLink {
	zones := Zones(role)
	links := make([]NavLink, 0, len(zones))
	for _, z := range zones {
		links = append(links, NavLink{
			Zone:  z,
			Label: zoneLabels[z],
			Path:  "/" + string(z),
		})
	}
	return links
}
