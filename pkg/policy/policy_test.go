package policy

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Role
	}{
		{"admin", "admin", RoleAdmin},
		{"supervisor", "supervisor", RoleSupervisor},
		{"seller", "seller", RoleSeller},
		{"uppercase admin", "ADMIN", RoleAdmin},
		{"padded supervisor", "  supervisor ", RoleSupervisor},
		{"unknown role degrades to seller", "superuser", RoleSeller},
		{"empty role degrades to seller", "", RoleSeller},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		role Role
		zone Zone
		want bool
	}{
		{"admin reaches dashboard", RoleAdmin, ZoneDashboard, true},
		{"admin reaches settings", RoleAdmin, ZoneSettings, true},
		{"supervisor reaches inventory", RoleSupervisor, ZoneInventory, true},
		{"supervisor reaches sales", RoleSupervisor, ZoneSales, true},
		{"supervisor blocked from dashboard", RoleSupervisor, ZoneDashboard, false},
		{"supervisor blocked from settings", RoleSupervisor, ZoneSettings, false},
		{"seller reaches sales", RoleSeller, ZoneSales, true},
		{"seller blocked from inventory", RoleSeller, ZoneInventory, false},
		{"seller blocked from clients", RoleSeller, ZoneClients, false},
		{"seller blocked from dashboard", RoleSeller, ZoneDashboard, false},
		{"unknown role blocked everywhere", Role("ghost"), ZoneSales, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.role, tt.zone); got != tt.want {
				t.Errorf("Allowed(%v, %v) = %v, want %v", tt.role, tt.zone, got, tt.want)
			}
		})
	}
}

func TestHomePath(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleAdmin, "/dashboard"},
		{RoleSupervisor, "/inventory"},
		{RoleSeller, "/sales"},
		{Role("unknown"), "/sales"},
	}

	for _, tt := range tests {
		if got := HomePath(tt.role); got != tt.want {
			t.Errorf("HomePath(%v) = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestZoneForPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantZone Zone
		wantOK   bool
	}{
		{"dashboard page", "/dashboard", ZoneDashboard, true},
		{"inventory subpage", "/inventory/import", ZoneInventory, true},
		{"sales api", "/api/v1/sales", ZoneSales, true},
		{"products api maps to inventory", "/api/v1/products/abc", ZoneInventory, true},
		{"alerts api maps to inventory", "/api/v1/alerts", ZoneInventory, true},
		{"organizations api maps to settings", "/api/v1/organizations", ZoneSettings, true},
		{"login is ungated", "/login", "", false},
		{"health is ungated", "/health", "", false},
		{"root is ungated", "/", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, ok := ZoneForPath(tt.path)
			if zone != tt.wantZone || ok != tt.wantOK {
				t.Errorf("ZoneForPath(%q) = (%v, %v), want (%v, %v)", tt.path, zone, ok, tt.wantZone, tt.wantOK)
			}
		})
	}
}

func TestNavLinks(t *testing.T) {
	got := NavLinks(RoleSupervisor)
	want := []NavLink{
		{Zone: ZoneInventory, Label: "Inventory", Path: "/inventory"},
		{Zone: ZoneClients, Label: "Clients", Path: "/clients"},
		{Zone: ZoneSales, Label: "Sales", Path: "/sales"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NavLinks(supervisor) = %v, want %v", got, want)
	}

	if links := NavLinks(RoleAdmin); len(links) != 5 {
		t.Errorf("NavLinks(admin) returned %d links, want 5", len(links))
	}
	if links := NavLinks(RoleSeller); len(links) != 1 || links[0].Zone != ZoneSales {
		t.Errorf("NavLinks(seller) = %v, want only sales", links)
	}
}
