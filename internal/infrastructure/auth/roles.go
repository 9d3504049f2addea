package auth

import "strings"

// Role is the caller role carried in the token
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)

// Capability names an action a role may perform
type Capability string

const (
	CapCheckout       Capability = "checkout"
	CapOrdersRead     Capability = "orders:read"
	CapOrdersReadAny  Capability = "orders:read_any"
	CapInventoryRead  Capability = "inventory:read"
	CapInventoryWrite Capability = "inventory:write"
)

var roleCapabilities = map[Role][]Capability{
	RoleCustomer: {CapCheckout, CapOrdersRead},
	RoleStaff:    {CapOrdersRead, CapOrdersReadAny, CapInventoryRead},
	RoleAdmin:    {CapOrdersRead, CapOrdersReadAny, CapInventoryRead, CapInventoryWrite},
}

// ParseRole parses a role name, case-insensitively
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roleCapabilities[r]; !ok {
		return "", false
	}
	return r, true
}

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role grants capability c
func (r Role) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// Capabilities returns the capabilities granted to r
func (r Role) Capabilities() []Capability {
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
