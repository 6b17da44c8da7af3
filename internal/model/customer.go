package model

import (
	"strings"

	"github.com/google/uuid"
)

// RoleAdmin is the role allowed to manage the catalogue.
const RoleAdmin = "admin"

// Customer is the authenticated caller as asserted by the identity provider.
type Customer struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Role     string
}

// HasRole reports whether the caller was issued role.
func (c Customer) HasRole(role string) bool {
	return role != "" && c.Role == role
}

// NameParts splits FullName into first and last name for the payment page.
func (c Customer) NameParts() (string, string) {
	first, last := "Customer", "User"
	parts := strings.Fields(c.FullName)
	if len(parts) > 0 {
		first = parts[0]
	}
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}
