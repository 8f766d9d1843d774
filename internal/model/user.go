// Package model defines domain entities for the application.
package model

// Role identifies the privilege level of a user.
type Role string

const (
	// RoleOwner is the single non-deletable administrative account.
	RoleOwner Role = "owner"
	// RoleMember is a regular employee account.
	RoleMember Role = "member"
)

// IsValid checks if the role is a known value.
func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleMember
}

// User represents an employee record in the directory.
// Record fields are serialized in snake_case, matching the directory
// API wire contract.
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name,omitempty"`
	Role        Role   `json:"role"`
	IsOnline    bool   `json:"is_online"`

	// LastSeen is epoch milliseconds of the last login or logout.
	// Nil for accounts that have never authenticated.
	LastSeen *int64 `json:"last_seen,omitempty"`

	// NeverLoggedIn is set on registration and cleared by the first login.
	NeverLoggedIn bool `json:"never_logged_in,omitempty"`

	// PasswordHash is the Argon2id hash in PHC string format.
	// Never serialized.
	PasswordHash string `json:"-"`
}

// IsOwner returns true for the owner account.
func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}

// Label returns the name to display for the user: the display name
// when set, otherwise "First Last".
func (u *User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.FirstName + " " + u.LastName
}
