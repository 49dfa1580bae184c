package models

import "fmt"

// Role is the coarse privilege level of a user, independent of org membership.
type Role string

const (
	RoleNormal     Role = "normal"
	RoleManagement Role = "management"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the three enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNormal, RoleManagement, RoleAdmin:
		return true
	}
	return false
}

// ParseRole converts s into a Role, rejecting anything outside the enumeration.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string `json:"id" firestore:"-"`
	Email        string `json:"email" firestore:"email"`
	FirstName    string `json:"firstname" firestore:"firstname"`
	LastName     string `json:"lastname" firestore:"lastname"`
	PasswordHash string `json:"-" firestore:"password"`
	Role         Role   `json:"role" firestore:"role"`
}

// Employee is the projection of a User embedded in division and admin listings.
type Employee struct {
	ID        string `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// AsEmployee projects u without credentials.
func (u *User) AsEmployee() Employee {
	return Employee{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}
