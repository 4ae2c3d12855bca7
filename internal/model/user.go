package model

import "time"

// User roles.  ADMIN may create events; CUSTOMER may claim, confirm and
// cancel bookings.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User is the requester identity behind bookings.  Only the password
// hash is ever stored.
type User struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
