package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User models an actor authenticated against this API (the mobile client's
// login to the aggregation service, not a vendor login).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
