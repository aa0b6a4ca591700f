package entity

import (
	"time"
)

// User is an account on the platform. A user owns at most one member
// profile and may own supplier listings.
//
// Passwords are stored as bcrypt hashes in Password field.
type User struct {
	ID         string
	Email      string
	Password   string
	Name       string
	AvatarURL  string
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
