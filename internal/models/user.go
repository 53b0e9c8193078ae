package models

import "time"

// User is an operator account of the admin tool, loaded together with its
// role's permission names.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
