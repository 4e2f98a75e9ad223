package model

import "time"

// Credential is a stored login identity. It is created on signup and never mutated.
type Credential struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password"` // bcrypt hash, salt embedded
	CreatedAt    time.Time `json:"created_at"`
}
