package model

import "errors"

// Common errors used across the application
var (
	// Credential errors
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialExists   = errors.New("credential already exists")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
)
