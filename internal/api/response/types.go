package response

// AuthResult is the body of every signup, login and logout response
type AuthResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SessionToken string `json:"session_token,omitempty"`
}

// ErrorResponse is the body of upload and evaluation failures
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Health is the body of the health check
type Health struct {
	Status string `json:"status"`
}
