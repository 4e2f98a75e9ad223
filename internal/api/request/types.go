package request

// CredentialsRequest is the request body for signup and login.
// bcrypt ignores bytes past 72, so longer passwords are refused outright.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=64,printascii"`
	Password string `json:"password" validate:"required,max=72"`
}
