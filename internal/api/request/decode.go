package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds JSON and form bodies on the auth endpoints
const maxBodyBytes = 64 << 10

// ErrInvalidBody is returned when the body cannot be decoded
var ErrInvalidBody = errors.New("invalid request body")

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeCredentials reads a CredentialsRequest from a JSON or form-encoded body and validates it
func DecodeCredentials(w http.ResponseWriter, r *http.Request) (*CredentialsRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CredentialsRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, ErrInvalidBody
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, ErrInvalidBody
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, ErrInvalidBody
		}
	}

	if err := Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate runs struct validation and flattens the result into one readable error
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// fieldError converts a single FieldError into a human-readable message
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "printascii":
		return field + " must be printable ASCII"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
