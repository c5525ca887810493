package generation

import (
	"fmt"

	"github.com/pkg/errors"
)

// APIError wraps any backend failure — transport, non-2xx status, malformed
// payload — into a single error shape. StatusCode is 0 when no HTTP status
// was observed.
type APIError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend API error: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("backend API error: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds an APIError wrapping err.
func NewAPIError(message string, statusCode int, err error) *APIError {
	return &APIError{Message: message, StatusCode: statusCode, Err: err}
}

// WrapAPIError converts err into an APIError unless it already is one (or an
// AuthenticationError), in which case it is returned unchanged.
func WrapAPIError(err error, message string) error {
	if err == nil {
		return nil
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &APIError{Message: message, Err: err}
}

// AuthenticationError marks an unauthorized/auth-failure condition. Unlike
// other backend errors it must propagate to the caller so a re-authentication
// flow can run; it is never converted into a conversational error event.
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return &e.APIError
}

// NewAuthenticationError builds an AuthenticationError.
func NewAuthenticationError(message string, statusCode int, err error) *AuthenticationError {
	return &AuthenticationError{APIError: APIError{Message: message, StatusCode: statusCode, Err: err}}
}

// IsAuthenticationError reports whether err is (or wraps) an authentication
// failure.
func IsAuthenticationError(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// StatusCodeOf extracts the HTTP status carried by an APIError in err's
// chain, or 0.
func StatusCodeOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
