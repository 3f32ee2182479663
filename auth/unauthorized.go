package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Unauthorized is the authorization denial signal. Downstream handler code
// returns it (usually via Throw) to abort a request; it travels up the
// middleware chain as an ordinary error and is resolved into a response at
// exactly one place, the CatchUnauthorized boundary. Any other error type
// passes that boundary unchanged.
type Unauthorized struct {
	// Message is an optional human-readable reason.
	Message string

	// Response, when set, is served verbatim instead of consulting the
	// backend that authenticated the request.
	Response http.Handler
}

func (e *Unauthorized) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Message
}

// Throw returns an Unauthorized signal with the given message.
func Throw(message string) error {
	return &Unauthorized{Message: message}
}

// Throwf returns an Unauthorized signal with a formatted message.
func Throwf(format string, args ...any) error {
	return &Unauthorized{Message: fmt.Sprintf(format, args...)}
}

// ThrowResponse returns an Unauthorized signal that serves h verbatim.
func ThrowResponse(h http.Handler) error {
	return &Unauthorized{Response: h}
}

// IsUnauthorized reports whether err is (or wraps) an Unauthorized signal.
func IsUnauthorized(err error) bool {
	var u *Unauthorized
	return errors.As(err, &u)
}
