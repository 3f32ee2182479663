package backend

import (
	"errors"
	"net/http"

	"github.com/getbastion/bastion/auth"
)

// IdentityKey is the session-map key the Session backend reads the identity
// from.
const IdentityKey = "identity"

// SessionReader exposes a request's session data. Implementations typically
// resolve a cookie against a session store; an error means the store itself
// failed, not that the request has no session.
type SessionReader func(r *http.Request) (map[string]any, error)

// SessionConfig configures the session backend.
type SessionConfig struct {
	// Reader supplies the session map for a request. Required.
	Reader SessionReader

	// Unauthorized, when set, replaces the default plain 401.
	Unauthorized UnauthorizedHandler
}

// Session authenticates requests from a server-side session. There is no
// credential to parse, so Parse always matches and the decision is made
// entirely by Authenticate.
type Session struct {
	reader       SessionReader
	unauthorized UnauthorizedHandler
}

// NewSession builds a Session backend. Reader is required.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Reader == nil {
		return nil, errors.New("backend: session: Reader is required")
	}
	return &Session{reader: cfg.Reader, unauthorized: cfg.Unauthorized}, nil
}

// Parse always matches; session presence is checked in Authenticate.
func (s *Session) Parse(r *http.Request) (any, bool) {
	return nil, true
}

// Authenticate returns the session's identity value, if any.
func (s *Session) Authenticate(r *http.Request, _ any) (any, error) {
	data, err := s.reader(r)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	ident := data[IdentityKey]
	if !truthy(ident) {
		return nil, nil
	}
	return ident, nil
}

// Unauthorized writes a plain 401; sessions issue no challenge header.
func (s *Session) Unauthorized(w http.ResponseWriter, r *http.Request, reason *auth.Unauthorized) {
	if s.unauthorized != nil {
		s.unauthorized(w, r, reason)
		return
	}
	plainUnauthorized(w)
}
