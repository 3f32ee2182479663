package backend

import (
	"errors"
	"net/http"

	"github.com/getbastion/bastion/auth"
)

// TokenConfig configures the opaque token backend.
type TokenConfig struct {
	// Header names the header carrying the token. Defaults to "Authorization".
	Header string

	// Scheme is the expected prefix before the token value.
	// Defaults to "Token".
	Scheme string

	// IdentityFunc resolves the raw token string. Required.
	IdentityFunc auth.IdentityFunc

	// Unauthorized, when set, replaces the default plain 401.
	Unauthorized UnauthorizedHandler
}

// Token authenticates requests carrying an opaque bearer token, by default
// from an "Authorization: Token <value>" header. Token meaning is entirely
// up to the identity function.
type Token struct {
	header       string
	scheme       string
	identityFn   auth.IdentityFunc
	unauthorized UnauthorizedHandler
}

// NewToken builds a Token backend. IdentityFunc is required.
func NewToken(cfg TokenConfig) (*Token, error) {
	if cfg.IdentityFunc == nil {
		return nil, errors.New("backend: token: IdentityFunc is required")
	}
	header := cfg.Header
	if header == "" {
		header = "Authorization"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "Token"
	}
	return &Token{
		header:       header,
		scheme:       scheme,
		identityFn:   cfg.IdentityFunc,
		unauthorized: cfg.Unauthorized,
	}, nil
}

// Parse extracts the token string; missing scheme or empty value is a
// silent non-match.
func (t *Token) Parse(r *http.Request) (any, bool) {
	token, ok := parseHeaderToken(r, t.header, t.scheme)
	if !ok {
		return nil, false
	}
	return token, true
}

// Authenticate hands the token string to the configured identity function.
func (t *Token) Authenticate(r *http.Request, data any) (any, error) {
	return t.identityFn(r, data)
}

// Unauthorized writes a plain 401 unless a custom handler was configured.
func (t *Token) Unauthorized(w http.ResponseWriter, r *http.Request, reason *auth.Unauthorized) {
	if t.unauthorized != nil {
		t.unauthorized(w, r, reason)
		return
	}
	plainUnauthorized(w)
}
