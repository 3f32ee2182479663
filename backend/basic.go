package backend

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getbastion/bastion/auth"
)

// Credentials is the username/password pair extracted from a Basic
// Authorization header.
type Credentials struct {
	Username string
	Password string
}

// BasicConfig configures the HTTP Basic backend.
type BasicConfig struct {
	// Realm is advertised in the WWW-Authenticate challenge.
	// Defaults to "Restricted".
	Realm string

	// IdentityFunc resolves the parsed Credentials. Required.
	IdentityFunc auth.IdentityFunc

	// Unauthorized, when set, replaces the default 401 challenge.
	Unauthorized UnauthorizedHandler
}

// Basic authenticates requests carrying an Authorization: Basic header.
type Basic struct {
	realm        string
	identityFn   auth.IdentityFunc
	unauthorized UnauthorizedHandler
}

// NewBasic builds a Basic backend. IdentityFunc is required.
func NewBasic(cfg BasicConfig) (*Basic, error) {
	if cfg.IdentityFunc == nil {
		return nil, errors.New("backend: basic: IdentityFunc is required")
	}
	realm := cfg.Realm
	if realm == "" {
		realm = "Restricted"
	}
	return &Basic{
		realm:        realm,
		identityFn:   cfg.IdentityFunc,
		unauthorized: cfg.Unauthorized,
	}, nil
}

const basicPrefix = "Basic "

// Parse decodes the Basic header into Credentials. The scheme is matched
// case-insensitively (RFC 7235) and the decoded payload is split on the
// first colon only, so passwords containing colons survive intact. Any
// malformation is a silent non-match.
func (b *Basic) Parse(r *http.Request) (any, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len(basicPrefix) || !strings.EqualFold(h[:len(basicPrefix)], basicPrefix) {
		return nil, false
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(h[len(basicPrefix):]))
	if err != nil {
		return nil, false
	}
	parts := strings.SplitN(string(payload), ":", 2)
	if len(parts) != 2 {
		return nil, false
	}
	return Credentials{Username: parts[0], Password: parts[1]}, true
}

// Authenticate hands the credentials to the configured identity function.
func (b *Basic) Authenticate(r *http.Request, data any) (any, error) {
	return b.identityFn(r, data)
}

// Unauthorized writes a 401 carrying the realm challenge, unless a custom
// handler was configured.
func (b *Basic) Unauthorized(w http.ResponseWriter, r *http.Request, reason *auth.Unauthorized) {
	if b.unauthorized != nil {
		b.unauthorized(w, r, reason)
		return
	}
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", b.realm))
	plainUnauthorized(w)
}
