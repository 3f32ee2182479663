// Package backend provides the authentication backends shipped with Bastion:
// HTTP Basic, server-side sessions, opaque bearer tokens, and signed (JWS)
// tokens. Each implements auth.Backend and is constructed once from a config
// struct; constructors fail fast on missing required parameters.
package backend

import (
	"net/http"
	"strings"

	"github.com/getbastion/bastion/auth"
)

// UnauthorizedHandler overrides a backend's default challenge response.
type UnauthorizedHandler func(w http.ResponseWriter, r *http.Request, reason *auth.Unauthorized)

// parseHeaderToken extracts "<scheme> <value>" from the named header.
// Scheme comparison is case-insensitive (RFC 7235). Missing header, wrong
// scheme, or empty value all report ok == false.
func parseHeaderToken(r *http.Request, header, scheme string) (string, bool) {
	v := r.Header.Get(header)
	prefix := scheme + " "
	if len(v) < len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(v[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// truthy reports whether a session value counts as an identity.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	default:
		return true
	}
}

func plainUnauthorized(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
