// Package auth defines the contracts every Bastion authentication mechanism
// implements, the request-context plumbing that carries the authenticated
// identity, and the middleware that ties both to an HTTP pipeline.
//
// Backends are built once at wiring time from configuration and are shared,
// read-only, across all requests. The package never stores credentials and
// never performs I/O itself; lookups are delegated to the IdentityFunc (or
// session/token collaborators) supplied by the integrator.
package auth

import (
	"context"
	"net/http"
)

// IdentityFunc resolves credentials extracted by a backend into an identity.
// A nil identity with a nil error means the credentials matched nothing; an
// error is reserved for genuine infrastructure failure and propagates past
// the authentication layer untouched.
type IdentityFunc func(r *http.Request, data any) (any, error)

// Backend is a pluggable authentication mechanism. Implementations must be
// safe for concurrent use; all fields are fixed at construction.
type Backend interface {
	// Parse extracts mechanism-specific credentials from the request.
	// A missing or malformed header is not an error: Parse reports
	// ok == false and the request simply stays unauthenticated for
	// this backend.
	Parse(r *http.Request) (data any, ok bool)

	// Authenticate resolves parsed credentials into an identity. A nil
	// identity with a nil error leaves the request unauthenticated.
	Authenticate(r *http.Request, data any) (any, error)

	// Unauthorized writes this backend's challenge or denial response.
	Unauthorized(w http.ResponseWriter, r *http.Request, reason *Unauthorized)
}

type contextKey int

const (
	identityKey contextKey = iota
	backendKey
)

// NewContext returns a context carrying the authenticated identity and the
// backend that produced it.
func NewContext(ctx context.Context, ident any, b Backend) context.Context {
	ctx = context.WithValue(ctx, identityKey, ident)
	return context.WithValue(ctx, backendKey, b)
}

// Identity returns the authenticated identity attached to ctx, or nil when
// the request is unauthenticated.
func Identity(ctx context.Context) any {
	return ctx.Value(identityKey)
}

// IsAuthenticated reports whether an identity is attached to the request.
func IsAuthenticated(r *http.Request) bool {
	return Identity(r.Context()) != nil
}

func backendFromContext(ctx context.Context) Backend {
	b, _ := ctx.Value(backendKey).(Backend)
	return b
}
