package auth

import (
	"context"
	"errors"
	"net/http"
)

// HandlerFunc is an HTTP handler that can fail. Returning an Unauthorized
// signal aborts the request at the CatchUnauthorized boundary; every other
// error propagates to the host's generic error handling.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// Middleware decorates a HandlerFunc.
type Middleware func(HandlerFunc) HandlerFunc

// Request runs the backends' parse/authenticate phases against r, in order.
// The first backend to yield a non-nil identity wins; the returned request
// carries that identity and the winning backend in its context. When no
// backend authenticates, the request proceeds unauthenticated with the first
// backend attached as the default challenger, so clients without credentials
// still receive a proper challenge (e.g. Basic's WWW-Authenticate) when a
// handler raises the unauthorized signal.
func Request(r *http.Request, backends ...Backend) (*http.Request, error) {
	for _, b := range backends {
		data, ok := b.Parse(r)
		if !ok {
			continue
		}
		ident, err := b.Authenticate(r, data)
		if err != nil {
			return nil, err
		}
		if ident == nil {
			continue
		}
		return r.WithContext(NewContext(r.Context(), ident, b)), nil
	}
	if len(backends) > 0 {
		return r.WithContext(context.WithValue(r.Context(), backendKey, backends[0])), nil
	}
	return r, nil
}

// Authenticate returns middleware that attaches an identity to the request
// using the given backends. Order matters: the first backend to authenticate
// the request decides the identity.
func Authenticate(backends ...Backend) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			r, err := Request(r, backends...)
			if err != nil {
				return err
			}
			return next(w, r)
		}
	}
}

// CatchUnauthorized resolves the Unauthorized signal raised anywhere below it
// into a response. Unrelated errors pass through unchanged.
func CatchUnauthorized(next HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		err := next(w, r)
		if err == nil {
			return nil
		}
		var reason *Unauthorized
		if !errors.As(err, &reason) {
			return err
		}
		Resolve(w, r, reason)
		return nil
	}
}

// Resolve writes the response for a recovered Unauthorized signal: the
// signal's own response if it carries one, otherwise the challenge of the
// backend attached to the request, otherwise a plain 403.
func Resolve(w http.ResponseWriter, r *http.Request, reason *Unauthorized) {
	if reason.Response != nil {
		reason.Response.ServeHTTP(w, r)
		return
	}
	if b := backendFromContext(r.Context()); b != nil {
		b.Unauthorized(w, r, reason)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

// Handler adapts a HandlerFunc chain to net/http. Errors that survive the
// chain (infrastructure failures, not denials) are handed to onError; when
// onError is nil a bare 500 is written.
func Handler(h HandlerFunc, onError func(http.ResponseWriter, *http.Request, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		if onError != nil {
			onError(w, r, err)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	})
}
