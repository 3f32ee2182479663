// Package echomw adapts Bastion's authentication and authorization layers to
// the Echo framework. Echo handlers already return errors, so the
// Unauthorized signal flows through them naturally and is resolved here
// instead of reaching Echo's generic error handler.
package echomw

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/getbastion/bastion/auth"
	"github.com/getbastion/bastion/rules"
)

// Authenticate attaches an identity to the request using the given backends,
// first match wins.
func Authenticate(backends ...auth.Backend) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r, err := auth.Request(c.Request(), backends...)
			if err != nil {
				return err
			}
			c.SetRequest(r)
			return next(c)
		}
	}
}

// CatchUnauthorized resolves the Unauthorized signal returned by downstream
// handlers into a response. Every other error continues to Echo's own error
// handling.
func CatchUnauthorized() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			var reason *auth.Unauthorized
			if !errors.As(err, &reason) {
				return err
			}
			auth.Resolve(c.Response(), c.Request(), reason)
			return nil
		}
	}
}

// Access guards routes with a compiled access-rules engine.
func Access(e *rules.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var err error
			e.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				err = next(c)
			})).ServeHTTP(c.Response(), c.Request())
			return err
		}
	}
}

// Restrict guards a route group with a single decision procedure.
func Restrict(h rules.Handler, onError rules.ErrorHandler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var err error
			rules.Restrict(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				err = next(c)
			}), h, onError).ServeHTTP(c.Response(), c.Request())
			return err
		}
	}
}
