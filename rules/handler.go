package rules

import (
	"net/http"

	"github.com/getbastion/bastion/auth"
)

// Decision is the outcome of evaluating a Handler: success, or an error
// optionally carrying a message or a full replacement response. The zero
// value is an error with no payload.
type Decision struct {
	ok       bool
	message  string
	response http.Handler
}

// Success returns an allowing decision.
func Success() Decision { return Decision{ok: true} }

// Error returns a denying decision carrying a message.
func Error(message string) Decision { return Decision{message: message} }

// ErrorResponse returns a denying decision carrying a full replacement
// response.
func ErrorResponse(h http.Handler) Decision { return Decision{response: h} }

// OK reports whether the decision allows the request.
func (d Decision) OK() bool { return d.ok }

// Message returns the denial message, if any.
func (d Decision) Message() string { return d.message }

// Response returns the replacement response, if any.
func (d Decision) Response() http.Handler { return d.response }

// Handler decides whether a matched request may proceed. Handlers are static
// configuration: built once, evaluated concurrently, never mutated.
type Handler interface {
	Evaluate(r *http.Request) Decision
}

// HandlerFunc is a leaf decision procedure.
type HandlerFunc func(*http.Request) Decision

func (f HandlerFunc) Evaluate(r *http.Request) Decision { return f(r) }

// Bool adapts a boolean predicate; false becomes an error with no payload.
func Bool(f func(*http.Request) bool) Handler {
	return HandlerFunc(func(r *http.Request) Decision {
		if f(r) {
			return Success()
		}
		return Decision{}
	})
}

// Truthy adapts a predicate returning an arbitrary value. nil, false, and
// the empty string become an error with no payload; any other value counts
// as success.
func Truthy(f func(*http.Request) any) Handler {
	return HandlerFunc(func(r *http.Request) Decision {
		switch v := f(r).(type) {
		case nil:
			return Decision{}
		case bool:
			if !v {
				return Decision{}
			}
		case string:
			if v == "" {
				return Decision{}
			}
		case Decision:
			return v
		}
		return Success()
	})
}

// Authenticated succeeds when the request carries an identity.
var Authenticated Handler = Bool(auth.IsAuthenticated)

type andHandler []Handler

// And combines handlers conjunctively: children are evaluated left to right
// and the first error short-circuits. With no children it succeeds.
func And(handlers ...Handler) Handler { return andHandler(handlers) }

func (h andHandler) Evaluate(r *http.Request) Decision {
	for _, c := range h {
		if d := c.Evaluate(r); !d.OK() {
			return d
		}
	}
	return Success()
}

type orHandler []Handler

// Or combines handlers disjunctively: children are evaluated left to right
// and the first success short-circuits. When every child fails, the last
// failure is returned so the most specific message survives.
func Or(handlers ...Handler) Handler { return orHandler(handlers) }

func (h orHandler) Evaluate(r *http.Request) Decision {
	var last Decision
	for _, c := range h {
		d := c.Evaluate(r)
		if d.OK() {
			return d
		}
		last = d
	}
	return last
}
