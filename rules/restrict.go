package rules

import "net/http"

// Restrict guards a single handler with one decision procedure, with no URL
// or method matching. onError may be nil, in which case denials get the
// generic 403 treatment.
func Restrict(next http.Handler, h Handler, onError ErrorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := h.Evaluate(r)
		if d.OK() {
			next.ServeHTTP(w, r)
			return
		}
		if onError != nil {
			onError(w, r, d)
			return
		}
		forbidden(w, r, d)
	})
}
