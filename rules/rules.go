// Package rules implements the access-rules engine: an ordered,
// pattern-matched rule list evaluated ahead of the application handler.
// The first rule whose URL pattern and method filter match the request
// decides it; when nothing matches, an explicit default policy applies.
//
// Rule lists are compiled once with New and are immutable and safe for
// concurrent use afterwards. All configuration mistakes surface at compile
// time, never during a request.
package rules

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Policy is the decision applied when no rule matches a request.
type Policy int

const (
	policyUnset Policy = iota

	// Allow lets unmatched requests through to the wrapped handler.
	Allow

	// Reject denies unmatched requests.
	Reject
)

// ParsePolicy converts a configuration string ("allow" or "reject") into a
// Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "allow":
		return Allow, nil
	case "reject":
		return Reject, nil
	default:
		return policyUnset, fmt.Errorf("rules: unknown policy %q", s)
	}
}

// ErrorHandler resolves a denying Decision into a response.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, d Decision)

// Matcher is a custom URL matcher: it tests a request path and may yield
// named captures.
type Matcher func(path string) (params map[string]string, ok bool)

// Rule binds a URL matcher and an optional method filter to a decision
// Handler. Exactly one of Pattern, Patterns, or Matcher must be set;
// patterns are regular expressions whose named capture groups become request
// params (see Params).
type Rule struct {
	Pattern  string
	Patterns []string
	Matcher  Matcher

	// Methods restricts the rule to the listed HTTP methods. Empty means
	// any method.
	Methods []string

	// Handler decides matched requests. Required.
	Handler Handler

	// OnError overrides the engine's error handler for this rule.
	OnError ErrorHandler

	// Redirect, when set, turns every denial by this rule into a 302 to
	// the given location, ignoring the error payload. It takes precedence
	// over OnError.
	Redirect string
}

type compiledRule struct {
	patterns []*regexp.Regexp
	custom   Matcher
	methods  map[string]struct{}
	handler  Handler
	onError  ErrorHandler
	redirect string
}

func (cr *compiledRule) match(r *http.Request) (map[string]string, bool) {
	if len(cr.methods) > 0 {
		if _, ok := cr.methods[r.Method]; !ok {
			return nil, false
		}
	}
	if cr.custom != nil {
		return cr.custom(r.URL.Path)
	}
	for _, re := range cr.patterns {
		m := re.FindStringSubmatch(r.URL.Path)
		if m == nil {
			continue
		}
		var params map[string]string
		for i, name := range re.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = m[i]
		}
		return params, true
	}
	return nil, false
}

// Options configure an Engine.
type Options struct {
	// Rules are consulted in order; the first match wins.
	Rules []Rule

	// Policy decides unmatched requests. Required.
	Policy Policy

	// OnError resolves denials for rules without their own OnError, and
	// produces the default-deny response under the Reject policy.
	OnError ErrorHandler
}

// Engine is a compiled, immutable rule list.
type Engine struct {
	rules   []compiledRule
	policy  Policy
	onError ErrorHandler
}

// New compiles the rule list. Configuration problems are reported here,
// never deferred to request time.
func New(opts Options) (*Engine, error) {
	if opts.Policy != Allow && opts.Policy != Reject {
		return nil, errors.New("rules: Policy must be Allow or Reject")
	}

	compiled := make([]compiledRule, 0, len(opts.Rules))
	for i, rule := range opts.Rules {
		cr, err := compile(rule)
		if err != nil {
			return nil, fmt.Errorf("rules: rule %d: %w", i, err)
		}
		compiled = append(compiled, cr)
	}

	return &Engine{
		rules:   compiled,
		policy:  opts.Policy,
		onError: opts.OnError,
	}, nil
}

func compile(rule Rule) (compiledRule, error) {
	if rule.Handler == nil {
		return compiledRule{}, errors.New("Handler is required")
	}

	patterns := rule.Patterns
	if rule.Pattern != "" {
		patterns = append([]string{rule.Pattern}, patterns...)
	}
	if rule.Matcher == nil && len(patterns) == 0 {
		return compiledRule{}, errors.New("a Pattern, Patterns, or Matcher is required")
	}
	if rule.Matcher != nil && len(patterns) > 0 {
		return compiledRule{}, errors.New("Matcher and patterns are mutually exclusive")
	}

	cr := compiledRule{
		custom:   rule.Matcher,
		handler:  rule.Handler,
		onError:  rule.OnError,
		redirect: rule.Redirect,
	}

	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return compiledRule{}, fmt.Errorf("pattern %q: %w", p, err)
		}
		cr.patterns = append(cr.patterns, re)
	}

	if len(rule.Methods) > 0 {
		cr.methods = make(map[string]struct{}, len(rule.Methods))
		for _, m := range rule.Methods {
			cr.methods[strings.ToUpper(m)] = struct{}{}
		}
	}

	return cr, nil
}

type paramsKey struct{}

// Params returns the named captures recorded by the matched rule's pattern,
// or nil.
func Params(ctx context.Context) map[string]string {
	p, _ := ctx.Value(paramsKey{}).(map[string]string)
	return p
}

// Wrap guards next with the compiled rule list.
func (e *Engine) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := range e.rules {
			cr := &e.rules[i]
			params, ok := cr.match(r)
			if !ok {
				continue
			}
			if len(params) > 0 {
				r = r.WithContext(context.WithValue(r.Context(), paramsKey{}, params))
			}
			d := cr.handler.Evaluate(r)
			if d.OK() {
				next.ServeHTTP(w, r)
				return
			}
			e.deny(w, r, cr, d)
			return
		}

		if e.policy == Allow {
			next.ServeHTTP(w, r)
			return
		}
		if e.onError != nil {
			e.onError(w, r, Decision{})
			return
		}
		forbidden(w, r, Decision{})
	})
}

// deny resolves a rule denial: rule redirect, then rule error handler, then
// the engine's, then a generic 403.
func (e *Engine) deny(w http.ResponseWriter, r *http.Request, cr *compiledRule, d Decision) {
	switch {
	case cr.redirect != "":
		http.Redirect(w, r, cr.redirect, http.StatusFound)
	case cr.onError != nil:
		cr.onError(w, r, d)
	case e.onError != nil:
		e.onError(w, r, d)
	default:
		forbidden(w, r, d)
	}
}

func forbidden(w http.ResponseWriter, r *http.Request, d Decision) {
	if h := d.Response(); h != nil {
		h.ServeHTTP(w, r)
		return
	}
	msg := d.Message()
	if msg == "" {
		msg = http.StatusText(http.StatusForbidden)
	}
	http.Error(w, msg, http.StatusForbidden)
}
