package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/getbastion/bastion/auth"
)

// JWSConfig configures the signed-token backend.
type JWSConfig struct {
	// Header and Scheme locate the token, as for TokenConfig.
	Header string
	Scheme string

	// Key is the verification key: []byte for HMAC methods, *rsa.PublicKey
	// or *ecdsa.PublicKey for asymmetric ones. Required.
	Key any

	// Method pins the expected signing algorithm. Tokens signed with any
	// other algorithm are rejected regardless of signature validity.
	// Required.
	Method jwt.SigningMethod

	// OnError observes token verification failures (bad signature, expired
	// claims, malformed payload). The request still proceeds
	// unauthenticated; the hook exists purely to surface the detail.
	OnError func(r *http.Request, err error)

	// Unauthorized, when set, replaces the default plain 401.
	Unauthorized UnauthorizedHandler
}

// JWS authenticates requests carrying a self-contained signed token. The
// verified claims become the identity; a token that fails verification
// leaves the request unauthenticated rather than failing the request.
type JWS struct {
	header       string
	scheme       string
	key          any
	method       jwt.SigningMethod
	onError      func(r *http.Request, err error)
	unauthorized UnauthorizedHandler
}

// NewJWS builds a JWS backend. Key and Method are required.
func NewJWS(cfg JWSConfig) (*JWS, error) {
	if cfg.Key == nil {
		return nil, errors.New("backend: jws: Key is required")
	}
	if cfg.Method == nil {
		return nil, errors.New("backend: jws: Method is required")
	}
	header := cfg.Header
	if header == "" {
		header = "Authorization"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "Token"
	}
	return &JWS{
		header:       header,
		scheme:       scheme,
		key:          cfg.Key,
		method:       cfg.Method,
		onError:      cfg.OnError,
		unauthorized: cfg.Unauthorized,
	}, nil
}

// Parse extracts the compact token string; malformation is checked during
// Authenticate, not here.
func (b *JWS) Parse(r *http.Request) (any, bool) {
	token, ok := parseHeaderToken(r, b.header, b.scheme)
	if !ok {
		return nil, false
	}
	return token, true
}

// Authenticate verifies the token and returns its claims as the identity.
// Verification failure is not an error: the request stays unauthenticated
// and the OnError hook, if any, sees why.
func (b *JWS) Authenticate(r *http.Request, data any) (any, error) {
	tokenString, _ := data.(string)

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != b.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.key, nil
	})
	if err != nil || !token.Valid {
		if b.onError != nil {
			if err == nil {
				err = errors.New("invalid token")
			}
			b.onError(r, err)
		}
		return nil, nil
	}

	return token.Claims, nil
}

// Unauthorized writes a plain 401 unless a custom handler was configured.
func (b *JWS) Unauthorized(w http.ResponseWriter, r *http.Request, reason *auth.Unauthorized) {
	if b.unauthorized != nil {
		b.unauthorized(w, r, reason)
		return
	}
	plainUnauthorized(w)
}
