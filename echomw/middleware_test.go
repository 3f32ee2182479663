package echomw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/getbastion/bastion/auth"
	"github.com/getbastion/bastion/backend"
	"github.com/getbastion/bastion/creds"
	"github.com/getbastion/bastion/domain"
	"github.com/getbastion/bastion/identity"
	"github.com/getbastion/bastion/persistence"
	"github.com/getbastion/bastion/rules"
	"github.com/getbastion/bastion/session"
)

func seedUser(t *testing.T, storage domain.Storage, hasher domain.Hasher, email, password string, roles []string) *identity.Identity {
	t.Helper()
	hashed, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	rolesJSON, _ := json.Marshal(roles)
	ident := &identity.Identity{
		ID:    uuid.New().String(),
		Roles: identity.JSON(rolesJSON),
		Credentials: []identity.Credential{{
			ID:         uuid.New().String(),
			Type:       creds.TypePassword,
			Identifier: email,
			Secret:     hashed,
		}},
	}
	ident.Credentials[0].IdentityID = ident.ID
	if err := storage.CreateIdentity(ident); err != nil {
		t.Fatalf("failed to seed identity: %v", err)
	}
	return ident
}

func requireRole(role string) rules.Handler {
	return rules.HandlerFunc(func(r *http.Request) rules.Decision {
		ident, ok := auth.Identity(r.Context()).(*identity.Identity)
		if !ok {
			return rules.Error("role " + role + " required")
		}
		var roles []string
		json.Unmarshal(ident.Roles, &roles)
		for _, have := range roles {
			if have == role {
				return rules.Success()
			}
		}
		return rules.Error("role " + role + " required")
	})
}

func TestEchoIntegration(t *testing.T) {
	storage, err := persistence.NewStorage("sqlite", filepath.Join(t.TempDir(), "bastion.db"), nil)
	if err != nil {
		t.Fatalf("failed to setup storage: %v", err)
	}
	hasher := creds.NewBcryptHasher(4)

	seedUser(t, storage, hasher, "alice@example.com", "alicepw", []string{"admin"})
	seedUser(t, storage, hasher, "bob@example.com", "bobpw", nil)

	manager := session.NewManager(storage)

	verifier := creds.NewPasswordVerifier(storage, hasher)
	basicBackend, err := backend.NewBasic(backend.BasicConfig{
		Realm:        "API",
		IdentityFunc: verifier.IdentityFunc(),
	})
	if err != nil {
		t.Fatalf("failed to build basic backend: %v", err)
	}
	sessionBackend, err := backend.NewSession(backend.SessionConfig{Reader: manager.Reader()})
	if err != nil {
		t.Fatalf("failed to build session backend: %v", err)
	}

	engine, err := rules.New(rules.Options{
		Policy: rules.Allow,
		Rules: []rules.Rule{
			{Pattern: "^/admin($|/.*)", Handler: rules.And(rules.Authenticated, requireRole("admin"))},
		},
	})
	if err != nil {
		t.Fatalf("failed to compile rules: %v", err)
	}

	e := echo.New()
	e.Use(Authenticate(sessionBackend, basicBackend))
	e.Use(CatchUnauthorized())
	e.Use(Access(engine))

	e.GET("/whoami", func(c echo.Context) error {
		ident := auth.Identity(c.Request().Context())
		if ident == nil {
			return auth.Throw("authentication required")
		}
		return c.JSON(http.StatusOK, ident)
	})
	e.GET("/admin/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	// anonymous /whoami: the thrown signal resolves through the first
	// configured backend (session), which issues a plain 401
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous /whoami = %d, want 401", rec.Code)
	}

	// basic auth works end to end
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.SetBasicAuth("alice@example.com", "alicepw")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("basic /whoami = %d: %s", rec.Code, rec.Body.String())
	}

	// admin rule admits admins only
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.SetBasicAuth("alice@example.com", "alicepw")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin /admin/ping = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.SetBasicAuth("bob@example.com", "bobpw")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin /admin/ping = %d, want 403", rec.Code)
	}

	// anonymous /admin/ping is denied by the admin rule
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous /admin/ping = %d, want 403", rec.Code)
	}

	// session cookie authenticates subsequent requests
	carol := seedUser(t, storage, hasher, "carol@example.com", "carolpw", nil)
	sess, err := manager.Create(carol.ID)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: manager.CookieName, Value: sess.ID})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("session /whoami = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEchoUnauthorizedUsesBackendChallenge(t *testing.T) {
	basicBackend, err := backend.NewBasic(backend.BasicConfig{
		Realm: "API",
		IdentityFunc: func(r *http.Request, data any) (any, error) {
			c := data.(backend.Credentials)
			if c.Username == "alice" && c.Password == "pw" {
				return "alice", nil
			}
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("failed to build basic backend: %v", err)
	}

	e := echo.New()
	e.Use(Authenticate(basicBackend))
	e.Use(CatchUnauthorized())
	e.GET("/secret", func(c echo.Context) error {
		return auth.Throw("members only")
	})

	// authenticated but denied: the winning backend issues its challenge
	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.SetBasicAuth("alice", "pw")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 from the basic backend", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="API"` {
		t.Errorf("challenge = %q", got)
	}

	// no credentials at all: the challenge still reaches the client, so
	// browsers can prompt for Basic credentials
	req = httptest.NewRequest(http.MethodGet, "/secret", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="API"` {
		t.Errorf("anonymous challenge = %q", got)
	}
}

func TestEchoRestrict(t *testing.T) {
	e := echo.New()
	deny := rules.HandlerFunc(func(*http.Request) rules.Decision {
		return rules.Error("closed")
	})
	e.GET("/open", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		Restrict(rules.Bool(func(*http.Request) bool { return true }), nil))
	e.GET("/closed", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		Restrict(deny, nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/open", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/open = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/closed", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("/closed = %d, want 403", rec.Code)
	}
}
