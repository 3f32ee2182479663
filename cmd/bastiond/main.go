package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/getbastion/bastion"
	"github.com/getbastion/bastion/auth"
	"github.com/getbastion/bastion/backend"
	"github.com/getbastion/bastion/config"
	"github.com/getbastion/bastion/creds"
	"github.com/getbastion/bastion/domain"
	"github.com/getbastion/bastion/echomw"
	"github.com/getbastion/bastion/identity"
	"github.com/getbastion/bastion/logger"
	"github.com/getbastion/bastion/persistence"
	"github.com/getbastion/bastion/rules"
	"github.com/getbastion/bastion/session"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	defer logger.Log.Sync()

	logger.Log.Info("Starting Bastion Gateway",
		zap.Int("port", cfg.Port),
		zap.String("dsn", cfg.DSN),
	)

	storage, err := persistence.NewStorage(cfg.DBType, cfg.DSN, nil)
	if err != nil {
		logger.Log.Fatal("failed to initialize storage", zap.Error(err))
	}
	db := storage.(*persistence.Repository).DB()

	// Sessions live in Redis when an address is configured, otherwise in
	// the main database.
	var manager *session.Manager
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		manager = session.NewManager(session.NewRedisStore(client, ""))
	} else {
		manager = bastion.NewDefaultSessionManager(db)
	}
	manager.CookieName = cfg.SessionCookie

	verifier := creds.NewPasswordVerifier(storage, creds.NewBcryptHasher(14))

	basicBackend, err := bastion.NewDefaultBasicBackend(db, cfg.Realm)
	if err != nil {
		logger.Log.Fatal("failed to build basic backend", zap.Error(err))
	}
	sessionBackend, err := bastion.NewDefaultSessionBackend(manager)
	if err != nil {
		logger.Log.Fatal("failed to build session backend", zap.Error(err))
	}

	backends := []auth.Backend{sessionBackend, basicBackend}
	if cfg.TokenSecret != "" {
		jwsBackend, err := backend.NewJWS(backend.JWSConfig{
			Key:    []byte(cfg.TokenSecret),
			Method: jwt.SigningMethodHS256,
			OnError: func(r *http.Request, err error) {
				logger.Log.Debug("token rejected", zap.Error(err))
			},
		})
		if err != nil {
			logger.Log.Fatal("failed to build jws backend", zap.Error(err))
		}
		backends = append(backends, jwsBackend)
	}

	policy, err := rules.ParsePolicy(cfg.AccessPolicy)
	if err != nil {
		logger.Log.Fatal("invalid access policy", zap.Error(err))
	}

	engine, err := rules.New(rules.Options{
		Policy: policy,
		OnError: func(w http.ResponseWriter, r *http.Request, d rules.Decision) {
			logger.Log.Info("access denied",
				zap.String("path", r.URL.Path),
				zap.String("reason", d.Message()),
			)
			msg := d.Message()
			if msg == "" {
				msg = http.StatusText(http.StatusForbidden)
			}
			http.Error(w, msg, http.StatusForbidden)
		},
		Rules: []rules.Rule{
			{Pattern: "^/admin($|/.*)", Handler: rules.And(rules.Authenticated, requireRole(storage, "admin"))},
			{Pattern: "^/api($|/.*)", Handler: rules.Authenticated},
			{Pattern: "^/login$", Handler: rules.Bool(func(*http.Request) bool { return true })},
		},
	})
	if err != nil {
		logger.Log.Fatal("failed to compile access rules", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(echomw.Authenticate(backends...))
	e.Use(echomw.CatchUnauthorized())
	e.Use(echomw.Access(engine))

	e.POST("/login", handleLogin(manager, verifier))
	e.POST("/logout", handleLogout(manager))
	e.GET("/whoami", handleWhoAmI)
	e.GET("/admin/stats", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	logger.Log.Info("Server is starting", zap.Int("port", cfg.Port))
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Log.Fatal("server failed to start", zap.Error(err))
	}
}

// requireRole checks the stored identity's roles column. Session-backed
// requests carry only the identity ID, so those are resolved through storage.
func requireRole(storage domain.IdentityStorage, role string) rules.Handler {
	return rules.HandlerFunc(func(r *http.Request) rules.Decision {
		var ident *identity.Identity
		switch v := auth.Identity(r.Context()).(type) {
		case *identity.Identity:
			ident = v
		case string:
			loaded, err := storage.GetIdentity(v)
			if err != nil {
				return rules.Error("role " + role + " required")
			}
			ident = loaded
		default:
			return rules.Error("role " + role + " required")
		}
		var roles []string
		if len(ident.Roles) > 0 {
			if err := json.Unmarshal(ident.Roles, &roles); err != nil {
				return rules.Error("role " + role + " required")
			}
		}
		for _, have := range roles {
			if have == role {
				return rules.Success()
			}
		}
		return rules.Error("role " + role + " required")
	})
}

func handleLogin(manager *session.Manager, verifier *creds.PasswordVerifier) echo.HandlerFunc {
	identityFn := verifier.IdentityFunc()
	return func(c echo.Context) error {
		var body struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}

		resolved, err := identityFn(c.Request(), backend.Credentials{
			Username: body.Identifier,
			Password: body.Password,
		})
		if err != nil {
			return err
		}
		ident, _ := resolved.(*identity.Identity)
		if ident == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}

		sess, err := manager.Create(ident.ID)
		if err != nil {
			return err
		}
		manager.SetCookie(c.Response(), sess)

		return c.JSON(http.StatusOK, map[string]string{"session": sess.ID})
	}
}

func handleLogout(manager *session.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cookie, err := c.Cookie(manager.CookieName); err == nil && cookie.Value != "" {
			if err := manager.Delete(cookie.Value); err != nil {
				return err
			}
		}
		manager.ClearCookie(c.Response())
		return c.NoContent(http.StatusNoContent)
	}
}

func handleWhoAmI(c echo.Context) error {
	ident := auth.Identity(c.Request().Context())
	if ident == nil {
		return auth.Throw("authentication required")
	}
	return c.JSON(http.StatusOK, ident)
}
