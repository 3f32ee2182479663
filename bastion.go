// Package bastion wires the library's pieces together with sensible
// defaults: gorm-backed storage, bcrypt password verification, and
// cookie-bound sessions. Integrators who bring their own identity store use
// the subpackages directly instead.
package bastion

import (
	"gorm.io/gorm"

	"github.com/getbastion/bastion/backend"
	"github.com/getbastion/bastion/creds"
	"github.com/getbastion/bastion/identity"
	"github.com/getbastion/bastion/persistence"
	"github.com/getbastion/bastion/session"
)

// Default types for convenience
type Identity = identity.Identity

// NewDefaultSessionManager creates a session Manager over gorm storage.
func NewDefaultSessionManager(db *gorm.DB) *session.Manager {
	return session.NewManager(persistence.NewRepository(db))
}

// NewDefaultBasicBackend creates a Basic backend that verifies bcrypt
// password credentials stored in db.
func NewDefaultBasicBackend(db *gorm.DB, realm string) (*backend.Basic, error) {
	repo := persistence.NewRepository(db)
	verifier := creds.NewPasswordVerifier(repo, creds.NewBcryptHasher(14))
	return backend.NewBasic(backend.BasicConfig{
		Realm:        realm,
		IdentityFunc: verifier.IdentityFunc(),
	})
}

// NewDefaultSessionBackend creates a Session backend reading the manager's
// cookie-bound sessions.
func NewDefaultSessionBackend(m *session.Manager) (*backend.Session, error) {
	return backend.NewSession(backend.SessionConfig{Reader: m.Reader()})
}

// NewDefaultTokenBackend creates a Token backend that resolves opaque API
// tokens stored in db.
func NewDefaultTokenBackend(db *gorm.DB) (*backend.Token, error) {
	verifier := creds.NewTokenVerifier(persistence.NewRepository(db))
	return backend.NewToken(backend.TokenConfig{
		IdentityFunc: verifier.IdentityFunc(),
	})
}
