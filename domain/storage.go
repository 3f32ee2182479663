// Package domain defines the storage interfaces consumed by Bastion's
// out-of-box collaborators.
package domain

import (
	"errors"

	"github.com/getbastion/bastion/identity"
)

// ErrNotFound is returned by storage implementations when a record does not
// exist. Callers distinguish it from infrastructure failure with errors.Is.
var ErrNotFound = errors.New("domain: record not found")

// Storage defines the interface for all persistence operations.
type Storage interface {
	IdentityStorage
	SessionStorage
}

type IdentityStorage interface {
	CredentialStorage
	CreateIdentity(id *identity.Identity) error
	GetIdentity(id string) (*identity.Identity, error)
}

type SessionStorage interface {
	CreateSession(s *identity.Session) error
	GetSession(id string) (*identity.Session, error)
	DeleteSession(id string) error
}

type CredentialStorage interface {
	GetCredentialByIdentifier(identifier string, method string) (*identity.Credential, error)
}

// IDGenerator produces a new unique ID.
type IDGenerator func() string

// Hasher defines the interface for password hashing and verification.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}
