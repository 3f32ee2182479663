// Package creds provides ready-made identity functions over domain storage:
// bcrypt-checked passwords for the Basic backend and stored API tokens for
// the Token backend. Integrators with their own credential stores supply
// their own auth.IdentityFunc instead.
package creds

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/getbastion/bastion/auth"
	"github.com/getbastion/bastion/backend"
	"github.com/getbastion/bastion/domain"
	"github.com/getbastion/bastion/identity"
)

// Credential types used by the verifiers.
const (
	TypePassword = "password"
	TypeAPIToken = "api_token"
)

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = 14
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	return string(bytes), err
}

func (h *BcryptHasher) Compare(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// PasswordVerifier checks Basic credentials against stored password
// credentials.
type PasswordVerifier struct {
	storage domain.IdentityStorage
	hasher  domain.Hasher
}

func NewPasswordVerifier(storage domain.IdentityStorage, hasher domain.Hasher) *PasswordVerifier {
	return &PasswordVerifier{storage: storage, hasher: hasher}
}

// IdentityFunc adapts the verifier for the Basic backend. Unknown users and
// wrong passwords resolve to no identity; storage failures propagate.
func (v *PasswordVerifier) IdentityFunc() auth.IdentityFunc {
	return func(r *http.Request, data any) (any, error) {
		c, ok := data.(backend.Credentials)
		if !ok {
			return nil, nil
		}
		cred, err := v.storage.GetCredentialByIdentifier(c.Username, TypePassword)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if !v.hasher.Compare(c.Password, cred.Secret) {
			return nil, nil
		}
		ident, err := v.storage.GetIdentity(cred.IdentityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return ident, nil
	}
}

// TokenVerifier checks opaque bearer tokens against stored api_token
// credentials.
type TokenVerifier struct {
	storage domain.IdentityStorage
}

func NewTokenVerifier(storage domain.IdentityStorage) *TokenVerifier {
	return &TokenVerifier{storage: storage}
}

// IdentityFunc adapts the verifier for the Token backend.
func (v *TokenVerifier) IdentityFunc() auth.IdentityFunc {
	return func(r *http.Request, data any) (any, error) {
		token, ok := data.(string)
		if !ok || token == "" {
			return nil, nil
		}
		cred, err := v.storage.GetCredentialByIdentifier(token, TypeAPIToken)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		ident, err := v.storage.GetIdentity(cred.IdentityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return ident, nil
	}
}

// CreatePasswordIdentity stores a new identity with a hashed password
// credential. Meant for seeding and tooling; full registration flows live
// outside Bastion.
func CreatePasswordIdentity(storage domain.IdentityStorage, hasher domain.Hasher, identifier, password string, traits identity.JSON) (*identity.Identity, error) {
	hashed, err := hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	ident := &identity.Identity{
		ID:     uuid.New().String(),
		Traits: traits,
		Credentials: []identity.Credential{{
			ID:         uuid.New().String(),
			Type:       TypePassword,
			Identifier: identifier,
			Secret:     hashed,
		}},
	}
	ident.Credentials[0].IdentityID = ident.ID

	if err := storage.CreateIdentity(ident); err != nil {
		return nil, err
	}
	return ident, nil
}
