// Package persistence implements domain.Storage on GORM with pluggable
// database providers (sqlite, postgres, mysql by default).
package persistence

import (
	"errors"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/getbastion/bastion/domain"
	"github.com/getbastion/bastion/identity"
)

// notFound maps gorm's sentinel onto the domain one.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func init() {
	Register("sqlite", sqlite.Open)
	Register("postgres", postgres.Open)
	Register("mysql", mysql.Open)
}

// DB exposes the underlying gorm handle for integrators that need it.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&identity.Identity{},
		&identity.Credential{},
		&identity.Session{},
	)
}

func (r *Repository) CreateIdentity(id *identity.Identity) error {
	return r.db.Create(id).Error
}

func (r *Repository) GetIdentity(id string) (*identity.Identity, error) {
	var ident identity.Identity
	if err := r.db.Preload("Credentials").First(&ident, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &ident, nil
}

func (r *Repository) GetCredentialByIdentifier(identifier string, method string) (*identity.Credential, error) {
	var cred identity.Credential
	if err := r.db.Where("identifier = ? AND type = ?", identifier, method).First(&cred).Error; err != nil {
		return nil, notFound(err)
	}
	return &cred, nil
}

func (r *Repository) CreateSession(s *identity.Session) error {
	return r.db.Create(s).Error
}

func (r *Repository) GetSession(id string) (*identity.Session, error) {
	var s identity.Session
	if err := r.db.First(&s, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *Repository) DeleteSession(id string) error {
	return r.db.Delete(&identity.Session{}, "id = ?", id).Error
}
