// Package identity holds the persistence models backing Bastion's
// out-of-box collaborators: stored identities, their credentials, and
// server-side sessions.
package identity

import (
	"database/sql/driver"
	"errors"
	"time"

	"gorm.io/gorm"
)

// JSON is a custom type for handling JSON data in GORM.
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = []byte(v)
	default:
		return errors.New("invalid type for JSON")
	}
	return nil
}

// Identity represents a stored principal.
type Identity struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Traits    JSON           `gorm:"type:json" json:"traits"`
	Roles     JSON           `gorm:"type:json" json:"roles"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Credentials []Credential `gorm:"foreignKey:IdentityID" json:"-"`
}

func (Identity) TableName() string { return "identities" }

// Credential represents an authentication credential: a hashed password, an
// API token, or anything else a verifier knows how to check.
type Credential struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	IdentityID string    `gorm:"index" json:"identity_id"`
	Type       string    `gorm:"index" json:"type"`
	Identifier string    `gorm:"index" json:"identifier"`
	Secret     string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Credential) TableName() string { return "credentials" }

// Session represents a server-side authenticated session.
type Session struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	IdentityID string    `gorm:"index" json:"identity_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	IssuedAt   time.Time `json:"issued_at"`
	Active     bool      `json:"active"`
}

func (Session) TableName() string { return "sessions" }
