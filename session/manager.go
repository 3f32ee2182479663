// Package session manages server-side sessions over a domain.SessionStorage
// and exposes them to the session authentication backend via a cookie-bound
// SessionReader.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/getbastion/bastion/backend"
	"github.com/getbastion/bastion/domain"
	"github.com/getbastion/bastion/identity"
)

// ErrInvalid marks a session that is missing, expired, or deactivated.
// Storage-level failures are returned as-is.
var ErrInvalid = errors.New("session: invalid or expired")

// DefaultCookieName is used when a Manager is built without one.
const DefaultCookieName = "bastion_session"

type Manager struct {
	repo domain.SessionStorage

	// TTL and CookieName may be adjusted before the manager is shared.
	TTL        time.Duration
	CookieName string
}

func NewManager(repo domain.SessionStorage) *Manager {
	return &Manager{
		repo:       repo,
		TTL:        24 * time.Hour,
		CookieName: DefaultCookieName,
	}
}

// Create issues a new session for the identity and persists it.
func (m *Manager) Create(identityID string) (*identity.Session, error) {
	now := time.Now()
	s := &identity.Session{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		ExpiresAt:  now.Add(m.TTL),
		IssuedAt:   now,
		Active:     true,
	}
	if err := m.repo.CreateSession(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate loads the session and checks it is active and unexpired.
func (m *Manager) Validate(sessionID string) (*identity.Session, error) {
	s, err := m.repo.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalid
		}
		return nil, err
	}

	if !s.Active || s.ExpiresAt.Before(time.Now()) {
		return nil, ErrInvalid
	}

	return s, nil
}

// Delete removes the session.
func (m *Manager) Delete(sessionID string) error {
	return m.repo.DeleteSession(sessionID)
}

// SetCookie writes the session cookie for s.
func (m *Manager) SetCookie(w http.ResponseWriter, s *identity.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Reader adapts the manager into the session backend's collaborator. A
// missing cookie or an invalid session yields no session data; storage
// failures propagate.
func (m *Manager) Reader() backend.SessionReader {
	return func(r *http.Request) (map[string]any, error) {
		c, err := r.Cookie(m.CookieName)
		if err != nil || c.Value == "" {
			return nil, nil
		}
		s, err := m.Validate(c.Value)
		if err != nil {
			if errors.Is(err, ErrInvalid) {
				return nil, nil
			}
			return nil, err
		}
		return map[string]any{backend.IdentityKey: s.IdentityID}, nil
	}
}
