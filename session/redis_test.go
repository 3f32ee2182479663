package session

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/getbastion/bastion/domain"
	"github.com/getbastion/bastion/identity"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
}

func TestRedisSessionRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)

	now := time.Now()
	sess := &identity.Session{
		ID:         "sess-1",
		IdentityID: "ident-1",
		ExpiresAt:  now.Add(time.Hour),
		IssuedAt:   now,
		Active:     true,
	}
	if err := store.CreateSession(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	got, err := store.GetSession("sess-1")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	if got.IdentityID != "ident-1" || !got.Active {
		t.Errorf("session = %+v, want active ident-1", got)
	}

	if err := store.DeleteSession("sess-1"); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	if _, err := store.GetSession("sess-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want domain.ErrNotFound after delete", err)
	}
}

func TestRedisGetUnknownSession(t *testing.T) {
	store := newTestRedisStore(t)
	if _, err := store.GetSession("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want domain.ErrNotFound", err)
	}
}

func TestRedisRejectsAlreadyExpiredSession(t *testing.T) {
	store := newTestRedisStore(t)

	sess := &identity.Session{
		ID:         "sess-expired",
		IdentityID: "ident-1",
		ExpiresAt:  time.Now().Add(-time.Minute),
		IssuedAt:   time.Now().Add(-time.Hour),
		Active:     true,
	}
	if err := store.CreateSession(sess); err == nil {
		t.Fatal("creating an already-expired session should fail")
	}
	if _, err := store.GetSession("sess-expired"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want domain.ErrNotFound (nothing stored)", err)
	}
}

func TestRedisManagerValidate(t *testing.T) {
	m := NewManager(newTestRedisStore(t))

	sess, err := m.Create("ident-1")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	got, err := m.Validate(sess.ID)
	if err != nil {
		t.Fatalf("failed to validate session: %v", err)
	}
	if got.IdentityID != "ident-1" {
		t.Errorf("identity = %q, want ident-1", got.IdentityID)
	}

	if _, err := m.Validate("missing"); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}
