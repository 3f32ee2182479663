package backend

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenRequiresIdentityFunc(t *testing.T) {
	if _, err := NewToken(TokenConfig{}); err == nil {
		t.Fatal("expected construction to fail without IdentityFunc")
	}
}

func TestTokenParse(t *testing.T) {
	b, err := NewToken(TokenConfig{IdentityFunc: func(r *http.Request, data any) (any, error) {
		return nil, nil
	}})
	if err != nil {
		t.Fatalf("failed to build backend: %v", err)
	}

	tests := []struct {
		name   string
		header string
		ok     bool
		want   string
	}{
		{"valid", "Token abc123", true, "abc123"},
		{"lowercase scheme", "token abc123", true, "abc123"},
		{"missing header", "", false, ""},
		{"wrong scheme", "Bearer abc123", false, ""},
		{"empty token", "Token ", false, ""},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		data, ok := b.Parse(r)
		if ok != tt.ok {
			t.Errorf("%s: parse ok = %v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && data.(string) != tt.want {
			t.Errorf("%s: token = %q, want %q", tt.name, data, tt.want)
		}
	}
}

func TestTokenCustomHeaderAndScheme(t *testing.T) {
	b, err := NewToken(TokenConfig{
		Header: "X-Api-Key",
		Scheme: "Key",
		IdentityFunc: func(r *http.Request, data any) (any, error) {
			if data == "sekrit" {
				return "service-7", nil
			}
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("failed to build backend: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Api-Key", "Key sekrit")

	data, ok := b.Parse(r)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	ident, err := b.Authenticate(r, data)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if ident != "service-7" {
		t.Errorf("identity = %v, want service-7", ident)
	}
}
