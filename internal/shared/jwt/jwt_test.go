package jwt

import (
	"testing"
)

func TestGenerateAndParse(t *testing.T) {
	m := NewManager("test-secret", 1)

	token, err := m.Generate("user-1", "driver")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("user id = %q, want user-1", claims.UserID)
	}
	if claims.Role != "driver" {
		t.Errorf("role = %q, want driver", claims.Role)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", 1).Generate("user-1", "customer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewManager("secret-b", 1).Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -1)

	token, err := m.Generate("user-1", "customer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := m.Parse(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", 1)

	for _, tokenStr := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.Parse(tokenStr); err != ErrInvalidToken {
			t.Errorf("Parse(%q): expected ErrInvalidToken, got %v", tokenStr, err)
		}
	}
}

func TestParseRejectsUnsignedToken(t *testing.T) {
	// alg=none header with our claims payload must never validate.
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJ1c2VyX2lkIjoidXNlci0xIiwicm9sZSI6ImFkbWluIn0."

	if _, err := NewManager("test-secret", 1).Parse(unsigned); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for alg=none token, got %v", err)
	}
}
