package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validClaims() Claims {
	return Claims{
		Sub:      "user-1",
		TenantID: "tenant-1",
		Name:     "Avery",
		Role:     "editor",
		JTI:      "jti-1",
		Exp:      time.Now().Add(time.Hour).Unix(),
	}
}

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, validClaims())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Sub != "user-1" || claims.TenantID != "tenant-1" || claims.Role != "editor" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	c := validClaims()
	c.Exp = time.Now().Add(-time.Minute).Unix()
	issued, err := IssueToken([]byte("secret"), c)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("secret"), issued); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	issued, _ := IssueToken([]byte("secret"), validClaims())

	cases := map[string]string{
		"wrong secret": issued,
		"no signature": strings.Split(issued, ".")[0],
		"extra part":   issued + ".x",
	}
	for name, token := range cases {
		secret := []byte("secret")
		if name == "wrong secret" {
			secret = []byte("other")
		}
		if _, err := ParseToken(secret, token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestParseTokenRequiresTenant(t *testing.T) {
	c := validClaims()
	c.TenantID = ""
	issued, _ := IssueToken([]byte("secret"), c)
	if _, err := ParseToken([]byte("secret"), issued); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSignerSetsExpiry(t *testing.T) {
	s := NewSigner("secret", 15*time.Minute)
	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	token, claims, err := s.Issue(validClaims())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if claims.Exp != fixed.Add(15*time.Minute).Unix() {
		t.Fatalf("unexpected exp %d", claims.Exp)
	}
	if _, err := s.Parse(token); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	s.now = func() time.Time { return fixed.Add(time.Hour) }
	if _, err := s.Parse(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestHashTokenIsStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") || HashToken("abc") == HashToken("abd") {
		t.Fatal("hash must be deterministic and distinct")
	}
	a, _ := NewOpaqueToken()
	b, _ := NewOpaqueToken()
	if len(a) != 64 || a == b {
		t.Fatalf("unexpected opaque tokens %q %q", a, b)
	}
}
