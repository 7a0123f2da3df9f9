package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewID(t *testing.T) {
	plain := NewID("")
	if _, err := uuid.Parse(plain); err != nil {
		t.Fatalf("expected a uuid, got %q", plain)
	}
	prefixed := NewID("msg")
	if !strings.HasPrefix(prefixed, "msg_") {
		t.Fatalf("expected msg_ prefix, got %q", prefixed)
	}
	if NewID("msg") == prefixed {
		t.Fatal("ids must be unique")
	}
}
