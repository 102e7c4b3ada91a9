package credentials

import (
	"errors"
	"fmt"
	"testing"

	"mediagen/internal/domain"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestGuardTrimsValue(t *testing.T) {
	key, err := Guard(lookupFrom(map[string]string{"GOOGLE_API_KEY": " abc123 "}), "GOOGLE_API_KEY")
	if err != nil {
		t.Fatalf("Guard error: %v", err)
	}
	if key.Value() != "abc123" {
		t.Fatalf("unexpected key: %q", key.Value())
	}
}

func TestGuardFallsBackToSecondKey(t *testing.T) {
	env := map[string]string{"GOOGLE_API_KEY": "  ", "GEMINI_API_KEY": "fallback"}
	key, err := Guard(lookupFrom(env), "GOOGLE_API_KEY", "GEMINI_API_KEY")
	if err != nil {
		t.Fatalf("Guard error: %v", err)
	}
	if key.Value() != "fallback" {
		t.Fatalf("unexpected key: %q", key.Value())
	}
}

func TestGuardMissing(t *testing.T) {
	_, err := Guard(lookupFrom(map[string]string{}), "GOOGLE_API_KEY")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindConfiguration {
		t.Fatalf("expected configuration error, got %#v", err)
	}
}

func TestAPIKeyRedacted(t *testing.T) {
	key := APIKey("super-secret")
	if got := fmt.Sprintf("%v %s", key, key); got != "[redacted] [redacted]" {
		t.Fatalf("key leaked through formatting: %q", got)
	}
}
