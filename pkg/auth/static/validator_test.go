package static

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/osvaldoandrade/repozip/pkg/auth"
)

func TestStaticValidator(t *testing.T) {
	raw := json.RawMessage(`{"token":"t-1","subject":"team-a","competitions":["spring"]}`)
	v, err := NewValidatorFromJSON(raw)
	if err != nil {
		t.Fatalf("NewValidatorFromJSON: %v", err)
	}
	claims, err := v.Validate("t-1")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "team-a" {
		t.Fatalf("expected subject team-a, got %q", claims.Subject)
	}
	if !claims.Allows("spring") || claims.Allows("autumn") {
		t.Fatalf("unexpected competition scope: %v", claims.Competitions)
	}
	if _, err := v.Validate("wrong"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestStaticValidator_StringConfig(t *testing.T) {
	v, err := NewValidatorFromJSON(json.RawMessage(`"t-2"`))
	if err != nil {
		t.Fatalf("NewValidatorFromJSON: %v", err)
	}
	claims, err := v.Validate(" t-2 ")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != SubjectFor("t-2") {
		t.Fatalf("expected derived subject, got %q", claims.Subject)
	}
}

func TestStaticValidator_TokenList(t *testing.T) {
	v, err := NewValidatorFromJSON(json.RawMessage(`{"tokens":["a-key","b-key"],"keys":[{"token":"c-key","subject":"carol"}]}`))
	if err != nil {
		t.Fatalf("NewValidatorFromJSON: %v", err)
	}
	a, err := v.Validate("a-key")
	if err != nil {
		t.Fatalf("Validate a: %v", err)
	}
	b, err := v.Validate("b-key")
	if err != nil {
		t.Fatalf("Validate b: %v", err)
	}
	if a.Subject == b.Subject {
		t.Fatalf("distinct tokens must map to distinct subjects")
	}
	if c, err := v.Validate("c-key"); err != nil || c.Subject != "carol" {
		t.Fatalf("Validate c = %+v, %v", c, err)
	}
}

func TestStaticValidator_Empty(t *testing.T) {
	for _, raw := range []string{``, `{}`, `{"tokens":[" "]}`} {
		if _, err := NewValidatorFromJSON(json.RawMessage(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestRegisteredAsStatic(t *testing.T) {
	v, err := auth.NewValidator(auth.ProviderConfig{Type: "static", Config: json.RawMessage(`"k"`)})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	if _, err := v.Validate("k"); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
