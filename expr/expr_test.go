package expr

import (
	"testing"

	"github.com/mvexel/cosmo/feature"
)

func TestEvaluateInterpolatesTagsAndMeta(t *testing.T) {
	p, err := Compile("${tag:name} (${meta:id})")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got := p.Evaluate(map[string]string{"name": "Central Park"}, feature.MetadataFields{ID: 42})
	if want := "Central Park (42)"; got != want {
		t.Errorf("Evaluate() = %q, want %q", got, want)
	}
}

func TestEvaluateUnresolvedPlaceholderIsEmpty(t *testing.T) {
	p, err := Compile("[${tag:missing}]")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if got := p.Evaluate(map[string]string{}, feature.MetadataFields{}); got != "[]" {
		t.Errorf("Evaluate() = %q, want %q", got, "[]")
	}
}

func TestCompileRejectsUnterminatedPlaceholder(t *testing.T) {
	if _, err := Compile("${tag:name"); err == nil {
		t.Errorf("Compile should reject an unterminated placeholder")
	}
}

func TestCompileRejectsUnknownPrefix(t *testing.T) {
	if _, err := Compile("${foo:bar}"); err == nil {
		t.Errorf("Compile should reject a placeholder without tag:/meta: prefix")
	}
}
