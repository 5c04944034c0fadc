package validate

import (
	"errors"
	"strings"
	"testing"

	"formsapi/pkg/result"
)

func TestIsEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.co":          true,
		"first.last@x.io": true,
		"no-at.example":   false,
		"a@b":             false,
		"a b@c.de":        false,
		"":                false,
	}
	for in, want := range cases {
		if got := IsEmail(in); got != want {
			t.Fatalf("IsEmail(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestViolationsErr(t *testing.T) {
	var v Violations
	if err := v.Err("Invalid input data"); err != nil {
		t.Fatalf("expected nil error for empty violations, got %v", err)
	}
	v.Present("name", "   ", "Name is required")
	v.Email("email", "bad")
	v.MinLen("password", "short", 8, "Password must be at least 8 characters long")
	v.MaxLen("title", strings.Repeat("x", 201), 200, "too long")
	v.MaxLen("title", strings.Repeat("é", 200), 200, "too long")

	err := v.Err("Invalid input data")
	var envelope *result.Error
	if !errors.As(err, &envelope) {
		t.Fatalf("expected *result.Error, got %T", err)
	}
	if envelope.Code != result.CodeValidation || envelope.HTTPStatus != 400 {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	want := []string{Required, EmailFormat, MinLength, MaxLength}
	if len(envelope.Details) != len(want) {
		t.Fatalf("expected %d details, got %+v", len(want), envelope.Details)
	}
	for i, c := range want {
		if envelope.Details[i].Constraint != c {
			t.Fatalf("detail %d: got %s want %s", i, envelope.Details[i].Constraint, c)
		}
	}
}
