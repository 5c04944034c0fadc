// Package validate collects field-level violations for operation inputs.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"formsapi/pkg/result"
)

// Constraint codes reported in violation details.
const (
	Required         = "REQUIRED"
	EmailFormat      = "EMAIL_FORMAT"
	MinLength        = "MIN_LENGTH"
	MaxLength        = "MAX_LENGTH"
	InvalidValue     = "INVALID_VALUE"
	MinOptions       = "MIN_OPTIONS"
	OutOfRange       = "OUT_OF_RANGE"
	InvalidOption    = "INVALID_OPTION"
	RequiredQuestion = "REQUIRED_QUESTION"
	InvalidQuestion  = "INVALID_QUESTION_ID"
	IncompleteOrder  = "INCOMPLETE_ORDER"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsEmail reports whether s looks like local@domain.tld.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Violations accumulates details; the zero value is ready to use.
type Violations struct {
	details []result.Detail
}

func (v *Violations) Add(field, message, constraint string) {
	v.details = append(v.details, result.Detail{Field: field, Message: message, Constraint: constraint})
}

func (v *Violations) Empty() bool { return len(v.details) == 0 }

func (v *Violations) Details() []result.Detail {
	return append([]result.Detail(nil), v.details...)
}

// Err returns a VALIDATION_ERROR with message, or nil when nothing was added.
func (v *Violations) Err(message string) error {
	if v.Empty() {
		return nil
	}
	return result.Validation(message, v.details)
}

// Present adds a REQUIRED violation when value is blank and reports whether
// it was present.
func (v *Violations) Present(field, value, message string) bool {
	if strings.TrimSpace(value) == "" {
		v.Add(field, message, Required)
		return false
	}
	return true
}

func (v *Violations) Email(field, value string) {
	if !IsEmail(value) {
		v.Add(field, "Invalid email format", EmailFormat)
	}
}

func (v *Violations) MinLen(field, value string, n int, message string) {
	if utf8.RuneCountInString(value) < n {
		v.Add(field, message, MinLength)
	}
}

func (v *Violations) MaxLen(field, value string, n int, message string) {
	if utf8.RuneCountInString(value) > n {
		v.Add(field, message, MaxLength)
	}
}
