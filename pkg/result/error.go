package result

import (
	"errors"
	"net/http"
	"strings"
)

// Code identifies an error category in the envelope.
type Code string

const (
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeFormNotFound       Code = "FORM_NOT_FOUND"
	CodeQuestionNotFound   Code = "QUESTION_NOT_FOUND"
	CodeResponseNotFound   Code = "RESPONSE_NOT_FOUND"
	CodeDuplicateEmail     Code = "DUPLICATE_EMAIL"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Detail is one field-level violation.
type Detail struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Constraint string `json:"constraint"`
}

// Error is the failure envelope returned to callers.
type Error struct {
	Code       Code     `json:"code"`
	Message    string   `json:"message"`
	HTTPStatus int      `json:"httpStatus"`
	Details    []Detail `json:"details"`
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return string(e.Code) + ": " + e.Message
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return string(e.Code) + ": " + e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of e with d appended.
func (e *Error) WithDetail(field, message, constraint string) *Error {
	out := *e
	out.Details = append(append([]Detail(nil), e.Details...), Detail{Field: field, Message: message, Constraint: constraint})
	return &out
}

func newError(code Code, status int, message string) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: status, Details: []Detail{}}
}

func Unauthorized() *Error {
	return newError(CodeUnauthorized, http.StatusUnauthorized, "Authentication required")
}

// Forbidden builds FORBIDDEN; an empty message uses a generic one.
func Forbidden(message string) *Error {
	if message == "" {
		message = "You do not have permission to access this resource"
	}
	return newError(CodeForbidden, http.StatusForbidden, message)
}

// Validation builds a VALIDATION_ERROR carrying details.
func Validation(message string, details []Detail) *Error {
	if message == "" {
		message = "Invalid input data"
	}
	e := newError(CodeValidation, http.StatusBadRequest, message)
	if len(details) > 0 {
		e.Details = append(e.Details, details...)
	}
	return e
}

// NotFound builds <ENTITY>_NOT_FOUND for one of user, form, question, response.
func NotFound(code Code, entity string) *Error {
	return newError(code, http.StatusNotFound, entity+" not found")
}

func UserNotFound() *Error     { return NotFound(CodeUserNotFound, "User") }
func FormNotFound() *Error     { return NotFound(CodeFormNotFound, "Form") }
func QuestionNotFound() *Error { return NotFound(CodeQuestionNotFound, "Question") }
func ResponseNotFound() *Error { return NotFound(CodeResponseNotFound, "Response") }

func DuplicateEmail() *Error {
	return newError(CodeDuplicateEmail, http.StatusConflict, "Email already exists").
		WithDetail("email", "This email is already registered", "UNIQUE")
}

func InvalidCredentials() *Error {
	return newError(CodeInvalidCredentials, http.StatusUnauthorized, "Invalid email or password").
		WithDetail("credentials", "Email or password is incorrect", "AUTHENTICATION")
}

// Internal hides the cause; callers log it separately.
func Internal() *Error {
	return newError(CodeInternal, http.StatusInternalServerError, "An internal error occurred")
}

// From converts any error to an envelope. Non-envelope errors become
// INTERNAL_ERROR.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal()
}
