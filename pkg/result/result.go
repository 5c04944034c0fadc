// Package result implements the uniform success-or-error protocol returned
// by every operation. A Result is tagged at construction with either the
// payload kind or "Error"; consumers branch on Kind or Err.
package result

import "encoding/json"

// ErrorKind tags a failed Result.
const ErrorKind = "Error"

type Result[T any] struct {
	kind  string
	value T
	err   *Error
}

// OK wraps a successful payload of the named kind.
func OK[T any](kind string, value T) Result[T] {
	return Result[T]{kind: kind, value: value}
}

// Fail wraps an error. err must be non-nil.
func Fail[T any](err *Error) Result[T] {
	if err == nil {
		err = Internal()
	}
	return Result[T]{kind: ErrorKind, err: err}
}

func (r Result[T]) Kind() string { return r.kind }

func (r Result[T]) IsOK() bool { return r.err == nil }

// Err returns the failure envelope, or nil on success.
func (r Result[T]) Err() *Error { return r.err }

// Value returns the payload; it is the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Unwrap returns the payload and a Go error, for callers that prefer
// explicit error returns.
func (r Result[T]) Unwrap() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

type envelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.err != nil {
		return json.Marshal(envelope{Type: ErrorKind, Error: r.err})
	}
	return json.Marshal(envelope{Type: r.kind, Data: r.value})
}
