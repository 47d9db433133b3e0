package ldforge

import (
	"errors"
	"fmt"
)

// ErrorInfo is the serialisable form of an error in a [Result].
type ErrorInfo struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Ref     string   `json:"ref,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

// Result is the uniform envelope for the outcome of an operation. Exactly
// one of Data and Error is meaningful, depending on Success.
type Result[T any] struct {
	Success bool       `json:"success"`
	Data    T          `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// NewErrorInfo converts err for use in a [Result].
func NewErrorInfo(err error) *ErrorInfo {
	info := &ErrorInfo{
		Kind:    KindName(err),
		Message: err.Error(),
		Hints:   Hints(err),
	}
	var e *Error
	if errors.As(err, &e) {
		info.Ref = e.Ref
	}
	return info
}

// Run calls fn and wraps its outcome in a [Result]. Panics are recovered
// and reported as an internal error.
func Run[T any](fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			res = Result[T]{
				Data: zero,
				Error: &ErrorInfo{
					Kind:    "InternalError",
					Message: fmt.Sprintf("panic: %v", r),
				},
			}
		}
	}()

	data, err := fn()
	if err != nil {
		return Result[T]{Error: NewErrorInfo(err)}
	}

	return Result[T]{Success: true, Data: data}
}
