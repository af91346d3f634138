package core

import "github.com/pkg/errors"

// ErrStoreUnavailable is matched (errors.Is) by any failure to reach the backing store.
// Operations failing with it did not commit anything and are safe to retry.
var ErrStoreUnavailable = errors.New("store unavailable")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error {
	return err.Err
}

// StoreError reports a store operation that could not reach the backend.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func (err *StoreError) Error() string {
	return err.Op + ": " + ErrStoreUnavailable.Error() + ": " + err.Err.Error()
}

func (err *StoreError) Unwrap() error {
	return err.Err
}

func (err *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
