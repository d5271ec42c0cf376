package cachestore

import (
	"errors"
	"fmt"
)

// Kind classifies a cache store failure. The set is closed: every error coming
// out of a Store maps to exactly one Kind through KindOf.
type Kind int

const (
	// KindGeneric is any failure not otherwise classified
	KindGeneric Kind = iota
	// KindValidation means the request itself was malformed (bad key, no paths)
	KindValidation
	// KindAlreadyExists means the key is already reserved by an earlier save
	KindAlreadyExists
	// KindNotFound means neither the primary key nor any fallback matched
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAlreadyExists:
		return "already-exists"
	case KindNotFound:
		return "not-found"
	}
	return "generic"
}

// Error is the error type returned by Store implementations
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cache %s: key %q", e.Kind, e.Key)
	}
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("cache %s: key %q: %s", e.Kind, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the passed kind
func NewError(kind Kind, key string, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}

// Validationf creates a KindValidation error with a formatted message
func Validationf(key string, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Key: key, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in the chain of 'err', or KindGeneric
// if there is none. A nil error has no kind and also returns KindGeneric.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return KindGeneric
}

// IsKind is shorthand for KindOf(err) == kind with a nil check
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
