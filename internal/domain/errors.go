package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrListNotFound     = errors.New("list not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrPrivateAccount   = errors.New("target account is private")
	ErrInvalidActivity  = errors.New("invalid activity kind")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInternalError    = errors.New("internal server error")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreDisabled    = errors.New("store disabled for process lifetime")
	ErrPartialErasure   = errors.New("account erasure partially failed")
)

// FailureKind classifies a store failure so callers can distinguish a
// retryable outage from a misconfiguration or a constraint conflict
// without matching on message text.
type FailureKind string

const (
	FailureConnectivity  FailureKind = "connectivity"
	FailureAuthorization FailureKind = "authorization"
	FailureConflict      FailureKind = "conflict"
	FailureUnknown       FailureKind = "unknown"
)

// StoreError wraps a backing-store error with the operation that produced
// it and its classified kind. Adapters wrap errors into this taxonomy
// immediately at the boundary.
type StoreError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError builds a classified store error
func NewStoreError(kind FailureKind, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the failure kind of err, or FailureUnknown when err was
// not produced by an adapter boundary
func KindOf(err error) FailureKind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailureUnknown
}

// IsAuthorizationFailure reports whether err is a permission-class store
// failure, the class that permanently disables the document adapter
func IsAuthorizationFailure(err error) bool {
	return KindOf(err) == FailureAuthorization
}

// IsConflict reports whether err is a constraint-class failure (duplicate
// follow, self-follow, private-account rejection)
func IsConflict(err error) bool {
	if KindOf(err) == FailureConflict {
		return true
	}
	return errors.Is(err, ErrAlreadyFollowing) ||
		errors.Is(err, ErrSelfFollow) ||
		errors.Is(err, ErrPrivateAccount)
}

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrListNotFound) ||
		errors.Is(err, ErrCommentNotFound)
}
