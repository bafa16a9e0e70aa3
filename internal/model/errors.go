package model

import (
	"errors"
)

// Kind classifies an error for callers of the engine.
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindBadRequest   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// Error is a typed engine error. Sentinel values below are compared with errors.Is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a typed error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain.
// Anything else (driver errors, timeouts) is reported as KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	ErrInvalidID           = NewError(KindBadRequest, "invalid id")
	ErrSelfTarget          = NewError(KindBadRequest, "cannot target yourself")
	ErrInvalidSubject      = NewError(KindBadRequest, "invalid subject type")
	ErrInvalidReactionType = NewError(KindBadRequest, "invalid reaction type")
	ErrInvalidMutualKind   = NewError(KindBadRequest, "invalid mutual kind")
)
