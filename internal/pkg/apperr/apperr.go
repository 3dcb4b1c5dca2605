// Package apperr is the error taxonomy shared by every domain package.
// Domain sentinels are *Error values; callers add context with fmt.Errorf("%w")
// and the HTTP edge recovers the kind with errors.As.
package apperr

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindBusinessRule
	KindConfiguration
	KindPersistence
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindBusinessRule:
		return "business_rule"
	case KindConfiguration:
		return "configuration"
	case KindPersistence:
		return "persistence"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// CodeDuplicate marks a persistence error caused by a unique constraint.
const CodeDuplicate = "DUPLICATE"

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(details map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: "Validation failed", Details: details}
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func BusinessRule(code, message string) *Error {
	return New(KindBusinessRule, code, message)
}

func Configuration(key string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Code:    "CONFIGURATION_ERROR",
		Message: fmt.Sprintf("setting %q is missing or invalid", key),
		Details: map[string]string{"key": key},
	}
}

// Persistence wraps a database error. Unique violations keep their own code
// so the edge can report them as a client error.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &Error{Kind: KindPersistence, Code: CodeDuplicate, Message: op + ": record already exists", Err: err}
	}
	return &Error{Kind: KindPersistence, Code: "DB_ERROR", Message: op, Err: err}
}

// As extracts the taxonomy error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
