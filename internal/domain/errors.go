package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Operation string
}

func (e ForbiddenError) Error() string {
	if e.Operation == "" {
		return "forbidden"
	}
	return fmt.Sprintf("Forbidden Permission Denied To %s Resource", e.Operation)
}

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// StoreKind distinguishes persistence failure classes.
type StoreKind string

const (
	StoreIntegrity      StoreKind = "integrity_error"
	StoreOperational    StoreKind = "operational_error"
	StoreInvalidRequest StoreKind = "invalid_request_error"
	StoreDetached       StoreKind = "detached_instance_error"
)

// StoreError carries the persistence failure class together with the
// operation name, HTTP status, and the payload that triggered it. The
// transaction has already been rolled back by the time it is returned.
type StoreError struct {
	Kind      StoreKind
	Operation string
	Status    int
	Data      any
	Err       error
}

func (e StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s during %s: %v", e.Kind, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s during %s", e.Kind, e.Operation)
}

func (e StoreError) Unwrap() error { return e.Err }

type ExternalServiceError struct {
	Service string
	Err     error
}

func (e ExternalServiceError) Error() string {
	if e.Service == "" {
		return "external service error"
	}
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e ExternalServiceError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func AsStoreError(err error) (StoreError, bool) {
	var target StoreError
	ok := errors.As(err, &target)
	return target, ok
}
