// Package apperr defines the typed failure kinds raised by the service and
// repository layers. Every kind carries a stable machine-readable code that
// surfaces in the HTTP error body; see internal/problem for the translation.
package apperr

import (
	"errors"
	"fmt"
)

// Machine-readable error codes. These are part of the wire contract: clients
// dispatch on them, so they must not change.
const (
	CodeNotFound         = "RESOURCE_NOT_FOUND"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeDuplicateEmail   = "DUPLICATE_EMAIL"
	CodeConflict         = "RESOURCE_CONFLICT"
	CodeBusinessRule     = "BUSINESS_RULE_VIOLATION"
	CodeArgumentInvalid  = "ARGUMENT_INVALID"
	CodeServiceFailed    = "SERVICE_OPERATION_FAILED"
	CodeRepositoryFailed = "REPOSITORY_FAILED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeTimeout          = "REQUEST_TIMEOUT"
	CodeUnknown          = "UNKNOWN_ERROR"
)

// NotFoundError indicates the requested entity does not exist (or was soft
// deleted). Entity is the entity type name, ID its identifier.
type NotFoundError struct {
	Entity string
	ID     string
	Code   string
}

// NewNotFound builds a NotFoundError with the default code and message.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id, Code: CodeNotFound}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("The %s with identifier '%s' was not found.", e.Entity, e.ID)
}

// ValidationError carries one or more field-level violations. Build it with a
// ValidationBuilder; once constructed the error set is immutable.
type ValidationError struct {
	Target string
	Errors map[string][]string
	Code   string
}

func (e *ValidationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("Validation failed for %s.", e.Target)
	}
	return "Validation failed."
}

// ConflictError indicates a uniqueness violation. Value is the conflicting
// value (e.g. the duplicate email address).
type ConflictError struct {
	Value string
	Code  string
}

// NewDuplicateEmail builds the duplicate-email specialization of ConflictError.
func NewDuplicateEmail(email string) *ConflictError {
	return &ConflictError{Value: email, Code: CodeDuplicateEmail}
}

func (e *ConflictError) Error() string {
	if e.Code == CodeDuplicateEmail {
		return fmt.Sprintf("A user with email '%s' already exists.", e.Value)
	}
	return fmt.Sprintf("The value '%s' conflicts with existing state.", e.Value)
}

// BusinessRuleError indicates a domain rule rejected the operation. Rule names
// the violated rule; Context carries rule-specific attributes for the client.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]any
	Code    string
}

// NewBusinessRule builds a BusinessRuleError with the default code.
func NewBusinessRule(rule, message string, context map[string]any) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context, Code: CodeBusinessRule}
}

func (e *BusinessRuleError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Business rule '%s' was violated.", e.Rule)
}

// ArgumentError indicates malformed input detected before reaching
// persistence (empty id, malformed email, bad query parameter).
type ArgumentError struct {
	Param   string
	Message string
	Code    string
}

// NewArgument builds an ArgumentError with the default code.
func NewArgument(param, message string) *ArgumentError {
	return &ArgumentError{Param: param, Message: message, Code: CodeArgumentInvalid}
}

func (e *ArgumentError) Error() string { return e.Message }

// ServiceError wraps an unexpected failure bubbling out of a lower layer so
// callers only ever see domain-shaped errors at the boundary. The wrapped
// cause is preserved for logging and never reaches the client.
type ServiceError struct {
	Service string
	Op      string
	Err     error
	Code    string
}

// NewService wraps err as a ServiceError with the default code.
func NewService(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err, Code: CodeServiceFailed}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// RepositoryError wraps a database/storage failure at its origin. Op is the
// repository operation, Table the affected table. The diagnostic cause is for
// logs only.
type RepositoryError struct {
	Op    string
	Table string
	Err   error
	Code  string
}

// NewRepository wraps err as a RepositoryError with the default code.
func NewRepository(op, table string, err error) *RepositoryError {
	return &RepositoryError{Op: op, Table: table, Err: err, Code: CodeRepositoryFailed}
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s on %s failed: %v", e.Op, e.Table, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// UnauthorizedError indicates missing or invalid credentials.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Authentication is required to access this resource."
}

// TimeoutError indicates the operation did not complete in time.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "The request timed out."
}

// Classified reports whether err is (or wraps) one of the typed failure
// kinds. Anything unclassified is treated as unknown at the boundary.
func Classified(err error) bool {
	var (
		notFound     *NotFoundError
		validation   *ValidationError
		conflict     *ConflictError
		businessRule *BusinessRuleError
		argument     *ArgumentError
		service      *ServiceError
		repository   *RepositoryError
		unauthorized *UnauthorizedError
		timeout      *TimeoutError
	)
	switch {
	case errors.As(err, &notFound),
		errors.As(err, &validation),
		errors.As(err, &conflict),
		errors.As(err, &businessRule),
		errors.As(err, &argument),
		errors.As(err, &service),
		errors.As(err, &repository),
		errors.As(err, &unauthorized),
		errors.As(err, &timeout):
		return true
	}
	return false
}
