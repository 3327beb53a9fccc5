// Package ddberr defines the error taxonomy shared by provisioning and
// ingestion. Every error type matches a sentinel through errors.Is so callers
// can branch on the category without caring about the concrete type.
package ddberr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrValidation marks a malformed schema, item or request. Never retried.
	ErrValidation = errors.New("validation failed")

	// ErrSchemaConflict marks an existing table whose definition differs from the requested one.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrThrottled marks transient capacity exhaustion that outlived its retry budget.
	ErrThrottled = errors.New("throttled")

	// ErrUnprocessed marks batch items the store kept returning as unprocessed.
	ErrUnprocessed = errors.New("unprocessed items")

	// ErrUnknownOperation marks a CLI operation outside the supported set.
	ErrUnknownOperation = errors.New("unknown operation")
)

// ValidationError describes why a table definition, item or request was rejected.
type ValidationError struct {
	Table   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Table != "" {
		fmt.Fprintf(&b, " for table %q", e.Table)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " at %s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// SchemaConflictError is returned when a table already exists with a different definition.
type SchemaConflictError struct {
	Table string
	// Diff is a human readable (-want +got) description of the mismatch.
	Diff string
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("table %q already exists with a conflicting definition (-want +got):\n%s", e.Table, e.Diff)
}

func (e *SchemaConflictError) Is(target error) bool {
	return target == ErrSchemaConflict
}

// ThrottlingError wraps the last transient error seen once retries are exhausted.
type ThrottlingError struct {
	Op       string
	Table    string
	Attempts int
	Err      error
}

func (e *ThrottlingError) Error() string {
	return fmt.Sprintf("%s on table %q still throttled after %d attempts: %v", e.Op, e.Table, e.Attempts, e.Err)
}

func (e *ThrottlingError) Is(target error) bool {
	return target == ErrThrottled
}

func (e *ThrottlingError) Unwrap() error {
	return e.Err
}

// UnprocessedItemError is recorded per item when a batch write kept returning
// it as unprocessed until the retry budget ran out.
type UnprocessedItemError struct {
	Table    string
	Attempts int
	// Cause is set when retrying stopped for a reason other than the attempt limit,
	// for example a cancelled context.
	Cause error
}

func (e *UnprocessedItemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("item for table %q left unprocessed after %d attempts: %v", e.Table, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("item for table %q left unprocessed after %d attempts", e.Table, e.Attempts)
}

func (e *UnprocessedItemError) Is(target error) bool {
	return target == ErrUnprocessed
}

func (e *UnprocessedItemError) Unwrap() error {
	return e.Cause
}

// UnknownOperationError is returned for an operation name outside the closed set.
type UnknownOperationError struct {
	Operation string
	Valid     []string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q, choose one of: %s", e.Operation, strings.Join(e.Valid, ", "))
}

func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// Validation returns a ValidationError with a stack trace attached.
func Validation(tableName, field, format string, args ...any) error {
	return errors.WithStack(&ValidationError{
		Table:   tableName,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// SchemaConflict returns a SchemaConflictError with a stack trace attached.
func SchemaConflict(tableName, diff string) error {
	return errors.WithStack(&SchemaConflictError{Table: tableName, Diff: diff})
}

// Throttled returns a ThrottlingError with a stack trace attached.
func Throttled(op, tableName string, attempts int, err error) error {
	return errors.WithStack(&ThrottlingError{Op: op, Table: tableName, Attempts: attempts, Err: err})
}

// Unprocessed returns an UnprocessedItemError with a stack trace attached.
func Unprocessed(tableName string, attempts int, cause error) error {
	return errors.WithStack(&UnprocessedItemError{Table: tableName, Attempts: attempts, Cause: cause})
}

// UnknownOperation returns an UnknownOperationError with a stack trace attached.
func UnknownOperation(op string, valid []string) error {
	return errors.WithStack(&UnknownOperationError{Operation: op, Valid: valid})
}

// IsValidation reports whether err is, or wraps, a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsSchemaConflict reports whether err is, or wraps, a schema conflict.
func IsSchemaConflict(err error) bool {
	return errors.Is(err, ErrSchemaConflict)
}

// IsFatal reports whether err should abort the enclosing operation immediately.
func IsFatal(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrSchemaConflict) || errors.Is(err, ErrUnknownOperation)
}
