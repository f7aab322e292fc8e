package veloxdb

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("veloxdb: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("veloxdb: entity not singular")

	// ErrConcurrencyConflict is matched by every OptimisticConcurrencyError.
	ErrConcurrencyConflict = errors.New("veloxdb: optimistic concurrency conflict")

	// ErrInvalidInclude is matched by every include validation error.
	ErrInvalidInclude = errors.New("veloxdb: invalid include")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("veloxdb: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("veloxdb: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives zero or multiple results.
type NotSingularError struct {
	label string
	count int // Number of results returned (-1 if unknown)
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("veloxdb: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("veloxdb: %s not singular", e.label)
}

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// NewNotSingularErrorWithCount returns a new NotSingularError with the result count.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// UnsupportedExpressionError is returned by the expression compiler for a node,
// operator, method or operand value it cannot render.
type UnsupportedExpressionError struct {
	Node   string // Node kind, e.g. "Compare" or "Call"
	Reason string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("veloxdb: unsupported expression %s: %s", e.Node, e.Reason)
}

// NewUnsupportedExpressionError returns a new UnsupportedExpressionError.
func NewUnsupportedExpressionError(node, format string, args ...any) *UnsupportedExpressionError {
	return &UnsupportedExpressionError{Node: node, Reason: fmt.Sprintf(format, args...)}
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedExpressionError
	return errors.As(err, &e)
}

// UnknownColumnError is returned when a field or column name does not resolve
// against an entity descriptor.
type UnknownColumnError struct {
	Entity string
	Name   string
}

// Error returns the error string.
func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("veloxdb: %s has no column or field %q", e.Entity, e.Name)
}

// NewUnknownColumnError returns a new UnknownColumnError.
func NewUnknownColumnError(entity, name string) *UnknownColumnError {
	return &UnknownColumnError{Entity: entity, Name: name}
}

// IsUnknownColumn returns true if the error is an UnknownColumnError.
func IsUnknownColumn(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownColumnError
	return errors.As(err, &e)
}

// DuplicateIncludeError is returned when the same include path is registered
// twice for one query.
type DuplicateIncludeError struct {
	Path string
}

// Error returns the error string.
func (e *DuplicateIncludeError) Error() string {
	return fmt.Sprintf("veloxdb: include %q registered twice", e.Path)
}

// Is reports whether the target error is ErrInvalidInclude.
func (e *DuplicateIncludeError) Is(err error) bool { return err == ErrInvalidInclude }

// IsDuplicateInclude returns true if the error is a DuplicateIncludeError.
func IsDuplicateInclude(err error) bool {
	if err == nil {
		return false
	}
	var e *DuplicateIncludeError
	return errors.As(err, &e)
}

// DepthExceededError is returned when an include path is deeper than the
// configured maximum.
type DepthExceededError struct {
	Path  string
	Depth int
	Max   int
}

// Error returns the error string.
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("veloxdb: include %q has depth %d, maximum is %d", e.Path, e.Depth, e.Max)
}

// Is reports whether the target error is ErrInvalidInclude.
func (e *DepthExceededError) Is(err error) bool { return err == ErrInvalidInclude }

// IsDepthExceeded returns true if the error is a DepthExceededError.
func IsDepthExceeded(err error) bool {
	if err == nil {
		return false
	}
	var e *DepthExceededError
	return errors.As(err, &e)
}

// CycleDetectedError is returned when an include path re-enters an entity
// type that is already on its chain.
type CycleDetectedError struct {
	Path  string
	Chain []string // Entity types walked, ending with the repeated one
}

// Error returns the error string.
func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("veloxdb: include %q forms a cycle (%s)", e.Path, strings.Join(e.Chain, " -> "))
}

// Is reports whether the target error is ErrInvalidInclude.
func (e *CycleDetectedError) Is(err error) bool { return err == ErrInvalidInclude }

// IsCycleDetected returns true if the error is a CycleDetectedError.
func IsCycleDetected(err error) bool {
	if err == nil {
		return false
	}
	var e *CycleDetectedError
	return errors.As(err, &e)
}

// MissingNavigationMetadataError is returned when a navigation named by an
// include path cannot be resolved to complete relationship metadata.
type MissingNavigationMetadataError struct {
	Entity     string
	Navigation string
	Reason     string
}

// Error returns the error string.
func (e *MissingNavigationMetadataError) Error() string {
	return fmt.Sprintf("veloxdb: navigation %s.%s: %s", e.Entity, e.Navigation, e.Reason)
}

// Is reports whether the target error is ErrInvalidInclude.
func (e *MissingNavigationMetadataError) Is(err error) bool { return err == ErrInvalidInclude }

// IsMissingNavigationMetadata returns true if the error is a MissingNavigationMetadataError.
func IsMissingNavigationMetadata(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingNavigationMetadataError
	return errors.As(err, &e)
}

// OptimisticConcurrencyError is returned when a versioned update matched no
// row because the stored version moved on.
type OptimisticConcurrencyError struct {
	Entity   string
	ID       any
	Expected any // Version the caller's entity held
	Actual   any // Version found in the database
}

// Error returns the error string.
func (e *OptimisticConcurrencyError) Error() string {
	return fmt.Sprintf("veloxdb: %s (id=%v) was modified concurrently: expected version %v, found %v",
		e.Entity, e.ID, e.Expected, e.Actual)
}

// Is reports whether the target error is ErrConcurrencyConflict.
func (e *OptimisticConcurrencyError) Is(err error) bool { return err == ErrConcurrencyConflict }

// IsOptimisticConcurrency returns true if the error is an OptimisticConcurrencyError.
func IsOptimisticConcurrency(err error) bool {
	if err == nil {
		return false
	}
	var e *OptimisticConcurrencyError
	return errors.As(err, &e)
}

// InvalidBatchConfigurationError is returned by the batch planner for
// non-positive limits or column counts.
type InvalidBatchConfigurationError struct {
	MaxRows   int
	MaxParams int
	Columns   int
}

// Error returns the error string.
func (e *InvalidBatchConfigurationError) Error() string {
	return fmt.Sprintf("veloxdb: invalid batch configuration (max rows %d, max params %d, columns %d)",
		e.MaxRows, e.MaxParams, e.Columns)
}

// IsInvalidBatchConfiguration returns true if the error is an InvalidBatchConfigurationError.
func IsInvalidBatchConfiguration(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidBatchConfigurationError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("veloxdb: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// ValidationError is returned when an entity descriptor is declared
// inconsistently.
type ValidationError struct {
	Name string // Entity or field name
	Err  error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("veloxdb: invalid descriptor %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("veloxdb: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "veloxdb: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("veloxdb: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select", "count", "include")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("veloxdb: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("veloxdb: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "create", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("veloxdb: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
