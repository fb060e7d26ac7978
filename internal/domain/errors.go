package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Pipeline errors. Only ErrReferenceSchemaUnresolved aborts a batch; every
// other sentinel describes a per-record outcome that is counted and logged.
var (
	// ErrRecordRejected indicates a raw record resolved neither a name nor a folio.
	ErrRecordRejected = errors.New("record rejected")

	// ErrReferenceSchemaUnresolved indicates the district reference table is
	// missing one of its identifying columns.
	ErrReferenceSchemaUnresolved = errors.New("reference schema unresolved")

	// ErrMatchNotFound indicates no district matched a candidate in either tier.
	ErrMatchNotFound = errors.New("district match not found")

	// ErrScoreMalformed indicates a judgment response failed parsing or validation.
	ErrScoreMalformed = errors.New("score malformed")

	// ErrTransportFailure indicates the judgment service call itself failed.
	ErrTransportFailure = errors.New("transport failure")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrBudgetExceeded indicates the run's token or call budget is spent.
	// Unlike the per-record sentinels it stops a scoring run.
	ErrBudgetExceeded = errors.New("budget exceeded")
)

// RecordRejectedError describes why a raw record produced no Candidate.
type RecordRejectedError struct {
	// Category is the feed tag of the rejected record.
	Category string

	// Reason is a short human-readable explanation.
	Reason string
}

// Error implements the error interface for RecordRejectedError.
func (e *RecordRejectedError) Error() string {
	return fmt.Sprintf("record rejected: category=%s, reason=%s", e.Category, e.Reason)
}

// Unwrap returns ErrRecordRejected so callers can match with errors.Is.
func (e *RecordRejectedError) Unwrap() error { return ErrRecordRejected }

// SchemaError reports a logical column that could not be resolved to any of
// its accepted synonyms.
type SchemaError struct {
	// Table names the reference table being resolved.
	Table string

	// Role is the logical field that failed to resolve.
	Role string

	// Tried lists the synonyms that were looked up.
	Tried []string
}

// Error implements the error interface for SchemaError.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("reference schema error: table=%s, role=%s, tried=[%s]",
		e.Table, e.Role, strings.Join(e.Tried, ", "))
}

// Unwrap returns ErrReferenceSchemaUnresolved.
func (e *SchemaError) Unwrap() error { return ErrReferenceSchemaUnresolved }

// NewSchemaError creates a new SchemaError.
func NewSchemaError(table, role string, tried []string) *SchemaError {
	return &SchemaError{Table: table, Role: role, Tried: append([]string(nil), tried...)}
}

// Score malformation stages.
const (
	StageParse  = "parse"
	StageSchema = "schema"
)

// MalformedScoreError reports a judgment response that could not be turned
// into a well-formed Score.
type MalformedScoreError struct {
	// Stage is either StageParse or StageSchema.
	Stage string

	// Detail describes the first violation found.
	Detail string
}

// Error implements the error interface for MalformedScoreError.
func (e *MalformedScoreError) Error() string {
	return fmt.Sprintf("malformed score (%s): %s", e.Stage, e.Detail)
}

// Unwrap returns ErrScoreMalformed.
func (e *MalformedScoreError) Unwrap() error { return ErrScoreMalformed }

// NewMalformedScoreError creates a new MalformedScoreError.
func NewMalformedScoreError(stage, detail string) *MalformedScoreError {
	return &MalformedScoreError{Stage: stage, Detail: detail}
}

// TransportError wraps a failed call to the judgment service.
type TransportError struct {
	// Attempt is the 1-based attempt number that failed.
	Attempt int

	// Err is the underlying client error.
	Err error
}

// Error implements the error interface for TransportError.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure on attempt %d: %v", e.Attempt, e.Err)
}

// Unwrap exposes both ErrTransportFailure and the underlying client error.
func (e *TransportError) Unwrap() []error { return []error{ErrTransportFailure, e.Err} }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// BudgetExceededError reports which budget limit a request would cross.
type BudgetExceededError struct {
	// LimitType is "tokens" or "calls".
	LimitType string

	// Limit is the configured maximum.
	Limit int64

	// Used is the consumption recorded when the limit was hit.
	Used int64
}

// Error implements the error interface for BudgetExceededError.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s limit=%d, used=%d", e.LimitType, e.Limit, e.Used)
}

// Unwrap returns ErrBudgetExceeded.
func (e *BudgetExceededError) Unwrap() error { return ErrBudgetExceeded }

// NewBudgetExceededError creates a new BudgetExceededError.
func NewBudgetExceededError(limitType string, limit, used int64) *BudgetExceededError {
	return &BudgetExceededError{LimitType: limitType, Limit: limit, Used: used}
}
