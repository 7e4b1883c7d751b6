/*
errors.go - Centralized error types for the roster domain

PURPOSE:
  All domain error types in one place. The HTTP layer maps these onto
  status codes; the store wraps lower-level failures with them.

ERROR CATEGORIES:
  1. Validation errors - Malformed dates, missing required fields
  2. Not-found errors  - Unknown employee identifiers
  3. Conflict errors   - Normalized-name collisions on create
  4. Store errors      - Storage unreachable or misconfigured

USAGE:
  HTTP handlers branch on the category helpers:

    if roster.IsConflict(err) {
        // 409
    }

SEE ALSO:
  - api/handlers.go: Status-code mapping
  - store/sqlite: Wraps sqlite failures with these errors
*/
package roster

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all malformed-input errors.
	ErrValidation = errors.New("invalid input")

	// ErrNameRequired is returned when an employee name is empty after trimming.
	ErrNameRequired = fmt.Errorf("%w: employee name is required", ErrValidation)

	// ErrInvalidDate is returned when a date string is not a well-formed
	// YYYY-MM-DD calendar date.
	ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrValidation)

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrNameConflict is returned when a create would produce two employees
	// with colliding normalized names.
	ErrNameConflict = errors.New("an employee with that name already exists")

	// ErrStoreUnavailable is returned when the storage substrate is
	// unreachable or misconfigured.
	ErrStoreUnavailable = errors.New("storage unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NameConflictError reports which existing employee blocked a create.
type NameConflictError struct {
	Name       string
	ExistingID EmployeeID
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("an employee named %q already exists (%s)", e.Name, e.ExistingID)
}

func (e *NameConflictError) Unwrap() error {
	return ErrNameConflict
}

// DateError reports the rejected date value.
type DateError struct {
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", e.Value)
}

func (e *DateError) Unwrap() error {
	return ErrInvalidDate
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to malformed client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound returns true if the error indicates a missing employee.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

// IsConflict returns true if the error indicates a name collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNameConflict)
}
