/*
errors.go - Error kinds for statement lookup and visualization building

PURPOSE:
  All error types in one place. Builders and the store wrap these with
  context; callers match them with errors.Is / errors.As.

ERROR KINDS:
  ErrNotFound         requested company, statement or period is absent
  ErrSchemaMismatch   a required line item is missing from a row
  ErrNoPriorPeriod    YoY/bridge requested on the first period (expected, not a fault)
  ErrBridgeInvariant  bridge steps do not reconcile (warning-level, see InvariantViolation)
  ErrInvalidPeriod    raw period identifier could not be parsed
  ErrInvalidArgument  other malformed caller input

  Division by zero in ratios is NOT an error: it yields 0 by contract.

SEE ALSO:
  - statement.go: Statement lookup returning NotFoundError / ErrNoPriorPeriod
  - schema.go: SchemaMismatchError on validation
  - viz/bridge.go: InvariantViolation attached to bridges
*/
package statement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a company, statement or period does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSchemaMismatch is returned when a row lacks a declared line item.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrNoPriorPeriod is returned when a comparison is requested on the first
	// period of a statement. Callers render "no comparison" rather than a failure.
	ErrNoPriorPeriod = errors.New("no prior period")

	// ErrBridgeInvariant marks a bridge whose steps do not sum to its total.
	ErrBridgeInvariant = errors.New("bridge invariant violated")

	// ErrInvalidPeriod is returned for malformed period identifiers.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrUnknownStatement is returned for an unrecognised statement type tag.
	ErrUnknownStatement = errors.New("unknown statement type")

	// ErrInvalidArgument is returned for other malformed caller input
	// (unknown column, drill-down category or series kind).
	ErrInvalidArgument = errors.New("invalid argument")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError describes what was looked up.
type NotFoundError struct {
	Company   string
	Statement StatementType
	Period    Period
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Statement == "":
		return fmt.Sprintf("company %q not found", e.Company)
	case e.Period.IsZero():
		return fmt.Sprintf("%s statement not found%s", e.Statement, e.ofCompany())
	default:
		return fmt.Sprintf("period %s not found in %s statement%s", e.Period, e.Statement, e.ofCompany())
	}
}

func (e *NotFoundError) ofCompany() string {
	if e.Company == "" {
		return ""
	}
	return fmt.Sprintf(" of company %q", e.Company)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// SchemaMismatchError names the missing line item.
type SchemaMismatchError struct {
	Statement StatementType
	Period    Period
	Item      LineItem
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s row %s: missing line item %q", e.Statement, e.Period, e.Item)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// InvariantViolation reports a bridge whose absolute + relative steps miss
// the total by more than the tolerance. It is attached to the bridge as a
// warning; the bridge is still renderable.
type InvariantViolation struct {
	Expected decimal.Decimal // the total step value
	Actual   decimal.Decimal // absolute + sum(relative)
	Diff     decimal.Decimal // Expected - Actual
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("bridge does not reconcile: steps sum to %s, total is %s (residual %s)",
		e.Actual, e.Expected, e.Diff)
}

func (e *InvariantViolation) Unwrap() error { return ErrBridgeInvariant }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing company/period.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error stems from the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrUnknownStatement) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrSchemaMismatch)
}
