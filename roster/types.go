/*
Package roster provides the core employee registry and reconciliation engine.

PURPOSE:
  This package contains the domain types and pure decision logic for
  maintaining an employee roster: identity, name normalization, and the
  classification of an incoming batch of records against the current
  registry snapshot. All logic here is free of I/O; the sqlite store
  applies the resulting mutations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: A registry row (identifier, display fields, mirrored flag)
  - Candidate: One incoming record from a batch upload, fields optional
  - Plan: The ordered partition of a batch into mutation groups
  - RosterEntry: An employee joined with one date's attendance state

DESIGN PRINCIPLES:
  1. Pure classification: Classify never touches storage
  2. Type safety: EmployeeID is a distinct type, not a bare string
  3. Explicit optionality: Candidate.CheckedIn is a pointer so "not
     supplied" and "false" stay distinguishable

SEE ALSO:
  - reconcile.go: Classification algorithm producing a Plan
  - normalize.go: Name normalization used for matching
  - store/sqlite: Transactional executor for Plans
*/
package roster

import (
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID identifies an employee. Identifiers are either supplied by an
// external roster system or synthesized server-side with the manual prefix.
type EmployeeID string

// ManualIDPrefix marks server-synthesized identifiers. A manual identifier
// is a placeholder: batch reconciliation may later promote it to an
// authoritative identifier supplied by the caller.
const ManualIDPrefix = "manual-"

// IsManual reports whether the identifier was synthesized server-side.
func (id EmployeeID) IsManual() bool {
	return strings.HasPrefix(string(id), ManualIDPrefix)
}

// =============================================================================
// REGISTRY TYPES
// =============================================================================

// Employee is a registry row. CheckedIn mirrors the most recent attendance
// write for backward compatibility with undated clients; the per-date truth
// lives in the attendance ledger.
type Employee struct {
	ID         EmployeeID
	Name       string
	Position   string
	Department string
	CheckedIn  bool
	UpdatedAt  time.Time
}

// RosterEntry is an employee joined with a single date's attendance record.
// AttendanceRecorded distinguishes "known absent" from "no data yet".
type RosterEntry struct {
	Employee
	AttendanceRecorded bool
}

// DayCount aggregates one date's attendance ledger.
type DayCount struct {
	Date     string
	Recorded int
	Present  int
}

// =============================================================================
// BATCH TYPES
// =============================================================================

// Candidate is one incoming record in a batch upload. ID is optional;
// Name is required (empty names are skipped). CheckedIn is nil when the
// payload did not supply a boolean.
type Candidate struct {
	ID         EmployeeID
	Name       string
	Position   string
	Department string
	CheckedIn  *bool
}

// Promotion replaces a manual placeholder identifier with an authoritative
// one while preserving attendance history. Employee carries the new
// identifier and the merged fields.
type Promotion struct {
	OldID    EmployeeID
	Employee Employee
}

// Plan is the outcome of classifying a batch: disjoint mutation groups in
// encounter order, plus a count of records skipped as malformed or
// duplicated within the batch. Groups must be applied in declaration
// order (updates before promotions before inserts).
type Plan struct {
	UpdatesByID   []Employee
	UpdatesByName []Employee
	Promotions    []Promotion
	Inserts       []Employee
	Skipped       int
}

// Empty reports whether the plan carries no mutations.
func (p Plan) Empty() bool {
	return len(p.UpdatesByID) == 0 && len(p.UpdatesByName) == 0 &&
		len(p.Promotions) == 0 && len(p.Inserts) == 0
}

// Counts holds the per-category totals reported back to the uploader.
type Counts struct {
	Inserted      int
	Updated       int
	MatchedByName int
	Promoted      int
	Skipped       int
}

// Counts summarizes the plan.
func (p Plan) Counts() Counts {
	return Counts{
		Inserted:      len(p.Inserts),
		Updated:       len(p.UpdatesByID),
		MatchedByName: len(p.UpdatesByName),
		Promoted:      len(p.Promotions),
		Skipped:       p.Skipped,
	}
}
