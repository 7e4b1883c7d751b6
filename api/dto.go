/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

FIELD NAMES:
  The wire contract uses camelCase throughout; the browser client binds
  directly to these names. Dates are always YYYY-MM-DD, UTC-anchored.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - roster: Domain types these map from
*/
package api

import "github.com/rollcall/attendance-engine/roster"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee joined with one date's attendance
// state in API responses.
type EmployeeDTO struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Position           string `json:"position"`
	Department         string `json:"department"`
	CheckedIn          bool   `json:"checkedIn"`
	AttendanceRecorded bool   `json:"attendanceRecorded"`
}

// RosterResponse is the date-scoped roster view.
type RosterResponse struct {
	Employees            []EmployeeDTO `json:"employees"`
	HasAttendanceRecords bool          `json:"hasAttendanceRecords"`
	Date                 string        `json:"date"`
}

// EmployeeInput is the single-employee create payload.
type EmployeeInput struct {
	Name       string `json:"name"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

// CandidateInput is one record in a batch upload. CheckedIn is a pointer
// so an omitted boolean is distinguishable from false.
type CandidateInput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   string `json:"position"`
	Department string `json:"department"`
	CheckedIn  *bool  `json:"checkedIn"`
}

// UpsertRequest is the POST body: exactly one of Employee (single create)
// or Employees (batch reconcile) should be supplied.
type UpsertRequest struct {
	Employee  *EmployeeInput   `json:"employee"`
	Employees []CandidateInput `json:"employees"`
}

// ReconcileResponse reports per-category counts plus the refreshed roster.
type ReconcileResponse struct {
	Employees            []EmployeeDTO `json:"employees"`
	HasAttendanceRecords bool          `json:"hasAttendanceRecords"`
	Date                 string        `json:"date"`
	Inserted             int           `json:"inserted"`
	Skipped              int           `json:"skipped"`
	Updated              int           `json:"updated"`
	MatchedByName        int           `json:"matchedByName"`
	Promoted             int           `json:"promoted"`
}

// MarkRequest is the PATCH body marking one employee's attendance.
type MarkRequest struct {
	ID        string `json:"id"`
	CheckedIn *bool  `json:"checkedIn"`
	Date      string `json:"date"`
}

// DeleteRequest is the DELETE body: EmployeeID deletes one employee
// (Date optionally scopes the refreshed roster); Date alone clears a
// date's marks.
type DeleteRequest struct {
	EmployeeID string `json:"employeeId"`
	Date       string `json:"date"`
}

// ClearResponse reports a date-wide clear.
type ClearResponse struct {
	Cleared int64  `json:"cleared"`
	Date    string `json:"date"`
}

// DayStatDTO is one date's attendance rate. Rates are decimal-rendered
// strings to keep precision stable across clients.
type DayStatDTO struct {
	Date     string `json:"date"`
	Recorded int    `json:"recorded"`
	Present  int    `json:"present"`
	Rate     string `json:"rate"`
}

// SummaryResponse aggregates attendance over a date range.
type SummaryResponse struct {
	From          string       `json:"from"`
	To            string       `json:"to"`
	Days          []DayStatDTO `json:"days"`
	TotalRecorded int          `json:"totalRecorded"`
	TotalPresent  int          `json:"totalPresent"`
	OverallRate   string       `json:"overallRate"`
}

// ErrorResponse is the error body shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPING HELPERS
// =============================================================================

func toEmployeeDTO(entry roster.RosterEntry) EmployeeDTO {
	return EmployeeDTO{
		ID:                 string(entry.ID),
		Name:               entry.Name,
		Position:           entry.Position,
		Department:         entry.Department,
		CheckedIn:          entry.CheckedIn,
		AttendanceRecorded: entry.AttendanceRecorded,
	}
}

func toEmployeeDTOs(entries []roster.RosterEntry) []EmployeeDTO {
	dtos := make([]EmployeeDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEmployeeDTO(e)
	}
	return dtos
}

func toCandidates(inputs []CandidateInput) []roster.Candidate {
	candidates := make([]roster.Candidate, len(inputs))
	for i, in := range inputs {
		candidates[i] = roster.Candidate{
			ID:         roster.EmployeeID(in.ID),
			Name:       in.Name,
			Position:   in.Position,
			Department: in.Department,
			CheckedIn:  in.CheckedIn,
		}
	}
	return candidates
}
