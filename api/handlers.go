/*
handlers.go - HTTP API handlers for the attendance store

PURPOSE:
  Exposes the attendance store via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  GET    /api/attendance           Roster for a date (default: today)
  POST   /api/attendance           Create one employee OR reconcile a batch
  PATCH  /api/attendance           Mark one employee's attendance for a date
  DELETE /api/attendance           Delete one employee, or clear a date
  POST   /api/attendance/import    Spreadsheet roster upload (reconciles)
  GET    /api/attendance/summary   Attendance rates over a date range
  GET    /api/health               Storage liveness

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (classification, store operations)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed dates/bodies
  - 404: Unknown employee identifier
  - 409: Normalized-name collision on create
  - 500: Storage failures (details redacted, logged server-side)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - importer.go: Spreadsheet parsing
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rollcall/attendance-engine/log"
	"github.com/rollcall/attendance-engine/roster"
	"github.com/rollcall/attendance-engine/store/sqlite"
)

// summaryWindowDays is the default range for the summary endpoint.
const summaryWindowDays = 7

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	log zerolog.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		log:   log.WithComponent("api"),
	}
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// GetRoster returns every employee joined with one date's attendance state.
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	date, err := requestDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to get roster")
		return
	}

	entries, hasRecords, err := h.Store.Roster(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get roster")
		return
	}

	writeJSON(w, http.StatusOK, RosterResponse{
		Employees:            toEmployeeDTOs(entries),
		HasAttendanceRecords: hasRecords,
		Date:                 date,
	})
}

// Upsert handles POST: a single-employee create when the body carries
// "employee", a batch reconciliation when it carries "employees".
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch {
	case req.Employee != nil:
		h.createEmployee(w, r, *req.Employee)
	case req.Employees != nil:
		h.reconcile(w, r, req.Employees)
	default:
		writeError(w, http.StatusBadRequest, "Body must carry employee or employees", nil)
	}
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request, in EmployeeInput) {
	emp, err := h.Store.CreateEmployee(r.Context(), in.Name, in.Position, in.Department)
	if err != nil {
		h.writeDomainError(w, err, "Failed to create employee")
		return
	}

	writeJSON(w, http.StatusCreated, EmployeeDTO{
		ID:         string(emp.ID),
		Name:       emp.Name,
		Position:   emp.Position,
		Department: emp.Department,
		CheckedIn:  emp.CheckedIn,
	})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request, inputs []CandidateInput) {
	date, err := requestDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to reconcile batch")
		return
	}

	ctx := r.Context()
	var counts roster.Counts

	// An empty batch short-circuits to a read.
	if len(inputs) > 0 {
		snapshot, err := h.Store.ListEmployees(ctx)
		if err != nil {
			h.writeDomainError(w, err, "Failed to load registry snapshot")
			return
		}

		plan := roster.Classify(snapshot, toCandidates(inputs))
		if err := h.Store.ApplyPlan(ctx, plan); err != nil {
			h.writeDomainError(w, err, "Failed to apply batch")
			return
		}
		counts = plan.Counts()

		h.log.Info().
			Int("inserted", counts.Inserted).
			Int("updated", counts.Updated).
			Int("matchedByName", counts.MatchedByName).
			Int("promoted", counts.Promoted).
			Int("skipped", counts.Skipped).
			Msg("batch reconciled")
	}

	entries, hasRecords, err := h.Store.Roster(ctx, date)
	if err != nil {
		h.writeDomainError(w, err, "Failed to reload roster")
		return
	}

	writeJSON(w, http.StatusOK, ReconcileResponse{
		Employees:            toEmployeeDTOs(entries),
		HasAttendanceRecords: hasRecords,
		Date:                 date,
		Inserted:             counts.Inserted,
		Skipped:              counts.Skipped,
		Updated:              counts.Updated,
		MatchedByName:        counts.MatchedByName,
		Promoted:             counts.Promoted,
	})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// MarkAttendance records one employee's check-in state for a date.
func (h *Handler) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "Employee id is required", nil)
		return
	}
	if req.CheckedIn == nil {
		writeError(w, http.StatusBadRequest, "checkedIn is required", nil)
		return
	}
	date, err := requestDate(req.Date)
	if err != nil {
		h.writeDomainError(w, err, "Failed to mark attendance")
		return
	}

	entry, err := h.Store.MarkAttendance(r.Context(), roster.EmployeeID(req.ID), date, *req.CheckedIn)
	if err != nil {
		h.writeDomainError(w, err, "Failed to mark attendance")
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeDTO(*entry))
}

// Delete removes one employee (body/query employeeId, attendance cascades)
// or clears every mark for a date (body/query date alone).
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		req.EmployeeID = r.URL.Query().Get("employeeId")
	}
	if req.Date == "" {
		req.Date = r.URL.Query().Get("date")
	}

	switch {
	case req.EmployeeID != "":
		h.deleteEmployee(w, r, req)
	case req.Date != "":
		h.clearDate(w, r, req.Date)
	default:
		writeError(w, http.StatusBadRequest, "employeeId or date is required", nil)
	}
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request, req DeleteRequest) {
	ctx := r.Context()

	var date string
	if req.Date != "" {
		var err error
		if date, err = roster.ParseDate(req.Date); err != nil {
			h.writeDomainError(w, err, "Failed to delete employee")
			return
		}
	}

	if err := h.Store.DeleteEmployee(ctx, roster.EmployeeID(req.EmployeeID)); err != nil {
		h.writeDomainError(w, err, "Failed to delete employee")
		return
	}

	if date != "" {
		entries, hasRecords, err := h.Store.Roster(ctx, date)
		if err != nil {
			h.writeDomainError(w, err, "Failed to reload roster")
			return
		}
		writeJSON(w, http.StatusOK, RosterResponse{
			Employees:            toEmployeeDTOs(entries),
			HasAttendanceRecords: hasRecords,
			Date:                 date,
		})
		return
	}

	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		h.writeDomainError(w, err, "Failed to reload roster")
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = EmployeeDTO{
			ID:         string(e.ID),
			Name:       e.Name,
			Position:   e.Position,
			Department: e.Department,
			CheckedIn:  e.CheckedIn,
		}
	}
	writeJSON(w, http.StatusOK, RosterResponse{Employees: dtos})
}

func (h *Handler) clearDate(w http.ResponseWriter, r *http.Request, rawDate string) {
	date, err := roster.ParseDate(rawDate)
	if err != nil {
		h.writeDomainError(w, err, "Failed to clear date")
		return
	}

	cleared, err := h.Store.ClearDate(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, err, "Failed to clear date")
		return
	}

	writeJSON(w, http.StatusOK, ClearResponse{Cleared: cleared, Date: date})
}

// =============================================================================
// SUMMARY HANDLER
// =============================================================================

// Summary reports per-date and overall attendance rates for a range,
// defaulting to the last seven days up to today.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")
	if to == "" {
		to = roster.Today()
	}
	to, err := roster.ParseDate(to)
	if err != nil {
		h.writeDomainError(w, err, "Failed to summarize attendance")
		return
	}

	from := r.URL.Query().Get("from")
	if from == "" {
		t, _ := time.ParseInLocation(roster.DateLayout, to, time.UTC)
		from = t.AddDate(0, 0, -(summaryWindowDays - 1)).Format(roster.DateLayout)
	}
	from, err = roster.ParseDate(from)
	if err != nil {
		h.writeDomainError(w, err, "Failed to summarize attendance")
		return
	}
	if from > to {
		writeError(w, http.StatusBadRequest, "from must not be after to", nil)
		return
	}

	counts, err := h.Store.DayCounts(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, err, "Failed to summarize attendance")
		return
	}

	summary := roster.Summarize(from, to, counts)
	days := make([]DayStatDTO, len(summary.Days))
	for i, d := range summary.Days {
		days[i] = DayStatDTO{
			Date:     d.Date,
			Recorded: d.Recorded,
			Present:  d.Present,
			Rate:     d.Rate.String(),
		}
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		From:          summary.From,
		To:            summary.To,
		Days:          days,
		TotalRecorded: summary.TotalRecorded,
		TotalPresent:  summary.TotalPresent,
		OverallRate:   summary.OverallRate.String(),
	})
}

// =============================================================================
// HEALTH HANDLER
// =============================================================================

// Health reports storage liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.writeDomainError(w, err, "Storage unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// requestDate validates an optional date parameter, defaulting to today.
func requestDate(raw string) (string, error) {
	if raw == "" {
		return roster.Today(), nil
	}
	return roster.ParseDate(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
// Validation, not-found and conflict messages pass through verbatim;
// storage failures are logged and redacted.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case roster.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case roster.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case roster.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, roster.ErrStoreUnavailable):
		h.log.Error().Err(err).Msg("storage unavailable")
		writeError(w, http.StatusInternalServerError, "Storage unavailable; check database configuration", nil)
	default:
		h.log.Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback, nil)
	}
}
