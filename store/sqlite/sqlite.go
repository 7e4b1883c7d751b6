/*
Package sqlite provides the SQLite-backed attendance store.

PURPOSE:
  Persists the employee registry and the per-date attendance ledger, and
  executes reconciliation plans produced by the roster package. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  employees:          Registry rows, one per employee
  attendance_records: One row per (employee, date), upserted on write

REFERENTIAL INTEGRITY:
  attendance_records cascades on employee deletion. The database is
  opened with foreign keys enforced.

TRANSACTION ORDERING:
  ApplyPlan writes a whole batch in one transaction in a fixed order:
  updates-by-id, updates-by-name, promotions, inserts. Promotions run
  after plain updates so a promoted identifier is never also matched as
  an update target; inserts run last so they cannot race the promotion
  upsert on the same identifier.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SCHEMA INITIALIZATION:
  The schema is created inside New, before the server accepts traffic.
  The statements are create-if-absent, so concurrent cold starts against
  the same file are harmless.

SEE ALSO:
  - roster: Domain types and the pure classification engine
  - api/handlers.go: HTTP operations backed by this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rollcall/attendance-engine/roster"
)

// Store implements the attendance store over SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so internal helpers run
// inside or outside an explicit transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", roster.ErrStoreUnavailable, err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the storage substrate is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", roster.ErrStoreUnavailable, err)
	}
	return nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employee registry
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		checked_in BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_name
		ON employees(name);

	-- Per-date attendance ledger. At most one row per (employee, date);
	-- writes upsert on the composite key.
	CREATE TABLE IF NOT EXISTS attendance_records (
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		checked_in BOOLEAN NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance_records(date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REGISTRY READS
// =============================================================================

// ListEmployees returns the full registry snapshot ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]roster.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listEmployees(ctx, s.db)
}

func listEmployees(ctx context.Context, db dbtx) ([]roster.Employee, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, position, department, checked_in, updated_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []roster.Employee
	for rows.Next() {
		var e roster.Employee
		var updatedAt string
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &e.Department, &e.CheckedIn, &updatedAt); err != nil {
			return nil, err
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetEmployee retrieves an employee by ID. Returns nil when absent.
func (s *Store) GetEmployee(ctx context.Context, id roster.EmployeeID) (*roster.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, db dbtx, id roster.EmployeeID) (*roster.Employee, error) {
	var e roster.Employee
	var updatedAt string

	err := db.QueryRowContext(ctx,
		"SELECT id, name, position, department, checked_in, updated_at FROM employees WHERE id = ?",
		id,
	).Scan(&e.ID, &e.Name, &e.Position, &e.Department, &e.CheckedIn, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &e, nil
}

// Roster returns every employee outer-joined with the given date's
// attendance record, ordered by name, plus a flag indicating whether any
// record exists for that date at all.
func (s *Store) Roster(ctx context.Context, date string) ([]roster.RosterEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := queryRoster(ctx, s.db, date)
	if err != nil {
		return nil, false, err
	}

	var hasRecords bool
	err = s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance_records WHERE date = ?)", date,
	).Scan(&hasRecords)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check attendance records: %w", err)
	}

	return entries, hasRecords, nil
}

const rosterJoin = `
	SELECT e.id, e.name, e.position, e.department,
	       COALESCE(a.checked_in, FALSE),
	       a.employee_id IS NOT NULL,
	       COALESCE(a.updated_at, e.updated_at)
	FROM employees e
	LEFT JOIN attendance_records a
	  ON a.employee_id = e.id AND a.date = ?
`

func queryRoster(ctx context.Context, db dbtx, date string) ([]roster.RosterEntry, error) {
	rows, err := db.QueryContext(ctx, rosterJoin+" ORDER BY e.name", date)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	entries := []roster.RosterEntry{}
	for rows.Next() {
		entry, err := scanRosterEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func rosterEntry(ctx context.Context, db dbtx, id roster.EmployeeID, date string) (*roster.RosterEntry, error) {
	row := db.QueryRowContext(ctx, rosterJoin+" WHERE e.id = ?", date, id)
	entry, err := scanRosterEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func scanRosterEntry(scan func(dest ...any) error) (roster.RosterEntry, error) {
	var entry roster.RosterEntry
	var updatedAt string
	err := scan(&entry.ID, &entry.Name, &entry.Position, &entry.Department,
		&entry.CheckedIn, &entry.AttendanceRecorded, &updatedAt)
	if err != nil {
		return entry, err
	}
	entry.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return entry, nil
}

// =============================================================================
// SINGLE-EMPLOYEE WRITES
// =============================================================================

// CreateEmployee inserts a new employee with a synthesized manual
// identifier. The name must be non-empty and must not collide with an
// existing employee's normalized name. The collision check is heuristic
// (no DB constraint): it compares normalized forms against the current
// registry.
func (s *Store) CreateEmployee(ctx context.Context, name, position, department string) (*roster.Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, roster.ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := roster.NormalizeName(name)
	existing, err := listEmployees(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if roster.NormalizeName(e.Name) == key {
			return nil, &roster.NameConflictError{Name: name, ExistingID: e.ID}
		}
	}

	emp := roster.Employee{
		ID:         roster.NewManualID(),
		Name:       name,
		Position:   strings.TrimSpace(position),
		Department: strings.TrimSpace(department),
		UpdatedAt:  time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO employees (id, name, position, department, checked_in, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		emp.ID, emp.Name, emp.Position, emp.Department, emp.CheckedIn,
		emp.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}

	return &emp, nil
}

// DeleteEmployee removes an employee; attendance records cascade.
func (s *Store) DeleteEmployee(ctx context.Context, id roster.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return roster.ErrEmployeeNotFound
	}
	return nil
}

// =============================================================================
// RECONCILIATION EXECUTOR
// =============================================================================

// ApplyPlan applies a classified batch in one transaction. Group order is
// load-bearing; see the package comment. A failure anywhere rolls back the
// whole batch.
func (s *Store) ApplyPlan(ctx context.Context, plan roster.Plan) error {
	if plan.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	for _, e := range plan.UpdatesByID {
		if err := updateEmployee(ctx, tx, e, now); err != nil {
			return err
		}
	}
	for _, e := range plan.UpdatesByName {
		if err := updateEmployee(ctx, tx, e, now); err != nil {
			return err
		}
	}
	for _, p := range plan.Promotions {
		if err := promote(ctx, tx, p, now); err != nil {
			return err
		}
	}
	for _, e := range plan.Inserts {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO employees (id, name, position, department, checked_in, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			e.ID, e.Name, e.Position, e.Department, e.CheckedIn, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert employee %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func updateEmployee(ctx context.Context, db dbtx, e roster.Employee, now string) error {
	_, err := db.ExecContext(ctx,
		"UPDATE employees SET name = ?, position = ?, department = ?, checked_in = ?, updated_at = ? WHERE id = ?",
		e.Name, e.Position, e.Department, e.CheckedIn, now, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee %s: %w", e.ID, err)
	}
	return nil
}

// promote replaces a manual placeholder identifier with the authoritative
// one: upsert the new row, repoint attendance history, drop the old row.
// The delete cascades any attendance row that could not be repointed
// because the new identifier already owned that date.
func promote(ctx context.Context, db dbtx, p roster.Promotion, now string) error {
	e := p.Employee
	_, err := db.ExecContext(ctx, `
		INSERT INTO employees (id, name, position, department, checked_in, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			position = excluded.position,
			department = excluded.department,
			checked_in = excluded.checked_in,
			updated_at = excluded.updated_at`,
		e.ID, e.Name, e.Position, e.Department, e.CheckedIn, now,
	)
	if err != nil {
		return fmt.Errorf("failed to promote %s to %s: %w", p.OldID, e.ID, err)
	}

	_, err = db.ExecContext(ctx,
		"UPDATE OR IGNORE attendance_records SET employee_id = ? WHERE employee_id = ?",
		e.ID, p.OldID,
	)
	if err != nil {
		return fmt.Errorf("failed to repoint attendance for %s: %w", p.OldID, err)
	}

	_, err = db.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", p.OldID)
	if err != nil {
		return fmt.Errorf("failed to delete placeholder %s: %w", p.OldID, err)
	}
	return nil
}

// =============================================================================
// ATTENDANCE LEDGER
// =============================================================================

// MarkAttendance upserts one (employee, date) record, mirrors the flag
// onto the employee row, and returns the merged roster entry. The write
// and the mirror happen in one transaction.
func (s *Store) MarkAttendance(ctx context.Context, id roster.EmployeeID, date string, checkedIn bool) (*roster.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	emp, err := getEmployee(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, roster.ErrEmployeeNotFound
	}

	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attendance_records (employee_id, date, checked_in, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			checked_in = excluded.checked_in,
			updated_at = excluded.updated_at`,
		id, date, checkedIn, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE employees SET checked_in = ?, updated_at = ? WHERE id = ?",
		checkedIn, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mirror attendance flag: %w", err)
	}

	entry, err := rosterEntry(ctx, tx, id, date)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return entry, nil
}

// ClearDate removes every attendance record for a date and resets the
// mirrored flag on each affected employee. Returns the number of records
// cleared.
func (s *Store) ClearDate(ctx context.Context, date string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	// Reset mirrors before the delete empties the subquery.
	_, err = tx.ExecContext(ctx, `
		UPDATE employees SET checked_in = FALSE, updated_at = ?
		WHERE id IN (SELECT employee_id FROM attendance_records WHERE date = ?)`,
		now, date,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset attendance flags: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM attendance_records WHERE date = ?", date)
	if err != nil {
		return 0, fmt.Errorf("failed to clear attendance records: %w", err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return cleared, nil
}

// DayCounts aggregates recorded and present counts per date in the
// inclusive range, ordered by date. Dates without records are omitted.
func (s *Store) DayCounts(ctx context.Context, from, to string) ([]roster.DayCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, COUNT(*), COALESCE(SUM(checked_in), 0)
		FROM attendance_records
		WHERE date >= ? AND date <= ?
		GROUP BY date
		ORDER BY date`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate attendance: %w", err)
	}
	defer rows.Close()

	var counts []roster.DayCount
	for rows.Next() {
		var c roster.DayCount
		if err := rows.Scan(&c.Date, &c.Recorded, &c.Present); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
