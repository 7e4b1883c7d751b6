/*
reconcile.go - Batch reconciliation classification

PURPOSE:
  Classifies an incoming ordered batch of candidate records against the
  current registry snapshot. Pure decision logic: the output Plan lists
  every mutation to apply; the sqlite store applies them atomically.

CLASSIFICATION CASCADE (per candidate, in input order):
  1. Empty name after trimming            -> skip
  2. Identifier already claimed in batch  -> skip
  3. No identifier, name already claimed  -> skip
  4. Identifier matches registry          -> update-by-id
  5. Name matches a manual placeholder
     and candidate supplies an identifier -> promote (placeholder replaced)
  6. Name matches registry                -> update-by-name
  7. Otherwise                            -> insert (identifier synthesized
                                             if absent)

  A running set of identifiers and normalized names claimed earlier in the
  same batch prevents one upload from writing the same identity twice.

MERGE RULES:
  Name, position and department overwrite only when the incoming value is
  non-empty. Checked-in overwrites only when the payload explicitly
  supplied a boolean.

WHY THIS CASCADE:
  - Re-uploading a full roster by identifier is idempotent
  - Locally created placeholders reconcile to authoritative identifiers
    from an external roster without duplicates or lost attendance history
  - Name acts as a fallback natural key across inconsistent id schemes

SEE ALSO:
  - types.go: Plan and Candidate definitions
  - store/sqlite: Order-sensitive transactional apply
*/
package roster

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewManualID synthesizes a placeholder identifier: manual prefix, creation
// time, and a random suffix to break collisions within the same instant.
func NewManualID() EmployeeID {
	return EmployeeID(fmt.Sprintf("%s%d-%s", ManualIDPrefix, time.Now().UnixNano(), uuid.NewString()[:8]))
}

// Classify partitions candidates into mutation groups against the snapshot.
// It performs no I/O and is total over well-formed input: malformed records
// are counted in Plan.Skipped, never rejected with an error.
func Classify(snapshot []Employee, candidates []Candidate) Plan {
	byID := make(map[EmployeeID]Employee, len(snapshot))
	byName := make(map[string]Employee, len(snapshot))
	for _, e := range snapshot {
		byID[e.ID] = e
		key := NormalizeName(e.Name)
		if _, taken := byName[key]; !taken {
			byName[key] = e
		}
	}

	var plan Plan
	claimedIDs := make(map[EmployeeID]bool)
	claimedNames := make(map[string]bool)

	claim := func(id EmployeeID, key string) {
		claimedIDs[id] = true
		claimedNames[key] = true
	}

	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			plan.Skipped++
			continue
		}
		key := NormalizeName(name)

		if c.ID != "" && claimedIDs[c.ID] {
			plan.Skipped++
			continue
		}
		if c.ID == "" && claimedNames[key] {
			plan.Skipped++
			continue
		}

		if c.ID != "" {
			if existing, ok := byID[c.ID]; ok {
				plan.UpdatesByID = append(plan.UpdatesByID, merge(existing, c, name))
				claim(c.ID, key)
				continue
			}
		}

		if existing, ok := byName[key]; ok {
			if existing.ID.IsManual() && c.ID != "" {
				promoted := merge(existing, c, name)
				promoted.ID = c.ID
				plan.Promotions = append(plan.Promotions, Promotion{
					OldID:    existing.ID,
					Employee: promoted,
				})
				claim(c.ID, key)
				continue
			}
			// Promotion does not apply: target the existing identifier and
			// ignore any identifier the candidate supplied.
			plan.UpdatesByName = append(plan.UpdatesByName, merge(existing, c, name))
			claim(existing.ID, key)
			continue
		}

		id := c.ID
		if id == "" {
			id = NewManualID()
		}
		inserted := Employee{
			ID:         id,
			Name:       name,
			Position:   strings.TrimSpace(c.Position),
			Department: strings.TrimSpace(c.Department),
		}
		if c.CheckedIn != nil {
			inserted.CheckedIn = *c.CheckedIn
		}
		plan.Inserts = append(plan.Inserts, inserted)
		claim(id, key)
	}

	return plan
}

// merge applies the overwrite-when-supplied rules onto an existing row.
// The caller guarantees name is non-empty and trimmed.
func merge(existing Employee, c Candidate, name string) Employee {
	out := existing
	out.Name = name
	if p := strings.TrimSpace(c.Position); p != "" {
		out.Position = p
	}
	if d := strings.TrimSpace(c.Department); d != "" {
		out.Department = d
	}
	if c.CheckedIn != nil {
		out.CheckedIn = *c.CheckedIn
	}
	return out
}
