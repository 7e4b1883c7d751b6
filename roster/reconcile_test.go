/*
reconcile_test.go - Classification cascade tests

Tests for the pure classification stage: skip rules, in-batch duplicate
detection, identifier and name matching, placeholder promotion, field
merge rules, and identifier synthesis.
*/
package roster_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/rollcall/attendance-engine/roster"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func boolPtr(b bool) *bool { return &b }

func employee(id, name string) roster.Employee {
	return roster.Employee{ID: roster.EmployeeID(id), Name: name}
}

// =============================================================================
// SKIP RULES
// =============================================================================

func TestClassify_EmptyNameSkipped(t *testing.T) {
	plan := roster.Classify(nil, []roster.Candidate{
		{Name: ""},
		{Name: "   "},
		{ID: "e-1", Name: "\t"},
	})

	assert.Equal(t, 3, plan.Skipped)
	assert.True(t, plan.Empty())
}

func TestClassify_DuplicateIDWithinBatchSkipped(t *testing.T) {
	plan := roster.Classify(nil, []roster.Candidate{
		{ID: "e-1", Name: "Ana Perez"},
		{ID: "e-1", Name: "Someone Else"},
	})

	assert.Len(t, plan.Inserts, 1)
	assert.Equal(t, 1, plan.Skipped)
}

func TestClassify_DuplicateNameWithinBatchSkipped(t *testing.T) {
	// Second record supplies no identifier and its normalized name is
	// already claimed: inserting it would create the same identity twice.
	plan := roster.Classify(nil, []roster.Candidate{
		{Name: "Ana Pérez"},
		{Name: "ana  perez"},
	})

	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, "Ana Pérez", plan.Inserts[0].Name)
	assert.Equal(t, 1, plan.Skipped)

	counts := plan.Counts()
	assert.Equal(t, 1, counts.Inserted)
	assert.Equal(t, 1, counts.Skipped)
}

// =============================================================================
// MATCHING
// =============================================================================

func TestClassify_UpdateByID(t *testing.T) {
	snapshot := []roster.Employee{employee("e-1", "Ana Perez")}

	plan := roster.Classify(snapshot, []roster.Candidate{
		{ID: "e-1", Name: "Ana Perez", Position: "Manager"},
	})

	require.Len(t, plan.UpdatesByID, 1)
	assert.Equal(t, roster.EmployeeID("e-1"), plan.UpdatesByID[0].ID)
	assert.Equal(t, "Manager", plan.UpdatesByID[0].Position)
	assert.Empty(t, plan.Inserts)
}

func TestClassify_UpdateByName_TargetsExistingID(t *testing.T) {
	// Name matches a non-manual row: the supplied identifier is ignored
	// and the existing identifier stays authoritative.
	snapshot := []roster.Employee{employee("e-1", "Ana Perez")}

	plan := roster.Classify(snapshot, []roster.Candidate{
		{ID: "other-id", Name: "ANA PEREZ"},
	})

	require.Len(t, plan.UpdatesByName, 1)
	assert.Equal(t, roster.EmployeeID("e-1"), plan.UpdatesByName[0].ID)
	assert.Empty(t, plan.Promotions)
	assert.Empty(t, plan.Inserts)
}

func TestClassify_UpdateByName_NoIDSupplied(t *testing.T) {
	snapshot := []roster.Employee{employee("e-1", "Ana Perez")}

	plan := roster.Classify(snapshot, []roster.Candidate{
		{Name: "ana perez", Department: "Sales"},
	})

	require.Len(t, plan.UpdatesByName, 1)
	assert.Equal(t, "Sales", plan.UpdatesByName[0].Department)
}

func TestClassify_Promotion(t *testing.T) {
	snapshot := []roster.Employee{employee("manual-123-abcd", "Ana Pérez")}

	plan := roster.Classify(snapshot, []roster.Candidate{
		{ID: "hr-900", Name: "Ana Perez", Position: "Lead"},
	})

	require.Len(t, plan.Promotions, 1)
	p := plan.Promotions[0]
	assert.Equal(t, roster.EmployeeID("manual-123-abcd"), p.OldID)
	assert.Equal(t, roster.EmployeeID("hr-900"), p.Employee.ID)
	assert.Equal(t, "Lead", p.Employee.Position)
	assert.Empty(t, plan.UpdatesByName)
	assert.Empty(t, plan.Inserts)
}

func TestClassify_ManualMatchWithoutIncomingID_IsUpdateByName(t *testing.T) {
	// Promotion needs an authoritative incoming identifier; without one
	// the manual row is simply updated in place.
	snapshot := []roster.Employee{employee("manual-123-abcd", "Ana Perez")}

	plan := roster.Classify(snapshot, []roster.Candidate{
		{Name: "Ana Perez", Position: "Lead"},
	})

	require.Len(t, plan.UpdatesByName, 1)
	assert.Equal(t, roster.EmployeeID("manual-123-abcd"), plan.UpdatesByName[0].ID)
	assert.Empty(t, plan.Promotions)
}

func TestClassify_InsertSynthesizesManualID(t *testing.T) {
	plan := roster.Classify(nil, []roster.Candidate{{Name: "Ana Perez"}})

	require.Len(t, plan.Inserts, 1)
	id := plan.Inserts[0].ID
	assert.True(t, id.IsManual(), "synthesized id should carry the manual prefix, got %s", id)
	assert.False(t, plan.Inserts[0].CheckedIn)
}

func TestClassify_InsertKeepsSuppliedID(t *testing.T) {
	plan := roster.Classify(nil, []roster.Candidate{
		{ID: "hr-1", Name: "Ana Perez", CheckedIn: boolPtr(true)},
	})

	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, roster.EmployeeID("hr-1"), plan.Inserts[0].ID)
	assert.True(t, plan.Inserts[0].CheckedIn)
}

// =============================================================================
// MERGE RULES
// =============================================================================

func TestClassify_MergeKeepsExistingWhenIncomingEmpty(t *testing.T) {
	snapshot := []roster.Employee{{
		ID:         "e-1",
		Name:       "Ana Perez",
		Position:   "Manager",
		Department: "Sales",
		CheckedIn:  true,
	}}

	plan := roster.Classify(snapshot, []roster.Candidate{
		{ID: "e-1", Name: "Ana Perez"},
	})

	require.Len(t, plan.UpdatesByID, 1)
	merged := plan.UpdatesByID[0]
	assert.Equal(t, "Manager", merged.Position)
	assert.Equal(t, "Sales", merged.Department)
	assert.True(t, merged.CheckedIn, "checked-in must survive when the payload omits it")
}

func TestClassify_MergeOverwritesWhenSupplied(t *testing.T) {
	snapshot := []roster.Employee{{
		ID:        "e-1",
		Name:      "Ana Perez",
		Position:  "Manager",
		CheckedIn: true,
	}}

	plan := roster.Classify(snapshot, []roster.Candidate{
		{ID: "e-1", Name: "Ana Perez", Position: "Director", CheckedIn: boolPtr(false)},
	})

	require.Len(t, plan.UpdatesByID, 1)
	merged := plan.UpdatesByID[0]
	assert.Equal(t, "Director", merged.Position)
	assert.False(t, merged.CheckedIn)
}

// =============================================================================
// IDEMPOTENCY
// =============================================================================

func TestClassify_ReuploadByID_AllUpdates(t *testing.T) {
	batch := []roster.Candidate{
		{ID: "e-1", Name: "Ana Perez"},
		{ID: "e-2", Name: "Bo Chen"},
	}

	first := roster.Classify(nil, batch)
	require.Len(t, first.Inserts, 2)

	// Simulate the post-apply registry and re-upload the same batch.
	second := roster.Classify(first.Inserts, batch)
	assert.Empty(t, second.Inserts)
	assert.Len(t, second.UpdatesByID, 2)
	assert.Equal(t, 0, second.Counts().Inserted)
}

// =============================================================================
// IDENTIFIER SYNTHESIS
// =============================================================================

func TestNewManualID(t *testing.T) {
	a := roster.NewManualID()
	b := roster.NewManualID()

	assert.True(t, strings.HasPrefix(string(a), roster.ManualIDPrefix))
	assert.NotEqual(t, a, b)
	assert.True(t, a.IsManual())
	assert.False(t, roster.EmployeeID("hr-900").IsManual())
}
